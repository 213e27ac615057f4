package netstat

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/loykin/graphdev/internal/subgraph"
)

const probeQuery = "query { __typename }"

// maxProbeBody bounds how much of a probe response is read.
const maxProbeBody = 64 << 10

var probeBody = func() []byte {
	b, err := sjson.SetBytes(nil, "query", probeQuery)
	if err != nil {
		panic(err)
	}
	return b
}()

// isGraphQL posts a trivial query to e and checks for a GraphQL-shaped reply.
func (s *Scanner) isGraphQL(ctx context.Context, e subgraph.Endpoint) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.String(), bytes.NewReader(probeBody))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("probe failed", "endpoint", e.String(), "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return false
	}
	return looksLikeGraphQL(body)
}

func looksLikeGraphQL(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	return gjson.GetBytes(body, "data.__typename").Exists()
}
