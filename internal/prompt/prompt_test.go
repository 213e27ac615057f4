package prompt

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/graphdev/internal/subgraph"
)

var candidates = []subgraph.Endpoint{
	subgraph.Local(4001, "/graphql"),
	subgraph.Local(4002, "/graphql"),
	subgraph.Local(4003, "/graphql"),
}

func scripted(input string) (*Chooser, *bytes.Buffer) {
	var out bytes.Buffer
	return &Chooser{in: strings.NewReader(input), out: &out, interactive: func() bool { return true }}, &out
}

func TestSelectOne(t *testing.T) {
	ctx := context.Background()
	for input, want := range map[string]int{
		"\n":    0,
		"1\n":   0,
		" 2 \n": 1,
		"3":     2, // EOF without newline still counts
	} {
		c, out := scripted(input)
		got, err := c.SelectOne(ctx, candidates)
		require.NoError(t, err, "input=%q", input)
		assert.Equal(t, want, got, "input=%q", input)
		assert.Contains(t, out.String(), candidates[2].String())
		assert.Contains(t, out.String(), "Select [1-3]")
	}
}

func TestSelectOneInvalid(t *testing.T) {
	ctx := context.Background()
	for _, input := range []string{"0\n", "4\n", "abc\n"} {
		c, _ := scripted(input)
		_, err := c.SelectOne(ctx, candidates)
		assert.ErrorIs(t, err, ErrInvalidChoice, "input=%q", input)
	}
	c, _ := scripted("")
	_, err := c.SelectOne(ctx, candidates)
	assert.ErrorIs(t, err, ErrAborted)
}

func TestSelectOneNotInteractive(t *testing.T) {
	c := &Chooser{in: strings.NewReader("1\n"), out: io.Discard, interactive: func() bool { return false }}
	_, err := c.SelectOne(context.Background(), candidates)
	assert.ErrorIs(t, err, ErrNotInteractive)

	_, err = c.SelectOne(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestNewOnPipeIsNotInteractive(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = r.Close(); _ = w.Close() }()

	c := New(r, io.Discard)
	_, err = c.SelectOne(context.Background(), candidates)
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestSelectOneCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()
	c := &Chooser{in: pr, out: io.Discard, interactive: func() bool { return true }}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.SelectOne(ctx, candidates)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSelectOneAfterCancelGetsNextLine(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()
	c := &Chooser{in: pr, out: io.Discard, interactive: func() bool { return true }}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.SelectOne(ctx, candidates)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() { _, _ = pw.Write([]byte("2\n")) }()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	got, err := c.SelectOne(ctx2, candidates)
	require.NoError(t, err, "the answer typed after a cancelled prompt belongs to the next one")
	assert.Equal(t, 1, got)
}

func TestSelectOneKeepsBufferedLines(t *testing.T) {
	c, _ := scripted("2\n3\n")
	ctx := context.Background()

	got, err := c.SelectOne(ctx, candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = c.SelectOne(ctx, candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	_, err = c.SelectOne(ctx, candidates)
	assert.ErrorIs(t, err, ErrAborted)
	_, err = c.SelectOne(ctx, candidates)
	assert.ErrorIs(t, err, ErrAborted, "input stays closed after EOF")
}
