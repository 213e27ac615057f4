package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/loykin/graphdev/internal/subgraph"
)

var (
	ErrNotInteractive = errors.New("cannot prompt: input is not a terminal")
	ErrAborted        = errors.New("selection aborted")
	ErrInvalidChoice  = errors.New("invalid selection")
	ErrNoCandidates   = errors.New("nothing to choose from")
)

// Chooser asks the user to pick one endpoint out of several.
//
// A single goroutine reads in line by line for the lifetime of the Chooser.
// A prompt abandoned through its context leaves the next line for the next
// prompt.
type Chooser struct {
	in          io.Reader
	out         io.Writer
	interactive func() bool

	once  sync.Once
	lines chan answer
}

type answer struct {
	line string
	err  error
}

// New builds a Chooser reading from in. Prompts are written to out.
func New(in *os.File, out io.Writer) *Chooser {
	return &Chooser{
		in:          in,
		out:         out,
		interactive: func() bool { return term.IsTerminal(int(in.Fd())) },
	}
}

// SelectOne prints the candidates and returns the chosen index. An empty
// answer picks the first candidate.
func (c *Chooser) SelectOne(ctx context.Context, candidates []subgraph.Endpoint) (int, error) {
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}
	if !c.interactive() {
		return 0, ErrNotInteractive
	}
	_, _ = fmt.Fprintln(c.out, "Multiple new GraphQL endpoints were found. Which one belongs to this subgraph?")
	for i, e := range candidates {
		_, _ = fmt.Fprintf(c.out, "  %d) %s\n", i+1, e)
	}
	_, _ = fmt.Fprintf(c.out, "Select [1-%d] (default 1): ", len(candidates))

	c.once.Do(c.startReader)

	var a answer
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case next, ok := <-c.lines:
		if !ok {
			return 0, ErrAborted
		}
		a = next
	}
	if a.err != nil && (a.line == "" || !errors.Is(a.err, io.EOF)) {
		return 0, ErrAborted
	}
	return parseChoice(a.line, len(candidates))
}

// startReader feeds c.lines until in fails, then closes it.
func (c *Chooser) startReader() {
	c.lines = make(chan answer)
	go func() {
		defer close(c.lines)
		r := bufio.NewReader(c.in)
		for {
			line, err := r.ReadString('\n')
			c.lines <- answer{line: line, err: err}
			if err != nil {
				return
			}
		}
	}()
}

func parseChoice(line string, n int) (int, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(line)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, line)
	}
	return i - 1, nil
}
