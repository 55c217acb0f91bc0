package providers

import (
	"bufio"
	"io"
	"strings"
)

// doneSentinel is the OpenAI-family terminator: a data line whose payload
// is literally "[DONE]".
const doneSentinel = "[DONE]"

// sseLine is one parsed line from the stream: either a "data:" payload
// line (OpenAI family) or an "event:"/"data:" pair (Anthropic family).
type sseLine struct {
	field   string // "event" or "data"
	payload string
}

// sseReader incrementally reads a line-oriented SSE body, maintaining an
// internal byte buffer and yielding one sseLine per "data:"/"event:"
// line. Lines not beginning with a recognized field are ignored. This is
// the reader shared by both wire-family adapters, grounded on the
// teacher's ollama.go raw net/http + bufio.Scanner streaming shape,
// generalized from bare NDJSON lines to the "field: payload" SSE grammar.
type sseReader struct {
	scanner *bufio.Scanner
}

// newSSEReader wraps body in a buffered line scanner sized generously for
// long tool-call argument deltas.
func newSSEReader(body io.Reader) *sseReader {
	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &sseReader{scanner: scanner}
}

// next reads lines until it finds a recognized "field: payload" line,
// strips trailing CR and leading whitespace per the spec's exact framing
// rules, and returns it. It returns io.EOF when the underlying stream is
// exhausted without another data/event line.
func (r *sseReader) next() (sseLine, error) {
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		line = strings.TrimLeft(line, " \t")
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "data:"):
			return sseLine{field: "data", payload: strings.TrimSpace(strings.TrimPrefix(line, "data:"))}, nil
		case strings.HasPrefix(line, "event:"):
			return sseLine{field: "event", payload: strings.TrimSpace(strings.TrimPrefix(line, "event:"))}, nil
		default:
			// Ignore lines that do not begin with a recognized SSE field,
			// per spec 4.3's stream-parsing rule.
			continue
		}
	}
	if err := r.scanner.Err(); err != nil {
		return sseLine{}, err
	}
	return sseLine{}, io.EOF
}

// isDone reports whether a data-field payload is the OpenAI-family
// termination sentinel.
func isDone(payload string) bool {
	return payload == doneSentinel
}
