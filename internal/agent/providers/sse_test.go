package providers

import (
	"io"
	"strings"
	"testing"
)

func TestSSEReaderParsesDataAndEventLines(t *testing.T) {
	body := "event: message_start\r\ndata: {\"a\":1}\r\n\r\ndata: [DONE]\r\n"
	r := newSSEReader(strings.NewReader(body))

	line, err := r.next()
	if err != nil || line.field != "event" || line.payload != "message_start" {
		t.Fatalf("first line = %+v, err = %v", line, err)
	}

	line, err = r.next()
	if err != nil || line.field != "data" || line.payload != `{"a":1}` {
		t.Fatalf("second line = %+v, err = %v", line, err)
	}

	line, err = r.next()
	if err != nil || line.field != "data" || !isDone(line.payload) {
		t.Fatalf("third line = %+v, err = %v", line, err)
	}

	if _, err := r.next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSSEReaderIgnoresUnrecognizedLines(t *testing.T) {
	body := ": this is a comment\r\nretry: 5000\r\ndata: payload\r\n"
	r := newSSEReader(strings.NewReader(body))

	line, err := r.next()
	if err != nil {
		t.Fatalf("next() error = %v", err)
	}
	if line.field != "data" || line.payload != "payload" {
		t.Fatalf("expected data payload, got %+v", line)
	}
}

func TestSSEReaderBlankLinesSkipped(t *testing.T) {
	r := newSSEReader(strings.NewReader("\n\n\ndata: x\n\n\n"))
	line, err := r.next()
	if err != nil || line.payload != "x" {
		t.Fatalf("line = %+v, err = %v", line, err)
	}
}
