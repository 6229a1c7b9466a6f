package csvstore

import (
	"bufio"
	"io"
	"strings"
)

// quotedWriter writes CSV records with every field quoted and CRLF line endings.
// encoding/csv only quotes fields that need it.
type quotedWriter struct {
	w   *bufio.Writer
	err error
}

func newQuotedWriter(w io.Writer) *quotedWriter {
	return &quotedWriter{w: bufio.NewWriter(w)}
}

func (q *quotedWriter) Write(fields []string) {
	if q.err != nil {
		return
	}
	for i, f := range fields {
		if i > 0 {
			q.writeString(",")
		}
		q.writeString(`"`)
		q.writeString(strings.ReplaceAll(f, `"`, `""`))
		q.writeString(`"`)
	}
	q.writeString("\r\n")
}

func (q *quotedWriter) writeString(s string) {
	if q.err != nil {
		return
	}
	_, q.err = q.w.WriteString(s)
}

// Flush writes buffered data and returns the first error seen.
func (q *quotedWriter) Flush() error {
	if q.err != nil {
		return q.err
	}
	return q.w.Flush()
}
