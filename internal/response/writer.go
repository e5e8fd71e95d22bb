package response

import (
	"bufio"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"sensor-endpoint/internal/device"
)

// Writer is the outbound sink. It buffers formatted writes and latches the
// first error, which Flush reports.
type Writer struct {
	w   *bufio.Writer
	err error
	buf []byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteRaw writes s unchanged.
func (w *Writer) WriteRaw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.WriteString(s)
}

// WriteDecimal writes n in base 10.
func (w *Writer) WriteDecimal(n int) {
	if w.err != nil {
		return
	}
	w.buf = strconv.AppendInt(w.buf[:0], int64(n), 10)
	_, w.err = w.w.Write(w.buf)
}

// WriteQuoted writes s as a JSON string literal.
func (w *Writer) WriteQuoted(s string) {
	if w.err != nil {
		return
	}
	b, err := json.Marshal(s)
	if err != nil {
		w.err = err
		return
	}
	_, w.err = w.w.Write(b)
}

// WriteDate writes d as a quoted MM/DD/YYYY string.
func (w *Writer) WriteDate(d time.Time) {
	w.WriteQuoted(d.Format(device.DateLayout))
}

// WriteTimestamp writes t as a quoted MM/DD/YYYY HH:MM:SS string in UTC.
func (w *Writer) WriteTimestamp(t time.Time) {
	w.WriteQuoted(t.UTC().Format(device.TimestampLayout))
}

// WriteMAC writes m as a quoted colon separated address.
func (w *Writer) WriteMAC(m device.MAC) {
	w.WriteQuoted(m.String())
}

// Flush pushes buffered bytes to the underlying writer and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}
