package protocol

import (
	"bytes"
	"math"
	"strconv"
)

// Stream is the inbound byte source the classifier walks.
// *bufio.Reader satisfies it.
type Stream interface {
	Peek(n int) ([]byte, error)
	Discard(n int) (int, error)
}

// Match consumes literal from s if and only if the next bytes equal it exactly.
// On a mismatch, or when fewer bytes remain, nothing is consumed.
func Match(s Stream, literal string) bool {
	if literal == "" {
		return true
	}
	next, err := s.Peek(len(literal))
	if err != nil || len(next) < len(literal) {
		return false
	}
	if !bytes.Equal(next, []byte(literal)) {
		return false
	}
	_, err = s.Discard(len(literal))
	return err == nil
}

// MatchInteger consumes an optional sign followed by one or more decimal digits.
// The value must fit a 32-bit signed integer. If no such run is present nothing is consumed.
func MatchInteger(s Stream) (int, bool) {
	n := 0
	if b, ok := peekAt(s, 0); ok && (b == '-' || b == '+') {
		n = 1
	}
	digits := 0
	for {
		b, ok := peekAt(s, n)
		if !ok || b < '0' || b > '9' {
			break
		}
		n++
		digits++
	}
	if digits == 0 {
		return 0, false
	}

	raw, err := s.Peek(n)
	if err != nil {
		return 0, false
	}
	value, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || value < math.MinInt32 || value > math.MaxInt32 {
		return 0, false
	}
	if _, err := s.Discard(n); err != nil {
		return 0, false
	}
	return int(value), true
}

func peekAt(s Stream, i int) (byte, bool) {
	buf, err := s.Peek(i + 1)
	if err != nil || len(buf) <= i {
		return 0, false
	}
	return buf[i], true
}
