package response

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensor-endpoint/internal/device"
	"sensor-endpoint/internal/threshold"
)

func testSnapshot(entries []LogEntry) *Snapshot {
	return &Snapshot{
		Identity: device.Identity{
			Model:           "SER486",
			Manufacturer:    "ASU",
			SerialNumber:    "0001",
			ManufactureDate: time.Date(2020, time.December, 4, 0, 0, 0, 0, time.UTC),
			MAC:             device.MAC{0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e},
			CountryCode:     "USA",
		},
		Thresholds:  threshold.Config{LowAlarm: -10, LowWarn: 0, HighWarn: 80, HighAlarm: 100},
		Temperature: 75,
		State:       threshold.Normal,
		Log:         entries,
	}
}

func TestBuild_General(t *testing.T) {
	testCases := []struct {
		name     string
		outcome  Outcome
		expected string
	}{
		{name: "ok", outcome: Outcome{Status: OK}, expected: "HTTP/1.1 200 OK\r\n\r\n"},
		{name: "bad request", outcome: Outcome{Status: BadRequest}, expected: "HTTP/1.1 400 BAD REQUEST\r\n\r\n"},
		{name: "bad request ignores snapshot", outcome: Outcome{Status: BadRequest, Snapshot: testSnapshot(nil)}, expected: "HTTP/1.1 400 BAD REQUEST\r\n\r\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Build(&buf, tc.outcome))
			assert.Equal(t, tc.expected, buf.String())
		})
	}
}

func TestBuild_Snapshot(t *testing.T) {
	entries := []LogEntry{
		{Timestamp: time.Date(2020, time.December, 4, 10, 30, 0, 0, time.UTC), Event: 2},
		{Timestamp: time.Date(2020, time.December, 4, 10, 30, 5, 0, time.UTC), Event: 3},
		{Timestamp: time.Date(2020, time.December, 4, 10, 30, 6, 0, time.UTC), Event: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, Build(&buf, Outcome{Status: OK, Snapshot: testSnapshot(entries)}))

	expected := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: application/vnd.api+json\r\n" +
		"\r\n" +
		`{"vpd":{"model":"SER486","manufacturer":"ASU","serial_number":"0001","manufacture_date":"12/04/2020","mac_address":"00:1a:2b:3c:4d:5e","country_code":"USA"},` +
		`"tcrit_hi":100,"twarn_hi":80,"tcrit_lo":-10,"twarn_lo":0,"temperature":75,"state":"NORMAL",` +
		`"log":[{"timestamp":"12/04/2020 10:30:00","event":2},{"timestamp":"12/04/2020 10:30:05","event":3},{"timestamp":"12/04/2020 10:30:06","event":1}]}` +
		"\r\n"
	assert.Equal(t, expected, buf.String())
}

func TestBuild_SnapshotEmptyLogIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Build(&buf, Outcome{Status: OK, Snapshot: testSnapshot(nil)}))

	body := strings.SplitN(buf.String(), "\r\n\r\n", 2)[1]
	body = strings.TrimSuffix(body, "\r\n")
	assert.True(t, strings.HasSuffix(body, `"log":[]}`))
	assert.JSONEq(t, `{
		"vpd":{"model":"SER486","manufacturer":"ASU","serial_number":"0001","manufacture_date":"12/04/2020","mac_address":"00:1a:2b:3c:4d:5e","country_code":"USA"},
		"tcrit_hi":100,"twarn_hi":80,"tcrit_lo":-10,"twarn_lo":0,"temperature":75,"state":"NORMAL","log":[]
	}`, body)
}

func TestWriter_QuotesSpecialCharacters(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteQuoted(`a"b\c`)
	require.NoError(t, w.Flush())
	assert.Equal(t, `"a\"b\\c"`, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestBuild_ReportsWriteError(t *testing.T) {
	err := Build(failingWriter{}, Outcome{Status: OK})
	assert.EqualError(t, err, "connection reset")
}
