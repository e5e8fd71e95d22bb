package protocol

import "sensor-endpoint/internal/threshold"

// thresholdTokens are tried in this order after "/config?".
var thresholdTokens = []struct {
	token string
	kind  threshold.Kind
}{
	{"tcrit_hi=", threshold.HighAlarm},
	{"twarn_hi=", threshold.HighWarn},
	{"tcrit_lo=", threshold.LowAlarm},
	{"twarn_lo=", threshold.LowWarn},
}

// Classify walks the request line token by token and returns the single request it denotes.
// Once a token at one level matches, the walk never backs up to try a sibling.
func Classify(s Stream) Request {
	switch {
	case Match(s, "GET"):
		return classifyGet(s)
	case Match(s, "PUT /device"):
		return classifyPut(s)
	case Match(s, "DELETE"):
		if Match(s, " /device/log") {
			return Request{Type: ClearLog}
		}
	}
	return Request{Type: Invalid}
}

func classifyGet(s Stream) Request {
	if !Match(s, " /device") {
		return Request{Type: Invalid}
	}
	// Sub-resources of /device are not readable.
	if Match(s, "/") {
		return Request{Type: Invalid}
	}
	return Request{Type: ReadDevice}
}

func classifyPut(s Stream) Request {
	if Match(s, "/config?") {
		for _, t := range thresholdTokens {
			if Match(s, t.token) {
				value, ok := MatchInteger(s)
				return Request{Type: SetThreshold, Threshold: t.kind, Value: value, HasValue: ok}
			}
		}
		return Request{Type: Invalid}
	}

	switch {
	case Match(s, `?reset="true"`):
		return Request{Type: SetRestartFlag, Restart: true}
	case Match(s, `?reset="false"`):
		return Request{Type: SetRestartFlag, Restart: false}
	}
	return Request{Type: Invalid}
}
