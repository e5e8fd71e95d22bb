package dispatch

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"sensor-endpoint/internal/device"
	"sensor-endpoint/internal/protocol"
	"sensor-endpoint/internal/response"
	"sensor-endpoint/internal/store"
	"sensor-endpoint/internal/threshold"
)

// ErrMissingValue rejects a threshold request whose integer argument is absent.
var ErrMissingValue = errors.New("threshold value missing")

// ConfigStore is the owner of the live thresholds.
type ConfigStore interface {
	Read() threshold.Config
	Apply(kind threshold.Kind, value int) error
	MarkModified()
}

// EventLog is the bounded device event log.
type EventLog interface {
	Append(event int)
	Clear()
	Count() int
	Entry(i int) (store.Entry, bool)
}

// Thermometer supplies the current temperature reading.
type Thermometer interface {
	Current() int
}

// Result reports what happened while handling one request.
type Result struct {
	Request           protocol.Request
	Status            response.Status
	ResponseComplete  bool
	RestartRequested  bool
	LogClearRequested bool
	// Rejection is set when a request was classified but refused.
	Rejection error
	// WriteErr is set when the response could not be written.
	WriteErr error
}

// Handler runs one classify, validate, respond cycle per request.
type Handler struct {
	config   ConfigStore
	events   EventLog
	temp     Thermometer
	identity device.Identity
	log      *zap.Logger
}

// NewHandler creates a request handler.
func NewHandler(config ConfigStore, events EventLog, temp Thermometer, identity device.Identity, log *zap.Logger) *Handler {
	return &Handler{
		config:   config,
		events:   events,
		temp:     temp,
		identity: identity,
		log:      log,
	}
}

// HandleRequest classifies the request on in, applies it, and writes exactly one response to out.
// Protocol and validation failures become 400 responses; nothing here is fatal.
func (h *Handler) HandleRequest(in protocol.Stream, out io.Writer) Result {
	req := protocol.Classify(in)
	res := Result{Request: req, Status: response.BadRequest}
	outcome := response.Outcome{Status: response.BadRequest}

	switch req.Type {
	case protocol.ReadDevice:
		outcome = response.Outcome{Status: response.OK, Snapshot: h.Snapshot()}
	case protocol.SetThreshold:
		if !req.HasValue {
			res.Rejection = ErrMissingValue
			break
		}
		if err := h.config.Apply(req.Threshold, req.Value); err != nil {
			res.Rejection = err
			break
		}
		outcome.Status = response.OK
	case protocol.SetRestartFlag:
		outcome.Status = response.OK
		res.RestartRequested = req.Restart
	case protocol.ClearLog:
		outcome.Status = response.OK
		res.LogClearRequested = true
	}

	if res.Rejection != nil {
		h.log.Debug("request rejected", zap.Stringer("request", req), zap.Error(res.Rejection))
	}

	res.Status = outcome.Status
	res.WriteErr = response.Build(out, outcome)
	res.ResponseComplete = true

	if res.LogClearRequested {
		h.events.Clear()
	}
	return res
}

// Snapshot captures identity, thresholds, the current reading and the event log.
func (h *Handler) Snapshot() *response.Snapshot {
	cfg := h.config.Read()
	t := h.temp.Current()

	n := h.events.Count()
	entries := make([]response.LogEntry, 0, n)
	for i := 0; i < n; i++ {
		e, ok := h.events.Entry(i)
		if !ok {
			// The log shrank underneath us.
			break
		}
		entries = append(entries, response.LogEntry{Timestamp: e.Timestamp, Event: e.Event})
	}

	return &response.Snapshot{
		Identity:    h.identity,
		Thresholds:  cfg,
		Temperature: t,
		State:       threshold.StateOf(t, cfg),
		Log:         entries,
	}
}
