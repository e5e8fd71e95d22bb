package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"sensor-endpoint/internal/response"
	"sensor-endpoint/internal/store"
)

// SnapshotSource produces the current device snapshot.
type SnapshotSource interface {
	Snapshot() *response.Snapshot
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	snapshots SnapshotSource
	webpush   *webpush.Options
	log       *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, snapshots SnapshotSource, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	return &Handler{
		store:     s,
		snapshots: snapshots,
		webpush:   webpushOptions,
		log:       log,
	}
}
