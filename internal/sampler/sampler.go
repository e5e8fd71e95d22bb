package sampler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"sensor-endpoint/config"
)

// Reading is the upstream sensor's response body.
type Reading struct {
	Temperature *int `json:"temperature"`
}

// Service holds the latest temperature reading, refreshed from an upstream sensor endpoint.
type Service struct {
	cfg     config.SamplerConfig
	client  *http.Client
	current atomic.Int64
	log     *zap.Logger
}

// NewService creates a sampler that starts at cfg.InitialTemperature.
func NewService(cfg config.SamplerConfig, log *zap.Logger) *Service {
	s := &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
	s.current.Store(int64(cfg.InitialTemperature))
	return s
}

// Current returns the latest reading.
func (s *Service) Current() int {
	return int(s.current.Load())
}

// Set overrides the current reading.
func (s *Service) Set(t int) {
	s.current.Store(int64(t))
}

// Run polls the upstream sensor until ctx is done. A disabled sampler returns immediately.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("sampler disabled, using fixed temperature", zap.Int("temperature", s.Current()))
		return
	}
	s.log.Info("starting sampler", zap.String("url", s.cfg.URL), zap.Duration("interval", s.cfg.Interval))

	s.SampleOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sampler shutting down")
			return
		case <-timer.C:
			s.SampleOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SampleOnce fetches one reading. On failure the previous value is kept.
func (s *Service) SampleOnce(ctx context.Context) {
	t, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn("temperature sample failed", zap.Error(err))
		return
	}
	if prev := s.Current(); prev != t {
		s.log.Debug("temperature changed", zap.Int("from", prev), zap.Int("to", t))
	}
	s.Set(t)
}

func (s *Service) fetch(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, fmt.Errorf("failed to read response body: %w", err)
	}

	var r Reading
	if err := json.Unmarshal(body, &r); err != nil {
		return 0, fmt.Errorf("failed to unmarshal reading: %w", err)
	}
	if r.Temperature == nil {
		return 0, fmt.Errorf("reading has no temperature")
	}
	return *r.Temperature, nil
}
