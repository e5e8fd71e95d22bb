package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sensor-endpoint/internal/mw"
	"sensor-endpoint/internal/response"
	"sensor-endpoint/internal/store"
)

// Persister flushes pending configuration and log writes.
type Persister interface {
	Flush(ctx context.Context)
}

// Restarter performs the process-level restart once state is persisted.
type Restarter interface {
	Restart()
}

// Options tune the TCP endpoint.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	DrainTimeout    time.Duration
	MaxRequestBytes int
	Limiter         *mw.IPRateLimiter
}

// Server accepts sensor protocol connections and answers one request per connection.
type Server struct {
	handler   *Handler
	opts      Options
	persister Persister
	restarter Restarter
	log       *zap.Logger

	wg         sync.WaitGroup
	restarting atomic.Bool
}

// NewServer creates a TCP server around h.
func NewServer(h *Handler, opts Options, persister Persister, restarter Restarter, log *zap.Logger) *Server {
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = 1024
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 100 * time.Millisecond
	}
	return &Server{
		handler:   h,
		opts:      opts,
		persister: persister,
		restarter: restarter,
		log:       log,
	}
}

// ListenAndServe listens on opts.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then waits for open connections to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("sensor endpoint listening", zap.String("addr", ln.Addr().String()))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-stop:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				s.log.Info("sensor endpoint stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn("accept timed out", zap.Error(err))
				time.Sleep(50 * time.Millisecond)
				continue
			}
			s.wg.Wait()
			return fmt.Errorf("accept failed: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	log := s.log.With(
		zap.String("conn_id", uuid.NewString()),
		zap.String("remote", conn.RemoteAddr().String()),
	)

	if s.opts.Limiter != nil && !s.opts.Limiter.Allow(hostOf(conn.RemoteAddr())) {
		log.Warn("connection rate limited")
		_ = conn.SetWriteDeadline(time.Now().Add(s.opts.ReadTimeout))
		if err := response.Build(conn, response.Outcome{Status: response.BadRequest}); err != nil {
			log.Debug("failed to write throttle response", zap.Error(err))
		}
		s.drain(conn, bufio.NewReader(conn))
		conn.Close()
		return
	}

	r := bufio.NewReader(conn)
	_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	head, err := readHead(r, s.opts.MaxRequestBytes)
	if len(head) == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			log.Debug("connection closed before a request arrived", zap.Error(err))
		}
		conn.Close()
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(s.opts.ReadTimeout))
	res := s.handler.HandleRequest(bufio.NewReader(bytes.NewReader(head)), conn)

	fields := []zap.Field{
		zap.Stringer("request", res.Request),
		zap.Int("status", res.Status.Code()),
	}
	if res.Rejection != nil {
		fields = append(fields, zap.NamedError("rejection", res.Rejection))
	}
	if res.WriteErr != nil {
		log.Warn("failed to write response", append(fields, zap.Error(res.WriteErr))...)
	} else {
		log.Info("request handled", fields...)
	}

	if res.ResponseComplete {
		s.drain(conn, r)
	}
	conn.Close()

	if res.RestartRequested {
		s.restart(ctx, log)
	}
}

// drain discards whatever the client still sends so the close is orderly.
func (s *Server) drain(conn net.Conn, r *bufio.Reader) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	_ = conn.SetReadDeadline(time.Now().Add(s.opts.DrainTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(r, int64(s.opts.MaxRequestBytes)*4))
}

// restart persists configuration, records the restart and hands over to the Restarter.
// Only the first restart request is honoured.
func (s *Server) restart(ctx context.Context, log *zap.Logger) {
	if !s.restarting.CompareAndSwap(false, true) {
		return
	}
	log.Info("restart requested")

	s.handler.config.MarkModified()
	s.handler.events.Append(store.EventRestart)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if s.persister != nil {
		s.persister.Flush(flushCtx)
	}
	if s.restarter != nil {
		s.restarter.Restart()
	}
}

// readHead reads up to and including the first blank line, at most max bytes.
// A read error after some bytes arrived ends the message; the partial head is returned.
func readHead(r *bufio.Reader, max int) ([]byte, error) {
	var head []byte
	for len(head) < max {
		line, err := r.ReadSlice('\n')
		head = append(head, line...)
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				err = io.EOF
			}
			return capBytes(head, max), err
		}
		if isBlankLine(line) {
			return head, nil
		}
	}
	return capBytes(head, max), nil
}

func isBlankLine(line []byte) bool {
	return bytes.Equal(line, []byte("\r\n")) || bytes.Equal(line, []byte("\n"))
}

func capBytes(b []byte, max int) []byte {
	if len(b) > max {
		return b[:max]
	}
	return b
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
