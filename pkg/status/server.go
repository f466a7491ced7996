// Package status exposes a read-only JSON snapshot of the OFDM
// demodulator's acquisition state over HTTP, for operational visibility in
// place of a GUI.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Snapshot is the point-in-time state reported at GET /status.
type Snapshot struct {
	State             string  `json:"state"`
	TotalFramesRead   uint64  `json:"total_frames_read"`
	TotalFramesDesync uint64  `json:"total_frames_desync"`
	FreqCoarseOffset  float64 `json:"freq_coarse_offset"`
	FreqFineOffset    float64 `json:"freq_fine_offset"`
	FineTimeOffset    int     `json:"fine_time_offset"`
}

// Provider is implemented by the demodulator to report its current state.
type Provider interface {
	Snapshot() Snapshot
}

type Server struct {
	port     int
	provider Provider
	srv      *http.Server
}

func NewServer(port int, provider Provider) *Server {
	return &Server{
		port:     port,
		provider: provider,
		srv:      &http.Server{Addr: fmt.Sprintf(":%d", port)},
	}
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) Run(ctx context.Context) error {
	handler := httprouter.New()
	handler.GET("/status", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.provider.Snapshot())
	})

	s.srv.Handler = handler

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Stop(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
