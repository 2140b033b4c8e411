package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"
)

// NewFeedHandler serves the merged results and failed feeds of the newest
// run at exactly path. Every other path is not found.
func NewFeedHandler(locator *RunLocator, path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		serveMergedFeed(w, r, locator)
	})
}

func serveMergedFeed(w http.ResponseWriter, r *http.Request, locator *RunLocator) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	runDir, err := locator.Newest()
	if errors.Is(err, ErrNoRuns) {
		http.Error(w, "no feed available", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("resolving run for feed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	doc, err := mergeFeedFiles(filepath.Join(runDir, resultsFeed), filepath.Join(runDir, failedFeed))
	if errors.Is(err, ErrFeedMissing) {
		http.Error(w, "no feed available", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("loading feeds", "run", runDir, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := EncodeFeed(&buf, doc); err != nil {
		slog.Error("encoding merged feed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", feedContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(buf.Bytes())
	}
}

// ServerHandle is a running feed responder
type ServerHandle struct {
	srv      *http.Server
	addr     string
	done     chan struct{}
	err      error
	stopOnce sync.Once
	stopErr  error
}

// StartServer binds addr and serves handler in the background
func StartServer(addr string, handler http.Handler) (*ServerHandle, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	h := &ServerHandle{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		addr: ln.Addr().String(),
		done: make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.err = err
		}
	}()

	slog.Info("serving feed", "address", h.addr)
	return h, nil
}

// Addr returns the bound address
func (h *ServerHandle) Addr() string {
	return h.addr
}

// Done is closed once the server has stopped serving
func (h *ServerHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the serve error, if any, after Done is closed
func (h *ServerHandle) Err() error {
	return h.err
}

// Stop shuts the server down gracefully, closing any connections still open
// when ctx ends, and returns once the listener is released. Repeated calls
// return the first result.
func (h *ServerHandle) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		if err := h.srv.Shutdown(ctx); err != nil {
			h.stopErr = fmt.Errorf("shutting down %s: %w", h.addr, err)
			// Close drops the remaining connections so Serve returns.
			h.srv.Close()
		}
		<-h.done
	})
	return h.stopErr
}

// ServerManager keeps at most one responder running
type ServerManager struct {
	mu      sync.Mutex
	current *ServerHandle
}

// Start stops the current responder, waits for it, then starts a new one
func (m *ServerManager) Start(ctx context.Context, addr string, handler http.Handler) (*ServerHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		// Stop always releases the listener; a failed graceful shutdown
		// only means open connections were dropped.
		if err := m.current.Stop(ctx); err != nil {
			slog.Warn("previous server stopped with error", "address", m.current.addr, "error", err)
		}
		m.current = nil
	}

	h, err := StartServer(addr, handler)
	if err != nil {
		return nil, err
	}
	m.current = h
	return h, nil
}

// Stop stops the current responder, if any
func (m *ServerManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	err := m.current.Stop(ctx)
	m.current = nil
	return err
}
