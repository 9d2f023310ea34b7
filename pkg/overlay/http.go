// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/ergostat/pkg/bridge"
	"github.com/Thermoquad/ergostat/pkg/session"
)

// HTTPServer serves the status WebSocket and a small JSON API.
//
//	GET  /health   liveness
//	GET  /status   current session as JSON
//	POST /command  bridge.Command as JSON
//	GET  /ws       CBOR status stream out, JSON commands in
type HTTPServer struct {
	addr     string
	log      *logrus.Entry
	bridge   *bridge.Bridge
	upgrader websocket.Upgrader
}

// NewHTTPServer creates a server for addr, e.g. ":8080".
func NewHTTPServer(addr string, b *bridge.Bridge, log *logrus.Entry) *HTTPServer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &HTTPServer{
		addr:   addr,
		log:    log.WithField("component", "overlay"),
		bridge: b,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the router.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ergostat"})
	})
	r.Get("/status", s.handleStatus)
	r.Post("/command", s.handleCommand)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// ListenAndServe runs until ctx ends.
func (s *HTTPServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.WithField("addr", s.addr).Info("HTTP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("HTTP request")
	})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusFromSnapshot(s.bridge.Snapshot()))
}

func (s *HTTPServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd bridge.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if _, err := s.bridge.Submit(cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StatusFromSnapshot(s.bridge.Snapshot()))
}

func (s *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.WithField("remote", r.RemoteAddr)
	log.Info("Monitor connected")

	events := s.bridge.Subscribe(bridge.TopicState)
	done := make(chan struct{})
	go s.writeStatus(conn, events, done)

	for {
		var cmd bridge.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			break
		}
		if _, err := s.bridge.Submit(cmd); err != nil {
			log.WithError(err).Warn("Monitor command rejected")
		}
	}

	close(done)
	// Unsub blocks until the broker detaches; drain so it never stalls.
	go s.bridge.Unsubscribe(events)
	for range events {
	}
	log.Info("Monitor disconnected")
}

// writeStatus sends the current status, then one message per state event,
// until done closes or a write fails.
func (s *HTTPServer) writeStatus(conn *websocket.Conn, events <-chan interface{}, done <-chan struct{}) {
	if err := s.sendStatus(conn, s.bridge.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			snap, isSnap := msg.(session.Snapshot)
			if !isSnap {
				continue
			}
			if err := s.sendStatus(conn, snap); err != nil {
				return
			}
		}
	}
}

func (s *HTTPServer) sendStatus(conn *websocket.Conn, snap session.Snapshot) error {
	data, err := EncodeStatus(StatusFromSnapshot(snap))
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
