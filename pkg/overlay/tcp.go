// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package overlay republishes bridge state to local display clients: a line
// delimited JSON gear feed over TCP and an HTTP server carrying a WebSocket
// status feed and command intake.
package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/ergostat/pkg/bridge"
)

// unknownGear is sent to clients before the first gear update.
var unknownGear = []byte(`{"gear":"unknown"}` + "\n")

// TCPServer pushes gear updates as one JSON object per line. Every client
// receives the last known gear on connect.
type TCPServer struct {
	addr string
	log  *logrus.Entry

	listener net.Listener

	mu      sync.Mutex
	clients map[net.Conn]struct{}
	last    []byte
}

// NewTCPServer creates a server for addr, e.g. ":9999".
func NewTCPServer(addr string, log *logrus.Entry) *TCPServer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TCPServer{
		addr:    addr,
		log:     log.WithField("component", "overlay"),
		clients: make(map[net.Conn]struct{}),
		last:    unknownGear,
	}
}

// Listen binds the listening socket.
func (s *TCPServer) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.log.WithField("addr", ln.Addr().String()).Info("TCP overlay server listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *TCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts clients until ctx ends. Listen must have succeeded.
func (s *TCPServer) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("overlay server not listening")
	}

	go func() {
		<-ctx.Done()
		s.listener.Close()
		s.closeClients()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		s.mu.Lock()
		_, werr := conn.Write(s.last)
		if werr == nil {
			s.clients[conn] = struct{}{}
		}
		s.mu.Unlock()

		if werr != nil {
			conn.Close()
			continue
		}
		s.log.WithField("remote", conn.RemoteAddr().String()).Info("Overlay connected")
		go s.watch(conn)
	}
}

// watch drops a client once its connection closes. Clients never send.
func (s *TCPServer) watch(conn net.Conn) {
	buf := make([]byte, 64)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}
	s.drop(conn)
	s.log.WithField("remote", conn.RemoteAddr().String()).Info("Overlay disconnected")
}

// Publish records v as the last gear object and sends it to every client.
// Clients whose write fails are dropped.
func (s *TCPServer) Publish(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode overlay message: %w", err)
	}
	line := append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = line
	for conn := range s.clients {
		if _, err := conn.Write(line); err != nil {
			s.log.WithError(err).Warn("Error sending to overlay")
			delete(s.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// Forward publishes every GearEvent from events until ctx ends or events is
// closed.
func (s *TCPServer) Forward(ctx context.Context, events <-chan interface{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			if ev, isGear := msg.(bridge.GearEvent); isGear {
				if err := s.Publish(ev); err != nil {
					s.log.WithError(err).Warn("Overlay publish failed")
				}
			}
		}
	}
}

// Clients returns the number of connected clients.
func (s *TCPServer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *TCPServer) drop(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
}

func (s *TCPServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
}
