// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Thermoquad/ergostat/pkg/bridge"
	"github.com/Thermoquad/ergostat/pkg/overlay"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// MonitorConnection is a client of the bridge's /ws endpoint: CBOR status
// messages in, JSON commands out.
type MonitorConnection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

// ReadStatus blocks until the next status message. Text frames are skipped.
func (m *MonitorConnection) ReadStatus() (overlay.Status, error) {
	if m.closed {
		return overlay.Status{}, ErrConnectionClosed
	}

	for {
		messageType, data, err := m.conn.ReadMessage()
		if err != nil {
			m.closed = true
			return overlay.Status{}, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		return overlay.DecodeStatus(data)
	}
}

// Send writes a command. Safe for concurrent use.
func (m *MonitorConnection) Send(cmd bridge.Command) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.conn.WriteJSON(cmd)
}

func (m *MonitorConnection) Close() error {
	return m.conn.Close()
}

// OpenMonitorConnection dials the bridge's WebSocket endpoint
func OpenMonitorConnection(wsURL string, skipSSLVerify bool) (*MonitorConnection, error) {
	// Parse and validate URL
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &MonitorConnection{conn: conn}, nil
}
