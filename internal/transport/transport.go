// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"errors"
	"sync/atomic"
)

// Transport errors, in fallback order: an unavailable or timed-out
// transport lets the caller try the next source; a lost connection ends
// the session but leaves the pipeline state intact for reconnection.
var (
	// ErrUnavailable: the required device/capability is absent. Fatal
	// for this adapter, never retried automatically.
	ErrUnavailable = errors.New("transport: unavailable")
	// ErrConnectTimeout: connection establishment exceeded its bound.
	ErrConnectTimeout = errors.New("transport: connect timeout")
	// ErrConnectionLost: the active stream closed or errored mid-session.
	ErrConnectionLost = errors.New("transport: connection lost")
)

// FeedFunc receives raw wire bytes from the adapter's read loop. Errors
// from the pipeline (framer overflow) are recoverable; adapters keep
// reading.
type FeedFunc func(chunk []byte) error

// Transport is a byte-stream source for the conditioning pipeline. Run
// blocks for the life of the connection, feeding bytes as they arrive,
// and returns when the context is cancelled or the stream fails. The
// underlying resource is always released before Run returns.
type Transport interface {
	Name() string
	Run(ctx context.Context, feed FeedFunc) error
}

// State is the adapter lifecycle:
// Disconnected → Connecting → Connected → (ReadLoop | Polling) →
// Disconnected.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	ReadLoop
	Polling
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ReadLoop:
		return "reading"
	case Polling:
		return "polling"
	default:
		return "disconnected"
	}
}

// state is embedded by adapters for cheap observable status.
type state struct {
	v atomic.Int32
}

func (s *state) set(st State) { s.v.Store(int32(st)) }

// State reports the adapter's current lifecycle state.
func (s *state) State() State { return State(s.v.Load()) }
