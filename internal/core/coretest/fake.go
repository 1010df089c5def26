// Package coretest provides an in-memory SignalConnection for tests.
package coretest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/VoiceRelay/internal/core"
)

// Conn records every frame it accepts. With Limit > 0 it reports
// backpressure once Limit frames are queued.
type Conn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	Limit  int
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrClosed
	}
	if c.Limit > 0 && len(c.frames) >= c.Limit {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

func (c *Conn) Reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// Events decodes the recorded text frames.
func (c *Conn) Events() []core.Envelope {
	var out []core.Envelope
	for _, f := range c.Frames() {
		if f.Binary {
			continue
		}
		var env core.Envelope
		if err := json.Unmarshal(f.Data, &env); err == nil {
			out = append(out, env)
		}
	}
	return out
}

// EventsOf returns the recorded envelopes of one type.
func (c *Conn) EventsOf(eventType string) []core.Envelope {
	var out []core.Envelope
	for _, env := range c.Events() {
		if env.Type == eventType {
			out = append(out, env)
		}
	}
	return out
}
