package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Frame is one outbound message. Text frames carry JSON envelopes,
// binary frames carry raw voice data.
type Frame struct {
	Binary bool
	Data   []byte
}

func TextFrame(data []byte) Frame   { return Frame{Data: data} }
func BinaryFrame(data []byte) Frame { return Frame{Binary: true, Data: data} }

// SignalConnection abstracts the per-client messaging transport.
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: it returns ErrBackpressure when the queue is full
// and ErrClosed once the connection is gone.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
