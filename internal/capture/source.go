// Package capture drives a camera source and feeds converted, processed
// frames to a sink. It owns the capture goroutine: acquire the most recent
// planar frame, pack it as NV21, release it back to the source, run the
// transform and deposit the RGBA result.
package capture

import (
    "context"
    "errors"

    "edgeviewer/internal/handoff"
    "edgeviewer/internal/yuv"
)

// ErrSourceClosed is returned by Acquire once a source has been closed.
var ErrSourceClosed = errors.New("capture source closed")

// Source delivers planar YUV 4:2:0 frames.
//
// Acquire blocks until a frame newer than the previous one is available
// and returns it with a release func. Frames that arrived while the caller
// was busy are dropped in favour of the newest one. The image stays valid
// until release is called; release must be called exactly once.
type Source interface {
    Acquire(ctx context.Context) (img *yuv.PlanarImage, release func(), err error)
    Close() error
}

// Sink receives processed RGBA frames. render.Pipeline implements it.
type Sink interface {
    UpdateFrame(data []byte, width, height int)
}

// SlotSink deposits frames straight into a slot, for runs without a render
// surface.
type SlotSink struct {
    Slot *handoff.Slot
}

func (s SlotSink) UpdateFrame(data []byte, width, height int) {
    s.Slot.Deposit(data, width, height)
}
