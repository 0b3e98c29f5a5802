package capture

import "sync/atomic"

// counters observe the capture loop; drops show up as the gap between
// frames_in and frames_deposited.
type counters struct {
    framesIn        atomic.Uint64 // frames acquired from the source
    framesConverted atomic.Uint64 // frames packed to NV21
    framesInvalid   atomic.Uint64 // frames rejected for their layout
    framesFailed    atomic.Uint64 // transform errors or non-RGBA output
    framesDeposited atomic.Uint64 // frames handed to the sink
    framesStale     atomic.Uint64 // frames finished after their session was stopped
}

func (c *counters) snapshot() map[string]uint64 {
    return map[string]uint64{
        "frames_in":               c.framesIn.Load(),
        "frames_converted":        c.framesConverted.Load(),
        "frames_invalid":          c.framesInvalid.Load(),
        "frames_transform_failed": c.framesFailed.Load(),
        "frames_deposited":        c.framesDeposited.Load(),
        "frames_stale":            c.framesStale.Load(),
    }
}

// logEvery reports whether the n-th occurrence of a repeated failure
// should be logged: the first one, then every 300th.
func logEvery(n uint64) bool { return n == 1 || n%300 == 0 }
