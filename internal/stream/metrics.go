package stream

import "sync/atomic"

// Global counters for the preview encoder.
// Intended to observe backpressure (e.g., repeated or skipped frames).
var (
    framesIn       atomic.Uint64 // ticks that fed a frame to the encoder
    framesRepeated atomic.Uint64 // ticks with no new slot frame
    framesSkipped  atomic.Uint64 // slot frames with inconsistent dimensions
    framesScaled   atomic.Uint64 // slot frames resized to the encoder size
    samplesSent    atomic.Uint64 // access units written to the broadcaster
    keyframes      atomic.Uint64 // access units carrying an IDR slice
    samplesDropped atomic.Uint64 // samples a slow session had no room for
)

// ResetCounters resets all metrics to zero.
func ResetCounters() {
    framesIn.Store(0)
    framesRepeated.Store(0)
    framesSkipped.Store(0)
    framesScaled.Store(0)
    samplesSent.Store(0)
    keyframes.Store(0)
    samplesDropped.Store(0)
}

// GetCounters returns a snapshot of current metrics.
func GetCounters() map[string]uint64 {
    return map[string]uint64{
        "frames_in":       framesIn.Load(),
        "frames_repeated": framesRepeated.Load(),
        "frames_skipped":  framesSkipped.Load(),
        "frames_scaled":   framesScaled.Load(),
        "samples_sent":    samplesSent.Load(),
        "keyframes_sent":  keyframes.Load(),
        "samples_dropped": samplesDropped.Load(),
    }
}

func incFramesIn()       { framesIn.Add(1) }
func incFramesRepeated() { framesRepeated.Add(1) }
func incFramesSkipped()  { framesSkipped.Add(1) }
func incFramesScaled()   { framesScaled.Add(1) }
func incKeyframes()      { keyframes.Add(1) }
func incSamplesDropped() { samplesDropped.Add(1) }
func incSamplesSent(n int) {
    if n > 0 { samplesSent.Add(uint64(n)) }
}
