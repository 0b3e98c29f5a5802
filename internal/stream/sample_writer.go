package stream

import (
    "sync"

    "github.com/pion/webrtc/v3/pkg/media"
)

// asyncSampleWriter is a small buffered, asynchronous wrapper around a
// SampleWriter so the encoder loop never blocks on network backpressure.
// Writes are best-effort; if the queue is full, the sample is dropped.
type asyncSampleWriter struct {
    ch   chan media.Sample
    quit chan struct{}
}

// newAsyncSampleWriter starts a writer goroutine for w and returns a
// non-blocking enqueue function along with a stop function. Stop is safe
// to call more than once.
func newAsyncSampleWriter(w SampleWriter, queue int) (enqueue func(media.Sample) bool, stop func()) {
    if queue <= 0 { queue = 4 }
    aw := &asyncSampleWriter{ch: make(chan media.Sample, queue), quit: make(chan struct{})}
    go func() {
        for {
            select {
            case s := <-aw.ch:
                _ = w.WriteSample(s)
            case <-aw.quit:
                return
            }
        }
    }()
    enqueue = func(s media.Sample) bool {
        select {
        case aw.ch <- s:
            return true
        default:
            return false
        }
    }
    var once sync.Once
    stop = func() { once.Do(func() { close(aw.quit) }) }
    return enqueue, stop
}
