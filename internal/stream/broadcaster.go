package stream

import (
    "sync"

    "github.com/pion/webrtc/v3/pkg/media"
)

// SampleWriter is satisfied by *webrtc.TrackLocalStaticSample.
type SampleWriter interface {
    WriteSample(media.Sample) error
}

// SampleBroadcaster fans encoded samples out to multiple tracks.
// Each sink gets its own small queue so a slow connection doesn't block others.
type SampleBroadcaster struct {
    mu    sync.RWMutex
    sinks map[*sink]struct{}
}

type sink struct {
    enqueue func(media.Sample) bool
    stop    func()
}

// NewSampleBroadcaster creates a broadcaster. Call Close when done.
func NewSampleBroadcaster() *SampleBroadcaster {
    return &SampleBroadcaster{sinks: make(map[*sink]struct{})}
}

// Add registers a track and returns a function removing it again.
func (b *SampleBroadcaster) Add(track SampleWriter) (remove func()) {
    s := &sink{}
    s.enqueue, s.stop = newAsyncSampleWriter(track, 4)
    b.mu.Lock()
    if b.sinks == nil { b.sinks = make(map[*sink]struct{}) }
    b.sinks[s] = struct{}{}
    b.mu.Unlock()
    return func() {
        b.mu.Lock()
        if _, ok := b.sinks[s]; ok {
            delete(b.sinks, s)
            s.stop()
        }
        b.mu.Unlock()
    }
}

// Len returns the number of registered sinks.
func (b *SampleBroadcaster) Len() int {
    b.mu.RLock()
    defer b.mu.RUnlock()
    return len(b.sinks)
}

// WriteSample implements SampleWriter so the broadcaster can stand in for a
// single track in the encoder.
func (b *SampleBroadcaster) WriteSample(sm media.Sample) error {
    b.mu.RLock()
    for s := range b.sinks {
        if !s.enqueue(sm) {
            incSamplesDropped()
        }
    }
    b.mu.RUnlock()
    return nil
}

// Close stops all sink workers and clears the list.
func (b *SampleBroadcaster) Close() {
    b.mu.Lock()
    for s := range b.sinks {
        s.stop()
        delete(b.sinks, s)
    }
    b.mu.Unlock()
}
