package stream

import (
    "errors"
    "sync"
)

// ErrPreviewClosed is returned by Attach after Close.
var ErrPreviewClosed = errors.New("stream: preview closed")

// Stopper is a running encoder.
type Stopper interface{ Stop() }

// StartFunc starts an encoder writing to cfg.Track.
type StartFunc func(cfg EncoderConfig) (Stopper, error)

// Preview shares one encoder between all remote viewers. The encoder is
// started when the first track attaches and stopped when the last one
// detaches.
type Preview struct {
    cfg   EncoderConfig
    start StartFunc
    b     *SampleBroadcaster

    mu     sync.Mutex
    enc    Stopper
    users  int
    closed bool
}

// NewPreview returns a preview encoding frames per cfg; cfg.Track is
// replaced by the preview's broadcaster. A nil start uses StartH264Encoder.
func NewPreview(cfg EncoderConfig, start StartFunc) *Preview {
    if start == nil {
        start = func(c EncoderConfig) (Stopper, error) { return StartH264Encoder(c) }
    }
    p := &Preview{cfg: cfg, start: start, b: NewSampleBroadcaster()}
    p.cfg.Track = p.b
    return p
}

// Attach adds track to the fan-out, starting the encoder if needed.
// detach is idempotent.
func (p *Preview) Attach(track SampleWriter) (detach func(), err error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.closed { return nil, ErrPreviewClosed }
    if p.enc == nil {
        enc, err := p.start(p.cfg)
        if err != nil { return nil, err }
        p.enc = enc
    }
    p.users++
    remove := p.b.Add(track)
    var once sync.Once
    return func() { once.Do(func() { p.detach(remove) }) }, nil
}

func (p *Preview) detach(remove func()) {
    remove()
    p.mu.Lock()
    var enc Stopper
    if p.users > 0 {
        p.users--
        if p.users == 0 { enc, p.enc = p.enc, nil }
    }
    p.mu.Unlock()
    if enc != nil { enc.Stop() }
}

// Viewers returns the number of attached tracks.
func (p *Preview) Viewers() int {
    p.mu.Lock()
    defer p.mu.Unlock()
    return p.users
}

// Close stops the encoder and drops every track. Later Attach calls fail
// with ErrPreviewClosed.
func (p *Preview) Close() {
    p.mu.Lock()
    enc := p.enc
    p.enc, p.users, p.closed = nil, 0, true
    p.mu.Unlock()
    if enc != nil { enc.Stop() }
    p.b.Close()
}
