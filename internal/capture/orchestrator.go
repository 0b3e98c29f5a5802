package capture

import (
    "context"
    "errors"
    "fmt"
    "log"
    "sync"
    "sync/atomic"

    "github.com/google/uuid"

    "edgeviewer/internal/process"
    "edgeviewer/internal/yuv"
)

// Config wires an Orchestrator. Open is called once per session, so a
// stopped capture can be started again with a fresh device handle.
type Config struct {
    Open      func() (Source, error)
    Transform process.Transform
    Sink      Sink
}

// Orchestrator runs at most one capture session at a time.
type Orchestrator struct {
    cfg Config
    c   counters

    mu      sync.Mutex
    current *Session
}

// New returns an orchestrator; nothing runs until Start.
func New(cfg Config) (*Orchestrator, error) {
    if cfg.Open == nil || cfg.Transform == nil || cfg.Sink == nil {
        return nil, errors.New("capture: open, transform and sink are required")
    }
    return &Orchestrator{cfg: cfg}, nil
}

// Session is the capability handed out by Start. Once stopped it is
// invalid for good: a frame still in flight when Stop is called is
// finished but never delivered.
type Session struct {
    id     string
    valid  atomic.Bool
    cancel context.CancelFunc
    done   chan struct{}
    err    error
    once   sync.Once
}

// ID identifies the session in logs and stats.
func (s *Session) ID() string { return s.id }

// Valid reports whether the session may still deliver frames.
func (s *Session) Valid() bool { return s.valid.Load() }

// Done is closed when the capture goroutine has exited and the source has
// been closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the session, if it ended on its own.
// It is only meaningful after Done is closed.
func (s *Session) Err() error { return s.err }

// Stop invalidates the session and waits for the capture goroutine to
// finish the frame it is working on. Safe to call more than once and from
// any goroutine.
func (s *Session) Stop() {
    s.once.Do(func() {
        s.valid.Store(false)
        s.cancel()
    })
    <-s.done
}

// Start opens the source and begins a new session. It fails if a previous
// session is still running.
func (o *Orchestrator) Start(ctx context.Context) (*Session, error) {
    o.mu.Lock()
    defer o.mu.Unlock()
    if o.current != nil {
        select {
        case <-o.current.done:
        default:
            return nil, fmt.Errorf("capture: session %s still running", o.current.id)
        }
    }
    src, err := o.cfg.Open()
    if err != nil {
        return nil, fmt.Errorf("capture: open source: %w", err)
    }
    ctx, cancel := context.WithCancel(ctx)
    s := &Session{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
    s.valid.Store(true)
    o.current = s
    go o.run(ctx, s, src)
    log.Printf("capture session %s: started", s.id)
    return s, nil
}

func (o *Orchestrator) run(ctx context.Context, s *Session, src Source) {
    defer close(s.done)
    defer func() {
        s.valid.Store(false)
        if err := src.Close(); err != nil {
            log.Printf("capture session %s: closing source: %v", s.id, err)
        }
        if s.err != nil {
            log.Printf("capture session %s: ended: %v", s.id, s.err)
        } else {
            log.Printf("capture session %s: stopped", s.id)
        }
    }()

    var buf []byte
    for {
        img, release, err := src.Acquire(ctx)
        if err != nil {
            if ctx.Err() == nil {
                s.err = err
            }
            return
        }
        o.c.framesIn.Add(1)

        out, w, h, ok := o.process(s, img, release, &buf)
        if !ok {
            continue
        }
        if !s.Valid() {
            o.c.framesStale.Add(1)
            return
        }
        o.cfg.Sink.UpdateFrame(out, w, h)
        o.c.framesDeposited.Add(1)
    }
}

// process converts and transforms one frame. The source frame is released
// as soon as it has been packed.
func (o *Orchestrator) process(s *Session, img *yuv.PlanarImage, release func(), buf *[]byte) ([]byte, int, int, bool) {
    nv21, err := yuv.ToNV21Into(*buf, img)
    w, h := img.Width, img.Height
    release()
    if err != nil {
        if n := o.c.framesInvalid.Add(1); logEvery(n) {
            log.Printf("capture session %s: dropping frame (%d so far): %v", s.id, n, err)
        }
        return nil, 0, 0, false
    }
    *buf = nv21
    o.c.framesConverted.Add(1)

    out, err := o.cfg.Transform.Process(nv21, w, h)
    if err == nil {
        err = process.CheckRGBA(out, w, h)
    }
    if err != nil {
        if n := o.c.framesFailed.Add(1); logEvery(n) {
            log.Printf("capture session %s: transform failed (%d so far): %v", s.id, n, err)
        }
        return nil, 0, 0, false
    }
    return out, w, h, true
}

// Stop stops the current session, if any.
func (o *Orchestrator) Stop() {
    o.mu.Lock()
    s := o.current
    o.mu.Unlock()
    if s != nil {
        s.Stop()
    }
}

// Counters returns a snapshot of the capture counters.
func (o *Orchestrator) Counters() map[string]uint64 { return o.c.snapshot() }
