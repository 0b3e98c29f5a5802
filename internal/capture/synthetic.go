package capture

import (
    "context"
    "fmt"
    "strings"
    "sync"
    "time"

    "edgeviewer/internal/yuv"
)

// Layout is the memory layout a Synthetic source emits.
type Layout int

const (
    LayoutI420 Layout = iota // three planes, U before V
    LayoutYV12               // three planes, V before U
    LayoutNV12               // luma + interleaved U/V, pixel stride 2
    LayoutNV21               // luma + interleaved V/U, pixel stride 2
)

// ParseLayout maps a V4L2-style name to a Layout.
func ParseLayout(s string) (Layout, error) {
    switch strings.ToUpper(strings.TrimSpace(s)) {
    case "", "I420", "YU12":
        return LayoutI420, nil
    case "YV12":
        return LayoutYV12, nil
    case "NV12":
        return LayoutNV12, nil
    case "NV21":
        return LayoutNV21, nil
    }
    return 0, fmt.Errorf("unknown layout %q", s)
}

// SyntheticConfig describes a generated test stream.
type SyntheticConfig struct {
    Width, Height int
    FPS           int    // 0 delivers frames as fast as they are acquired
    Layout        Layout
    RowPadding    int    // extra bytes at the end of every row
}

// Synthetic generates a moving gradient pattern in the requested layout.
// Only one frame is in flight: the buffers are reused once released.
type Synthetic struct {
    cfg    SyntheticConfig
    t0     time.Time
    ticker *time.Ticker

    y, c1, c2 []byte
    yStride   int
    cStride   int

    mu     sync.Mutex
    busy   bool
    closed chan struct{}
    once   sync.Once
}

// NewSynthetic returns a generated source; width and height must be even.
func NewSynthetic(cfg SyntheticConfig) (*Synthetic, error) {
    if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width%2 != 0 || cfg.Height%2 != 0 {
        return nil, fmt.Errorf("%w: synthetic size %dx%d", yuv.ErrInvalidImageLayout, cfg.Width, cfg.Height)
    }
    if cfg.RowPadding < 0 { cfg.RowPadding = 0 }
    s := &Synthetic{cfg: cfg, t0: time.Now(), closed: make(chan struct{})}
    s.yStride = cfg.Width + cfg.RowPadding
    ch := cfg.Height / 2
    s.y = make([]byte, s.yStride*cfg.Height)
    switch cfg.Layout {
    case LayoutNV12, LayoutNV21:
        s.cStride = cfg.Width + cfg.RowPadding
        s.c1 = make([]byte, s.cStride*ch)
    default:
        s.cStride = cfg.Width/2 + cfg.RowPadding
        s.c1 = make([]byte, s.cStride*ch)
        s.c2 = make([]byte, s.cStride*ch)
    }
    if cfg.FPS > 0 {
        s.ticker = time.NewTicker(time.Second / time.Duration(cfg.FPS))
    }
    return s, nil
}

// Acquire waits for the next tick and renders a frame.
func (s *Synthetic) Acquire(ctx context.Context) (*yuv.PlanarImage, func(), error) {
    if s.ticker != nil {
        select {
        case <-ctx.Done():
            return nil, nil, ctx.Err()
        case <-s.closed:
            return nil, nil, ErrSourceClosed
        case <-s.ticker.C:
        }
    } else {
        select {
        case <-ctx.Done():
            return nil, nil, ctx.Err()
        case <-s.closed:
            return nil, nil, ErrSourceClosed
        default:
        }
    }

    s.mu.Lock()
    if s.busy {
        s.mu.Unlock()
        return nil, nil, fmt.Errorf("synthetic: previous frame not released")
    }
    s.busy = true
    s.mu.Unlock()

    s.render(time.Since(s.t0).Seconds())
    var once sync.Once
    release := func() {
        once.Do(func() {
            s.mu.Lock()
            s.busy = false
            s.mu.Unlock()
        })
    }
    return s.image(), release, nil
}

func (s *Synthetic) render(now float64) {
    w, h := s.cfg.Width, s.cfg.Height
    shift := int(now * 120)
    for row := 0; row < h; row++ {
        line := s.y[row*s.yStride:]
        for x := 0; x < w; x++ {
            line[x] = byte((x + row + shift) % 256)
        }
    }
    cw, ch := w/2, h/2
    for row := 0; row < ch; row++ {
        for col := 0; col < cw; col++ {
            u := byte((col*2 + int(now*80)) % 256)
            v := byte((row*2 + int(now*100)) % 256)
            switch s.cfg.Layout {
            case LayoutNV12:
                s.c1[row*s.cStride+2*col] = u
                s.c1[row*s.cStride+2*col+1] = v
            case LayoutNV21:
                s.c1[row*s.cStride+2*col] = v
                s.c1[row*s.cStride+2*col+1] = u
            case LayoutYV12:
                s.c1[row*s.cStride+col] = v
                s.c2[row*s.cStride+col] = u
            default:
                s.c1[row*s.cStride+col] = u
                s.c2[row*s.cStride+col] = v
            }
        }
    }
}

func (s *Synthetic) image() *yuv.PlanarImage {
    img := &yuv.PlanarImage{
        Width:  s.cfg.Width,
        Height: s.cfg.Height,
        Y:      yuv.Plane{Data: s.y, RowStride: s.yStride, PixelStride: 1},
    }
    first := yuv.Plane{Data: s.c1, RowStride: s.cStride, PixelStride: 1}
    second := yuv.Plane{Data: s.c2, RowStride: s.cStride, PixelStride: 1}
    switch s.cfg.Layout {
    case LayoutNV12:
        img.U = yuv.Plane{Data: s.c1, RowStride: s.cStride, PixelStride: 2}
        img.V = yuv.Plane{Data: s.c1[1:], RowStride: s.cStride, PixelStride: 2}
    case LayoutNV21:
        img.V = yuv.Plane{Data: s.c1, RowStride: s.cStride, PixelStride: 2}
        img.U = yuv.Plane{Data: s.c1[1:], RowStride: s.cStride, PixelStride: 2}
    case LayoutYV12:
        img.V, img.U = first, second
    default:
        img.U, img.V = first, second
    }
    return img
}

// Close stops the source; pending and future Acquire calls return
// ErrSourceClosed.
func (s *Synthetic) Close() error {
    s.once.Do(func() {
        close(s.closed)
        if s.ticker != nil {
            s.ticker.Stop()
        }
    })
    return nil
}
