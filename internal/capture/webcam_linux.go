//go:build linux

package capture

import (
    "context"
    "fmt"
    "log"
    "strings"
    "sync"

    "github.com/blackjack/webcam"

    "edgeviewer/internal/yuv"
)

// V4L2 fourcc codes of the layouts Webcam understands.
var (
    fourccYU12 = fourcc("YU12")
    fourccYV12 = fourcc("YV12")
    fourccNV12 = fourcc("NV12")
    fourccNV21 = fourcc("NV21")
    fourccYUYV = fourcc("YUYV")
)

// preferredFormats lists formats in the order they are tried when the
// caller does not name one. Planar 4:2:0 first, YUYV as the fallback most
// USB cameras offer.
var preferredFormats = []webcam.PixelFormat{fourccNV21, fourccNV12, fourccYU12, fourccYV12, fourccYUYV}

func fourcc(s string) webcam.PixelFormat {
    return webcam.PixelFormat(uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24)
}

func fourccString(pf webcam.PixelFormat) string {
    return string([]byte{byte(pf), byte(pf >> 8), byte(pf >> 16), byte(pf >> 24)})
}

// WebcamConfig selects the V4L2 device and mode.
type WebcamConfig struct {
    Device        string // e.g. /dev/video0
    Width, Height int
    Format        string // fourcc, empty picks the first supported of NV21, NV12, YU12, YV12, YUYV
    Buffers       uint32 // driver buffers, 0 means 4
    TimeoutSec    uint32 // WaitForFrame timeout, 0 means 5
}

type pendingFrame struct {
    data  []byte
    index uint32
}

// Webcam reads frames from a V4L2 device. A reader goroutine keeps only
// the newest dequeued buffer; older ones are queued back to the driver as
// soon as a newer one arrives.
type Webcam struct {
    cam     *webcam.Webcam
    format  webcam.PixelFormat
    w, h    int // even size handed to the converter
    dw, dh  int // size the driver reported
    timeout uint32

    mu      sync.Mutex
    pending *pendingFrame
    err     error
    ready   chan struct{}

    quit chan struct{}
    done chan struct{}
    once sync.Once
}

// OpenWebcam opens and starts streaming from a V4L2 device.
func OpenWebcam(cfg WebcamConfig) (*Webcam, error) {
    cam, err := webcam.Open(cfg.Device)
    if err != nil {
        return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
    }
    pf, err := pickFormat(cam.GetSupportedFormats(), cfg.Format)
    if err != nil {
        cam.Close()
        return nil, fmt.Errorf("%s: %w", cfg.Device, err)
    }
    got, w, h, err := cam.SetImageFormat(pf, uint32(cfg.Width), uint32(cfg.Height))
    if err != nil {
        cam.Close()
        return nil, fmt.Errorf("%s: set format %s %dx%d: %w", cfg.Device, fourccString(pf), cfg.Width, cfg.Height, err)
    }
    if got != pf {
        cam.Close()
        return nil, fmt.Errorf("%s: driver switched format %s to %s", cfg.Device, fourccString(pf), fourccString(got))
    }
    // 4:2:0 needs even dimensions; odd sizes are cropped by one pixel.
    wi, hi := int(w)&^1, int(h)&^1
    if wi != cfg.Width || hi != cfg.Height {
        log.Printf("webcam %s: requested %dx%d, driver gave %dx%d", cfg.Device, cfg.Width, cfg.Height, w, h)
    }
    bufs := cfg.Buffers
    if bufs == 0 { bufs = 4 }
    if err := cam.SetBufferCount(bufs); err != nil {
        cam.Close()
        return nil, fmt.Errorf("%s: buffer count: %w", cfg.Device, err)
    }
    if err := cam.StartStreaming(); err != nil {
        cam.Close()
        return nil, fmt.Errorf("%s: start streaming: %w", cfg.Device, err)
    }
    timeout := cfg.TimeoutSec
    if timeout == 0 { timeout = 5 }

    s := &Webcam{
        cam:     cam,
        format:  pf,
        w:       wi,
        h:       hi,
        dw:      int(w),
        dh:      int(h),
        timeout: timeout,
        ready:   make(chan struct{}, 1),
        quit:    make(chan struct{}),
        done:    make(chan struct{}),
    }
    log.Printf("webcam %s: streaming %s %dx%d", cfg.Device, fourccString(pf), wi, hi)
    go s.loop()
    return s, nil
}

func pickFormat(supported map[webcam.PixelFormat]string, want string) (webcam.PixelFormat, error) {
    if want != "" {
        want = strings.ToUpper(strings.TrimSpace(want))
        if len(want) != 4 {
            return 0, fmt.Errorf("illegal fourcc %q", want)
        }
        pf := fourcc(want)
        if _, ok := supported[pf]; !ok {
            return 0, fmt.Errorf("format %s not supported (have %v)", want, formatNames(supported))
        }
        if !knownFormat(pf) {
            return 0, fmt.Errorf("format %s cannot be converted", want)
        }
        return pf, nil
    }
    for _, pf := range preferredFormats {
        if _, ok := supported[pf]; ok {
            return pf, nil
        }
    }
    return 0, fmt.Errorf("no usable format (have %v)", formatNames(supported))
}

func knownFormat(pf webcam.PixelFormat) bool {
    for _, k := range preferredFormats {
        if k == pf {
            return true
        }
    }
    return false
}

func formatNames(supported map[webcam.PixelFormat]string) []string {
    out := make([]string, 0, len(supported))
    for pf := range supported {
        out = append(out, fourccString(pf))
    }
    return out
}

func (s *Webcam) loop() {
    defer close(s.done)
    for {
        select {
        case <-s.quit:
            return
        default:
        }
        err := s.cam.WaitForFrame(s.timeout)
        switch err.(type) {
        case nil:
        case *webcam.Timeout:
            continue
        default:
            s.fail(err)
            return
        }
        data, index, err := s.cam.GetFrame()
        if err != nil {
            s.fail(err)
            return
        }
        if len(data) == 0 {
            s.cam.ReleaseFrame(index)
            continue
        }
        s.mu.Lock()
        old := s.pending
        s.pending = &pendingFrame{data: data, index: index}
        s.mu.Unlock()
        if old != nil {
            s.cam.ReleaseFrame(old.index)
        }
        select {
        case s.ready <- struct{}{}:
        default:
        }
    }
}

func (s *Webcam) fail(err error) {
    s.mu.Lock()
    s.err = err
    s.mu.Unlock()
    select {
    case s.ready <- struct{}{}:
    default:
    }
}

// Acquire returns the newest frame dequeued from the driver. A reader
// failure is reported once no frame is left.
func (s *Webcam) Acquire(ctx context.Context) (*yuv.PlanarImage, func(), error) {
    for {
        s.mu.Lock()
        f, err := s.pending, s.err
        s.pending = nil
        s.mu.Unlock()
        if f != nil {
            img, release := s.wrap(f)
            return img, release, nil
        }
        if err != nil {
            return nil, nil, fmt.Errorf("webcam: %w", err)
        }
        select {
        case <-ctx.Done():
            return nil, nil, ctx.Err()
        case <-s.quit:
            return nil, nil, ErrSourceClosed
        case <-s.ready:
        }
    }
}

func (s *Webcam) wrap(f *pendingFrame) (*yuv.PlanarImage, func()) {
    var once sync.Once
    release := func() { once.Do(func() { s.cam.ReleaseFrame(f.index) }) }
    img, copied, err := decodeFrame(s.format, f.data, s.w, s.h, s.dw, s.dh)
    if copied {
        // The frame was repacked into its own buffer, the driver buffer
        // can go back right away.
        release()
        release = func() {}
    }
    if err != nil {
        // Truncated buffer: pass on an empty image so the frame is counted
        // as invalid and dropped.
        release()
        return &yuv.PlanarImage{Width: s.w, Height: s.h}, func() {}
    }
    return img, release
}

// decodeFrame wraps a dequeued buffer as a w x h image. The row stride is
// derived from the buffer length and the driver size dw x dh, since drivers
// may pad rows; w and h may be one less than dw and dh when the driver
// size is odd. copied reports whether data is no longer referenced.
func decodeFrame(pf webcam.PixelFormat, data []byte, w, h, dw, dh int) (img *yuv.PlanarImage, copied bool, err error) {
    if dh <= 0 { return nil, false, fmt.Errorf("%w: driver height %d", yuv.ErrInvalidImageLayout, dh) }
    // Every 4:2:0 layout stores stride bytes per luma row plus, in total,
    // stride bytes per chroma row pair.
    layout := yuv.BufferLayout{Stride: len(data) / (dh + (dh+1)/2), Rows: dh}
    switch pf {
    case fourccYU12:
        layout.Stride &^= 1
        img, err = yuv.NewI420(data, w, h, layout)
    case fourccYV12:
        layout.Stride &^= 1
        img, err = yuv.NewYV12(data, w, h, layout)
    case fourccNV12:
        img, err = yuv.NewNV12(data, w, h, layout)
    case fourccNV21:
        img, err = yuv.NewNV21(data, w, h, layout)
    case fourccYUYV:
        img, err = yuv.YUYVToPlanar(data, w, h, len(data)/dh)
        copied = true
    default:
        err = fmt.Errorf("unsupported format %s", fourccString(pf))
    }
    return img, copied, err
}

// Close stops the reader goroutine and shuts the device down.
func (s *Webcam) Close() error {
    var err error
    s.once.Do(func() {
        close(s.quit)
        <-s.done
        s.mu.Lock()
        if s.pending != nil {
            s.cam.ReleaseFrame(s.pending.index)
            s.pending = nil
        }
        s.mu.Unlock()
        s.cam.StopStreaming()
        err = s.cam.Close()
    })
    return err
}
