package stream

import (
    "bufio"
    "errors"
    "fmt"
    "io"
    "log"
    "os/exec"
    "strconv"
    "sync"
    "time"

    "github.com/pion/webrtc/v3/pkg/media"

    "edgeviewer/internal/handoff"
)

// Frames is where the encoder reads RGBA frames from; *handoff.Slot
// satisfies it.
type Frames interface {
    TakeLatest() (handoff.Frame, bool)
}

// EncoderConfig defines how to produce H264 from the frame slot.
type EncoderConfig struct {
    Width, Height int
    FPS           int
    Frames        Frames
    Track         SampleWriter
    // FFmpeg is the encoder binary; "ffmpeg" on PATH when empty.
    FFmpeg        string
}

func (c *EncoderConfig) defaults() {
    if c.FPS <= 0 { c.FPS = 30 }
    if c.Width <= 0 { c.Width = 640 }
    if c.Height <= 0 { c.Height = 480 }
    if c.FFmpeg == "" { c.FFmpeg = "ffmpeg" }
}

// H264Encoder runs ffmpeg: raw RGBA frames in on stdin, AnnexB H264 out
// on stdout, one media.Sample per access unit.
type H264Encoder struct {
    cfg    EncoderConfig
    cmd    *exec.Cmd
    stdin  io.WriteCloser
    stdout io.ReadCloser
    quit   chan struct{}
    wg     sync.WaitGroup
    once   sync.Once
}

// StartH264Encoder starts ffmpeg and the goroutines feeding and draining it.
func StartH264Encoder(cfg EncoderConfig) (*H264Encoder, error) {
    cfg.defaults()
    if cfg.Frames == nil || cfg.Track == nil {
        return nil, errors.New("stream: frames and track are required")
    }
    e := &H264Encoder{cfg: cfg, quit: make(chan struct{})}
    if err := e.start(); err != nil { return nil, err }
    return e, nil
}

func ffmpegArgs(cfg EncoderConfig) []string {
    return []string{
        "-hide_banner", "-loglevel", "error",
        "-f", "rawvideo",
        "-pix_fmt", "rgba",
        "-s:v", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
        "-r", strconv.Itoa(cfg.FPS),
        "-i", "-",
        "-an",
        "-c:v", "libx264",
        "-preset", "veryfast",
        "-tune", "zerolatency",
        "-profile:v", "baseline",
        "-g", strconv.Itoa(cfg.FPS * 2),
        "-x264-params", "aud=1",
        "-pix_fmt", "yuv420p",
        "-f", "h264",
        "-",
    }
}

func (e *H264Encoder) start() error {
    cmd := exec.Command(e.cfg.FFmpeg, ffmpegArgs(e.cfg)...)
    stdin, err := cmd.StdinPipe()
    if err != nil { return err }
    stdout, err := cmd.StdoutPipe()
    if err != nil { return err }
    cmd.Stderr = io.Discard
    if err := cmd.Start(); err != nil {
        return fmt.Errorf("stream: start %s: %w", e.cfg.FFmpeg, err)
    }
    e.cmd, e.stdin, e.stdout = cmd, stdin, stdout
    log.Printf("stream: ffmpeg H264 encoder started (%dx%d@%d)", e.cfg.Width, e.cfg.Height, e.cfg.FPS)

    e.wg.Add(2)
    go func() {
        defer e.wg.Done()
        if err := pumpFrames(e.cfg, e.stdin, e.quit); err != nil {
            log.Printf("stream: feeding encoder: %v", err)
        }
    }()
    go func() {
        defer e.wg.Done()
        if err := writeSamples(e.stdout, e.cfg.Track, time.Second/time.Duration(e.cfg.FPS)); err != nil {
            log.Printf("stream: reading encoder output: %v", err)
        }
    }()
    return nil
}

// Stop kills ffmpeg and waits for both goroutines.
func (e *H264Encoder) Stop() {
    e.once.Do(func() {
        close(e.quit)
        _ = e.stdin.Close()
        if e.cmd != nil && e.cmd.Process != nil {
            _ = e.cmd.Process.Kill()
            _ = e.cmd.Wait()
        }
        e.wg.Wait()
        log.Printf("stream: ffmpeg H264 encoder stopped")
    })
}

// pumpFrames writes one frame per tick. The latest slot frame is sent
// again when nothing new arrived, and black is sent until the first frame
// shows up. Frames of another size are scaled to the encoder size.
func pumpFrames(cfg EncoderConfig, w io.Writer, quit <-chan struct{}) error {
    ticker := time.NewTicker(time.Second / time.Duration(cfg.FPS))
    defer ticker.Stop()
    size := cfg.Width * cfg.Height * 4
    out := make([]byte, size)
    var lastSeq uint64
    for {
        select {
        case <-quit:
            return nil
        case <-ticker.C:
        }
        incFramesIn()
        f, ok := cfg.Frames.TakeLatest()
        switch {
        case !ok:
            incFramesRepeated()
        case f.Seq == lastSeq:
            incFramesRepeated()
        case f.Width <= 0 || f.Height <= 0 || len(f.Data) != f.Width*f.Height*4:
            incFramesSkipped()
        case f.Width != cfg.Width || f.Height != cfg.Height:
            ScaleRGBA(f.Data, f.Width, f.Height, out, cfg.Width, cfg.Height)
            incFramesScaled()
            lastSeq = f.Seq
        default:
            copy(out, f.Data)
            lastSeq = f.Seq
        }
        if _, err := w.Write(out); err != nil {
            select {
            case <-quit:
                return nil
            default:
                return err
            }
        }
    }
}

// writeSamples splits the AnnexB stream into access units and writes each
// one as a sample. It returns nil when the stream ends.
func writeSamples(r io.Reader, track SampleWriter, dur time.Duration) error {
    au := newAccessUnitReader(bufio.NewReaderSize(r, 1<<16))
    for {
        data, err := au.Next()
        if errors.Is(err, io.EOF) { return nil }
        if err != nil { return err }
        if err := track.WriteSample(media.Sample{Data: data, Duration: dur}); err != nil {
            return err
        }
        incSamplesSent(1)
        if containsIDR(data) { incKeyframes() }
    }
}
