//go:build !linux

package capture

import (
    "context"
    "errors"

    "edgeviewer/internal/yuv"
)

// WebcamConfig selects the V4L2 device and mode.
type WebcamConfig struct {
    Device        string
    Width, Height int
    Format        string
    Buffers       uint32
    TimeoutSec    uint32
}

// Webcam is only available on linux.
type Webcam struct{}

// OpenWebcam always fails off linux.
func OpenWebcam(cfg WebcamConfig) (*Webcam, error) {
    return nil, errors.New("webcam capture requires linux (V4L2)")
}

func (s *Webcam) Acquire(ctx context.Context) (*yuv.PlanarImage, func(), error) {
    return nil, nil, ErrSourceClosed
}

func (s *Webcam) Close() error { return nil }
