// Package process holds the frame transforms applied between NV21
// conversion and display. Every transform takes an NV21 frame and returns
// packed RGBA8, row-major, without padding.
package process

import (
    "errors"
    "fmt"
    "strings"

    "edgeviewer/internal/yuv"
)

// ErrFormatMismatch is returned when a transform's output is not a
// w x h RGBA8 buffer.
var ErrFormatMismatch = errors.New("transform output is not RGBA8")

// Transform turns an NV21 frame into an RGBA8 frame. Implementations must
// not retain nv21 after returning and must return a buffer the caller may
// hand to another goroutine.
type Transform interface {
    Process(nv21 []byte, width, height int) ([]byte, error)
}

// Func adapts a function to Transform.
type Func func(nv21 []byte, width, height int) ([]byte, error)

func (f Func) Process(nv21 []byte, width, height int) ([]byte, error) { return f(nv21, width, height) }

// CheckRGBA verifies the RGBA8 output contract for a w x h frame.
func CheckRGBA(data []byte, width, height int) error {
    if width <= 0 || height <= 0 {
        return fmt.Errorf("%w: dimensions %dx%d", ErrFormatMismatch, width, height)
    }
    if want := width * height * 4; len(data) != want {
        return fmt.Errorf("%w: %d bytes for %dx%d, want %d", ErrFormatMismatch, len(data), width, height, want)
    }
    return nil
}

// ByName returns the transform registered under name: "edges" or "color".
func ByName(name string) (Transform, error) {
    switch strings.ToLower(strings.TrimSpace(name)) {
    case "", "edges", "edge":
        return EdgeDetector{}, nil
    case "color", "colour", "rgba":
        return Colorize{}, nil
    }
    return nil, fmt.Errorf("unknown transform %q (want edges or color)", name)
}

// Names lists the accepted transform names.
func Names() []string { return []string{"edges", "color"} }

// EdgeDetector renders a grey edge map from the luma plane: each interior
// pixel is min(255, |Y(x-1)-Y(x+1)| + |Y(y-1)-Y(y+1)|) with opaque alpha.
// The one-pixel border is left fully transparent black.
type EdgeDetector struct{}

func (EdgeDetector) Process(nv21 []byte, width, height int) ([]byte, error) {
    if width <= 0 || height <= 0 || len(nv21) < width*height {
        return nil, fmt.Errorf("%w: luma for %dx%d needs %d bytes, got %d", yuv.ErrInvalidImageLayout, width, height, width*height, len(nv21))
    }
    out := make([]byte, width*height*4)
    // Luma samples are read as signed bytes, so a step across 128 reads as
    // a strong edge.
    for y := 1; y < height-1; y++ {
        for x := 1; x < width-1; x++ {
            idx := y*width + x
            gx := int(int8(nv21[idx-1])) - int(int8(nv21[idx+1]))
            gy := int(int8(nv21[idx-width])) - int(int8(nv21[idx+width]))
            mag := abs(gx) + abs(gy)
            if mag > 255 { mag = 255 }
            o := idx * 4
            out[o+0] = byte(mag)
            out[o+1] = byte(mag)
            out[o+2] = byte(mag)
            out[o+3] = 255
        }
    }
    return out, nil
}

func abs(v int) int {
    if v < 0 { return -v }
    return v
}

// Colorize converts NV21 to RGBA without further processing.
type Colorize struct{}

func (Colorize) Process(nv21 []byte, width, height int) ([]byte, error) {
    return yuv.NV21ToRGBA(nv21, width, height, nil)
}
