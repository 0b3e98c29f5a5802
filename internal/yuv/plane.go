// Package yuv holds the pixel layout helpers used between the capture
// sources and the frame transforms: strided 4:2:0 planes, NV21 packing and
// the few colour conversions the viewer needs.
package yuv

import (
    "errors"
    "fmt"
)

// ErrInvalidImageLayout is returned when an image's dimensions or plane
// buffers cannot describe a complete 4:2:0 frame.
var ErrInvalidImageLayout = errors.New("invalid image layout")

// Plane is one strided sample grid. RowStride is the distance in bytes
// between the starts of two rows, PixelStride the distance between two
// samples of the same row (1 for planar, 2 for semi-planar chroma).
type Plane struct {
    Data        []byte
    RowStride   int
    PixelStride int
}

// Offset returns the byte offset of sample (row, col).
func (p Plane) Offset(row, col int) int {
    return row*p.RowStride + col*p.pixelStride()
}

// At returns the sample at (row, col). The caller is expected to have
// validated the plane for the grid being read.
func (p Plane) At(row, col int) byte {
    return p.Data[p.Offset(row, col)]
}

func (p Plane) pixelStride() int {
    if p.PixelStride <= 0 { return 1 }
    return p.PixelStride
}

// check verifies that a rows x cols grid can be read without leaving Data.
func (p Plane) check(name string, rows, cols int) error {
    if p.RowStride <= 0 {
        return fmt.Errorf("%w: %s row stride %d", ErrInvalidImageLayout, name, p.RowStride)
    }
    if p.PixelStride < 0 {
        return fmt.Errorf("%w: %s pixel stride %d", ErrInvalidImageLayout, name, p.PixelStride)
    }
    if span := (cols-1)*p.pixelStride() + 1; p.RowStride < span {
        return fmt.Errorf("%w: %s row stride %d shorter than row span %d", ErrInvalidImageLayout, name, p.RowStride, span)
    }
    if need := p.Offset(rows-1, cols-1) + 1; len(p.Data) < need {
        return fmt.Errorf("%w: %s plane has %d bytes, need %d", ErrInvalidImageLayout, name, len(p.Data), need)
    }
    return nil
}

// PlanarImage is a YUV 4:2:0 frame as delivered by a capture source. The
// U and V planes are half resolution in both dimensions. The planes usually
// alias driver memory, so a PlanarImage must not be retained after the
// source's release func has been called.
type PlanarImage struct {
    Width, Height int
    Y, U, V       Plane
}

// Validate reports whether the image can be converted without reading out
// of bounds. The returned error wraps ErrInvalidImageLayout.
func (img *PlanarImage) Validate() error {
    if img == nil {
        return fmt.Errorf("%w: nil image", ErrInvalidImageLayout)
    }
    w, h := img.Width, img.Height
    if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
        return fmt.Errorf("%w: dimensions %dx%d must be even and positive", ErrInvalidImageLayout, w, h)
    }
    if img.Y.PixelStride > 1 {
        return fmt.Errorf("%w: luma pixel stride %d", ErrInvalidImageLayout, img.Y.PixelStride)
    }
    if err := img.Y.check("Y", h, w); err != nil { return err }
    if err := img.U.check("U", h/2, w/2); err != nil { return err }
    return img.V.check("V", h/2, w/2)
}

// NV21Size is the length of an NV21 buffer for a w x h frame.
func NV21Size(w, h int) int { return w*h + w*h/2 }

// BufferLayout describes how a driver packed a contiguous frame buffer.
// Drivers may pad rows (Stride > Width) and, when a frame is cropped to
// even dimensions, store more luma rows than are used (Rows > Height).
type BufferLayout struct {
    Stride int // luma bytes per row; 0 means the image width
    Rows   int // luma rows stored before the chroma planes; 0 means the image height
}

func (l BufferLayout) resolve(w, h int) BufferLayout {
    if l.Stride <= 0 { l.Stride = w }
    if l.Rows <= 0 { l.Rows = h }
    return l
}

// NewI420 wraps a contiguous I420 (V4L2 YU12) buffer: Y, then U, then V.
// Chroma rows are half the luma stride, as V4L2 lays them out.
func NewI420(buf []byte, w, h int, l BufferLayout) (*PlanarImage, error) {
    return newThreePlane(buf, w, h, l, false)
}

// NewYV12 wraps a contiguous YV12 buffer, which stores V before U.
func NewYV12(buf []byte, w, h int, l BufferLayout) (*PlanarImage, error) {
    return newThreePlane(buf, w, h, l, true)
}

func newThreePlane(buf []byte, w, h int, l BufferLayout, vFirst bool) (*PlanarImage, error) {
    l = l.resolve(w, h)
    cStride, cRows := l.Stride/2, (l.Rows+1)/2
    ySize, cSize := l.Stride*l.Rows, cStride*cRows
    if err := checkContiguous(buf, w, h, l, ySize+2*cSize); err != nil { return nil, err }
    first := Plane{Data: buf[ySize : ySize+cSize], RowStride: cStride, PixelStride: 1}
    second := Plane{Data: buf[ySize+cSize : ySize+2*cSize], RowStride: cStride, PixelStride: 1}
    img := &PlanarImage{Width: w, Height: h, Y: Plane{Data: buf[:ySize], RowStride: l.Stride, PixelStride: 1}}
    if vFirst {
        img.V, img.U = first, second
    } else {
        img.U, img.V = first, second
    }
    return img, nil
}

// NewNV12 wraps a semi-planar buffer whose chroma pairs are ordered U, V.
func NewNV12(buf []byte, w, h int, l BufferLayout) (*PlanarImage, error) {
    return newSemiPlanar(buf, w, h, l, false)
}

// NewNV21 wraps a semi-planar buffer whose chroma pairs are ordered V, U.
func NewNV21(buf []byte, w, h int, l BufferLayout) (*PlanarImage, error) {
    return newSemiPlanar(buf, w, h, l, true)
}

func newSemiPlanar(buf []byte, w, h int, l BufferLayout, vFirst bool) (*PlanarImage, error) {
    l = l.resolve(w, h)
    ySize := l.Stride * l.Rows
    cSize := l.Stride * ((l.Rows + 1) / 2)
    if err := checkContiguous(buf, w, h, l, ySize+cSize); err != nil { return nil, err }
    chroma := buf[ySize : ySize+cSize]
    // Both chroma planes view the same interleaved bytes, one byte apart.
    a := Plane{Data: chroma, RowStride: l.Stride, PixelStride: 2}
    b := Plane{Data: chroma[1:], RowStride: l.Stride, PixelStride: 2}
    img := &PlanarImage{Width: w, Height: h, Y: Plane{Data: buf[:ySize], RowStride: l.Stride, PixelStride: 1}}
    if vFirst {
        img.V, img.U = a, b
    } else {
        img.U, img.V = a, b
    }
    return img, nil
}

func checkContiguous(buf []byte, w, h int, l BufferLayout, need int) error {
    if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
        return fmt.Errorf("%w: dimensions %dx%d must be even and positive", ErrInvalidImageLayout, w, h)
    }
    if l.Stride < w || l.Rows < h {
        return fmt.Errorf("%w: layout stride %d rows %d too small for %dx%d", ErrInvalidImageLayout, l.Stride, l.Rows, w, h)
    }
    if len(buf) < need {
        return fmt.Errorf("%w: buffer has %d bytes, need %d", ErrInvalidImageLayout, len(buf), need)
    }
    return nil
}
