package yuv

import "fmt"

// YUYVToPlanar converts packed YUYV 4:2:2 (Y0 U0 Y1 V0, two bytes per
// pixel) into a tightly packed I420 PlanarImage. Chroma is subsampled
// vertically by averaging each pair of rows. stride is the number of bytes
// per source row; zero means w*2.
func YUYVToPlanar(src []byte, w, h, stride int) (*PlanarImage, error) {
    if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
        return nil, fmt.Errorf("%w: dimensions %dx%d must be even and positive", ErrInvalidImageLayout, w, h)
    }
    if stride == 0 { stride = w * 2 }
    if stride < w*2 {
        return nil, fmt.Errorf("%w: yuyv stride %d shorter than row %d", ErrInvalidImageLayout, stride, w*2)
    }
    if need := (h-1)*stride + w*2; len(src) < need {
        return nil, fmt.Errorf("%w: yuyv buffer has %d bytes, need %d", ErrInvalidImageLayout, len(src), need)
    }

    halfW, halfH := w/2, h/2
    buf := make([]byte, w*h+2*halfW*halfH)
    yp := buf[:w*h]
    up := buf[w*h : w*h+halfW*halfH]
    vp := buf[w*h+halfW*halfH:]

    for row := 0; row < h; row += 2 {
        top := src[row*stride:]
        bottom := src[(row+1)*stride:]
        for cx := 0; cx < halfW; cx++ {
            i := cx * 4
            yp[row*w+cx*2] = top[i]
            yp[row*w+cx*2+1] = top[i+2]
            yp[(row+1)*w+cx*2] = bottom[i]
            yp[(row+1)*w+cx*2+1] = bottom[i+2]
            c := (row/2)*halfW + cx
            up[c] = byte((int(top[i+1]) + int(bottom[i+1])) >> 1)
            vp[c] = byte((int(top[i+3]) + int(bottom[i+3])) >> 1)
        }
    }
    return &PlanarImage{
        Width:  w,
        Height: h,
        Y:      Plane{Data: yp, RowStride: w, PixelStride: 1},
        U:      Plane{Data: up, RowStride: halfW, PixelStride: 1},
        V:      Plane{Data: vp, RowStride: halfW, PixelStride: 1},
    }, nil
}
