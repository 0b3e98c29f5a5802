package yuv

import "fmt"

// NV21ToRGBA converts an NV21 buffer to packed RGBA8 using an integer
// BT.601 studio-range approximation. dst is reused when large enough.
func NV21ToRGBA(nv21 []byte, w, h int, dst []byte) ([]byte, error) {
    if w <= 0 || h <= 0 || w%2 != 0 || h%2 != 0 {
        return nil, fmt.Errorf("%w: dimensions %dx%d must be even and positive", ErrInvalidImageLayout, w, h)
    }
    if len(nv21) < NV21Size(w, h) {
        return nil, fmt.Errorf("%w: nv21 buffer has %d bytes, need %d", ErrInvalidImageLayout, len(nv21), NV21Size(w, h))
    }
    n := w * h * 4
    if cap(dst) < n { dst = make([]byte, n) }
    dst = dst[:n]

    chroma := nv21[w*h:]
    for yy := 0; yy < h; yy++ {
        crow := (yy / 2) * w
        for xx := 0; xx < w; xx++ {
            ci := crow + (xx/2)*2
            c := int(nv21[yy*w+xx]) - 16
            e := int(chroma[ci]) - 128
            d := int(chroma[ci+1]) - 128
            if c < 0 { c = 0 }
            off := (yy*w + xx) * 4
            dst[off+0] = clamp8((298*c + 409*e + 128) >> 8)
            dst[off+1] = clamp8((298*c - 100*d - 208*e + 128) >> 8)
            dst[off+2] = clamp8((298*c + 516*d + 128) >> 8)
            dst[off+3] = 255
        }
    }
    return dst, nil
}

func clamp8(x int) byte {
    if x < 0 { return 0 }
    if x > 255 { return 255 }
    return byte(x)
}
