package yuv

// ToNV21 packs img into a freshly allocated NV21 buffer: the luma plane
// row-major, followed by one (V, U) pair per 2x2 luma block. Row and pixel
// strides of the source planes are honoured, so planar (I420/YV12) and
// semi-planar (NV12/NV21) sources produce identical output for identical
// samples.
func ToNV21(img *PlanarImage) ([]byte, error) {
    return ToNV21Into(nil, img)
}

// ToNV21Into is ToNV21 writing into dst when it has enough capacity. The
// returned slice is always exactly NV21Size(img.Width, img.Height) long.
// On error dst is left untouched and nil is returned.
func ToNV21Into(dst []byte, img *PlanarImage) ([]byte, error) {
    if err := img.Validate(); err != nil {
        return nil, err
    }
    w, h := img.Width, img.Height
    n := NV21Size(w, h)
    if cap(dst) < n {
        dst = make([]byte, n)
    }
    dst = dst[:n]

    // Luma: only the first w bytes of each row, padding is never read.
    y := img.Y
    for row := 0; row < h; row++ {
        off := row * y.RowStride
        copy(dst[row*w:(row+1)*w], y.Data[off:off+w])
    }

    // Chroma: V before U, whatever order the sensor stores them in.
    pos := w * h
    cw, ch := w/2, h/2
    u, v := img.U, img.V
    for row := 0; row < ch; row++ {
        for col := 0; col < cw; col++ {
            dst[pos] = v.Data[v.Offset(row, col)]
            dst[pos+1] = u.Data[u.Offset(row, col)]
            pos += 2
        }
    }
    return dst, nil
}
