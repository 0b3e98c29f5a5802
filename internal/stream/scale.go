package stream

// ScaleRGBA scales an RGBA frame from (sw,sh) to (dw,dh) by nearest
// neighbour into dst, which must hold dw*dh*4 bytes.
func ScaleRGBA(src []byte, sw, sh int, dst []byte, dw, dh int) {
    if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 { return }
    if len(src) < sw*sh*4 || len(dst) < dw*dh*4 { return }
    for y := 0; y < dh; y++ {
        sy := y * sh / dh
        for x := 0; x < dw; x++ {
            sx := x * sw / dw
            copy(dst[(y*dw+x)*4:(y*dw+x)*4+4], src[(sy*sw+sx)*4:])
        }
    }
}
