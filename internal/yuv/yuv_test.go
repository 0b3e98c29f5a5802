package yuv

import (
    "bytes"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// planarFixture builds an I420 image with optional row padding. The sample
// values are a function of position only so padded and unpadded variants
// carry the same logical picture.
func planarFixture(w, h, yPad, cPad int) *PlanarImage {
    yStride, cStride := w+yPad, w/2+cPad
    y := bytes.Repeat([]byte{0xEE}, yStride*h)
    u := bytes.Repeat([]byte{0xEE}, cStride*h/2)
    v := bytes.Repeat([]byte{0xEE}, cStride*h/2)
    for r := 0; r < h; r++ {
        for c := 0; c < w; c++ {
            y[r*yStride+c] = byte(r*w + c)
        }
    }
    for r := 0; r < h/2; r++ {
        for c := 0; c < w/2; c++ {
            u[r*cStride+c] = byte(100 + r*w/2 + c)
            v[r*cStride+c] = byte(200 - r*w/2 - c)
        }
    }
    return &PlanarImage{
        Width: w, Height: h,
        Y: Plane{Data: y, RowStride: yStride, PixelStride: 1},
        U: Plane{Data: u, RowStride: cStride, PixelStride: 1},
        V: Plane{Data: v, RowStride: cStride, PixelStride: 1},
    }
}

// semiPlanarFixture stores the same chroma samples as planarFixture in a
// single interleaved U/V buffer (NV12 order), pixel stride 2.
func semiPlanarFixture(w, h, pad int) *PlanarImage {
    ref := planarFixture(w, h, 0, 0)
    stride := w + pad
    uv := make([]byte, stride*h/2)
    for r := 0; r < h/2; r++ {
        for c := 0; c < w/2; c++ {
            uv[r*stride+2*c] = ref.U.At(r, c)
            uv[r*stride+2*c+1] = ref.V.At(r, c)
        }
    }
    return &PlanarImage{
        Width: w, Height: h,
        Y: ref.Y,
        U: Plane{Data: uv, RowStride: stride, PixelStride: 2},
        V: Plane{Data: uv[1:], RowStride: stride, PixelStride: 2},
    }
}

func TestPlaneOffset(t *testing.T) {
    p := Plane{RowStride: 12, PixelStride: 2}
    assert.Equal(t, 0, p.Offset(0, 0))
    assert.Equal(t, 6, p.Offset(0, 3))
    assert.Equal(t, 24+10, p.Offset(2, 5))

    // A zero pixel stride is read as a tightly packed row.
    assert.Equal(t, 12+3, Plane{RowStride: 12}.Offset(1, 3))
}

func TestToNV21Length(t *testing.T) {
    for _, dims := range [][2]int{{2, 2}, {4, 2}, {6, 4}, {640, 480}, {1280, 720}} {
        img := planarFixture(dims[0], dims[1], 0, 0)
        out, err := ToNV21(img)
        require.NoError(t, err)
        assert.Len(t, out, dims[0]*dims[1]*3/2, "%dx%d", dims[0], dims[1])
    }
}

func TestToNV21EndToEnd(t *testing.T) {
    img := &PlanarImage{
        Width: 4, Height: 2,
        Y: Plane{Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}, RowStride: 4, PixelStride: 1},
        U: Plane{Data: []byte{100, 100}, RowStride: 2, PixelStride: 1},
        V: Plane{Data: []byte{200, 200}, RowStride: 2, PixelStride: 1},
    }
    out, err := ToNV21(img)
    require.NoError(t, err)
    assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 200, 100, 200, 100}, out)
}

func TestToNV21ChromaOrder(t *testing.T) {
    img := &PlanarImage{
        Width: 2, Height: 2,
        Y: Plane{Data: []byte{1, 2, 3, 4}, RowStride: 2, PixelStride: 1},
        U: Plane{Data: []byte{20}, RowStride: 1, PixelStride: 1},
        V: Plane{Data: []byte{10}, RowStride: 1, PixelStride: 1},
    }
    out, err := ToNV21(img)
    require.NoError(t, err)
    assert.Equal(t, byte(10), out[4])
    assert.Equal(t, byte(20), out[5])
}

func TestToNV21IgnoresRowPadding(t *testing.T) {
    want, err := ToNV21(planarFixture(8, 6, 0, 0))
    require.NoError(t, err)
    for _, pad := range [][2]int{{1, 0}, {8, 3}, {56, 28}} {
        got, err := ToNV21(planarFixture(8, 6, pad[0], pad[1]))
        require.NoError(t, err)
        assert.Equal(t, want, got, "padding %v", pad)
    }
}

func TestToNV21PixelStrideIndependence(t *testing.T) {
    planar, err := ToNV21(planarFixture(8, 4, 0, 0))
    require.NoError(t, err)
    for _, pad := range []int{0, 16} {
        semi, err := ToNV21(semiPlanarFixture(8, 4, pad))
        require.NoError(t, err)
        assert.Equal(t, planar, semi, "pad %d", pad)
    }
}

func TestToNV21IntoReusesBuffer(t *testing.T) {
    img := planarFixture(4, 4, 0, 0)
    dst := make([]byte, 0, 64)
    out, err := ToNV21Into(dst, img)
    require.NoError(t, err)
    assert.Len(t, out, 24)
    assert.Same(t, &dst[:1][0], &out[0])
}

func TestToNV21InvalidLayout(t *testing.T) {
    cases := map[string]func(*PlanarImage){
        "odd width":        func(img *PlanarImage) { img.Width = 3 },
        "odd height":       func(img *PlanarImage) { img.Height = 3 },
        "zero width":       func(img *PlanarImage) { img.Width = 0 },
        "short luma":       func(img *PlanarImage) { img.Y.Data = img.Y.Data[:len(img.Y.Data)-1] },
        "short u":          func(img *PlanarImage) { img.U.Data = img.U.Data[:1] },
        "short v":          func(img *PlanarImage) { img.V.Data = nil },
        "narrow stride":    func(img *PlanarImage) { img.Y.RowStride = 2 },
        "zero chroma rows": func(img *PlanarImage) { img.U.RowStride = 0 },
        "strided luma":     func(img *PlanarImage) { img.Y.PixelStride = 2 },
        "wide pixel step":  func(img *PlanarImage) { img.V.PixelStride = 4 },
    }
    for name, mutate := range cases {
        t.Run(name, func(t *testing.T) {
            img := planarFixture(4, 4, 0, 0)
            mutate(img)
            out, err := ToNV21(img)
            assert.ErrorIs(t, err, ErrInvalidImageLayout)
            assert.Nil(t, out)
        })
    }

    _, err := ToNV21(nil)
    assert.ErrorIs(t, err, ErrInvalidImageLayout)
}

func TestContiguousLayouts(t *testing.T) {
    const w, h = 4, 4
    ref := planarFixture(w, h, 0, 0)
    want, err := ToNV21(ref)
    require.NoError(t, err)

    luma := ref.Y.Data
    var i420, yv12, nv12, nv21 []byte
    i420 = append(append(append(i420, luma...), ref.U.Data...), ref.V.Data...)
    yv12 = append(append(append(yv12, luma...), ref.V.Data...), ref.U.Data...)
    nv12 = append(nv12, luma...)
    nv21 = append(nv21, luma...)
    for r := 0; r < h/2; r++ {
        for c := 0; c < w/2; c++ {
            nv12 = append(nv12, ref.U.At(r, c), ref.V.At(r, c))
            nv21 = append(nv21, ref.V.At(r, c), ref.U.At(r, c))
        }
    }
    // NV21 in means NV21 out.
    assert.Equal(t, want, nv21)

    for name, build := range map[string]func() (*PlanarImage, error){
        "i420": func() (*PlanarImage, error) { return NewI420(i420, w, h, BufferLayout{}) },
        "yv12": func() (*PlanarImage, error) { return NewYV12(yv12, w, h, BufferLayout{}) },
        "nv12": func() (*PlanarImage, error) { return NewNV12(nv12, w, h, BufferLayout{}) },
        "nv21": func() (*PlanarImage, error) { return NewNV21(nv21, w, h, BufferLayout{}) },
    } {
        img, err := build()
        require.NoError(t, err, name)
        got, err := ToNV21(img)
        require.NoError(t, err, name)
        assert.Equal(t, want, got, name)
    }

    _, err = NewNV12(nv12[:10], w, h, BufferLayout{})
    assert.ErrorIs(t, err, ErrInvalidImageLayout)
}

// Driver buffers with padded rows and extra stored rows must decode to the
// same pixels as tightly packed ones.
func TestPaddedDriverLayouts(t *testing.T) {
    const w, h, stride, rows = 4, 2, 8, 3
    luma := []byte{10, 20, 30, 40, 50, 60, 70, 80}
    want := append(append([]byte(nil), luma...), 200, 100, 201, 101)

    padLuma := func() []byte {
        var b []byte
        for r := 0; r < rows; r++ {
            row := make([]byte, stride)
            for i := range row { row[i] = 0xEE }
            if r < h { copy(row, luma[r*w:(r+1)*w]) }
            b = append(b, row...)
        }
        return b
    }
    // Three-plane chroma rows are stride/2 wide, (rows+1)/2 of them.
    chromaRows := func(vals ...byte) []byte {
        var b []byte
        for r := 0; r < (rows+1)/2; r++ {
            row := []byte{0xEE, 0xEE, 0xEE, 0xEE}
            if r == 0 { copy(row, vals) }
            b = append(b, row...)
        }
        return b
    }
    semi := func(vals ...byte) []byte {
        var b []byte
        for r := 0; r < (rows+1)/2; r++ {
            row := make([]byte, stride)
            for i := range row { row[i] = 0xEE }
            if r == 0 { copy(row, vals) }
            b = append(b, row...)
        }
        return b
    }
    l := BufferLayout{Stride: stride, Rows: rows}

    i420 := append(append(padLuma(), chromaRows(100, 101)...), chromaRows(200, 201)...)
    yv12 := append(append(padLuma(), chromaRows(200, 201)...), chromaRows(100, 101)...)
    nv12 := append(padLuma(), semi(100, 200, 101, 201)...)
    nv21 := append(padLuma(), semi(200, 100, 201, 101)...)

    for name, build := range map[string]func() (*PlanarImage, error){
        "i420": func() (*PlanarImage, error) { return NewI420(i420, w, h, l) },
        "yv12": func() (*PlanarImage, error) { return NewYV12(yv12, w, h, l) },
        "nv12": func() (*PlanarImage, error) { return NewNV12(nv12, w, h, l) },
        "nv21": func() (*PlanarImage, error) { return NewNV21(nv21, w, h, l) },
    } {
        img, err := build()
        require.NoError(t, err, name)
        got, err := ToNV21(img)
        require.NoError(t, err, name)
        assert.Equal(t, want, got, name)
    }

    _, err := NewI420(i420, w, h, BufferLayout{Stride: 2})
    assert.ErrorIs(t, err, ErrInvalidImageLayout)
    _, err = NewNV21(nv21[:len(nv21)-1], w, h, l)
    assert.ErrorIs(t, err, ErrInvalidImageLayout)
}

func TestYUYVToPlanar(t *testing.T) {
    // 2x2 frame: row 0 = Y 10,20 U 100 V 200; row 1 = Y 30,40 U 50 V 150.
    src := []byte{
        10, 100, 20, 200,
        30, 50, 40, 150,
    }
    img, err := YUYVToPlanar(src, 2, 2, 0)
    require.NoError(t, err)
    out, err := ToNV21(img)
    require.NoError(t, err)
    assert.Equal(t, []byte{10, 20, 30, 40, 175, 75}, out)

    // Padded rows: 12 bytes per row for a 4 pixel wide frame.
    padded := []byte{
        10, 128, 20, 128, 30, 128, 40, 128, 0xEE, 0xEE, 0xEE, 0xEE,
        50, 128, 60, 128, 70, 128, 80, 128, 0xEE, 0xEE, 0xEE, 0xEE,
    }
    img, err = YUYVToPlanar(padded, 4, 2, 12)
    require.NoError(t, err)
    out, err = ToNV21(img)
    require.NoError(t, err)
    assert.Equal(t, []byte{10, 20, 30, 40, 50, 60, 70, 80, 128, 128, 128, 128}, out)

    _, err = YUYVToPlanar(src[:6], 2, 2, 0)
    assert.ErrorIs(t, err, ErrInvalidImageLayout)
    _, err = YUYVToPlanar(src, 2, 2, 2)
    assert.ErrorIs(t, err, ErrInvalidImageLayout)
}

func TestNV21ToRGBA(t *testing.T) {
    // Black and white luma over neutral chroma.
    nv21 := []byte{16, 235, 16, 235, 128, 128}
    out, err := NV21ToRGBA(nv21, 2, 2, nil)
    require.NoError(t, err)
    require.Len(t, out, 16)
    assert.Equal(t, []byte{0, 0, 0, 255}, out[0:4])
    assert.Equal(t, []byte{255, 255, 255, 255}, out[4:8])

    _, err = NV21ToRGBA(nv21[:5], 2, 2, nil)
    assert.ErrorIs(t, err, ErrInvalidImageLayout)
}
