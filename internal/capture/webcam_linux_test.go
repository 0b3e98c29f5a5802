//go:build linux

package capture

import (
    "testing"

    "github.com/blackjack/webcam"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "edgeviewer/internal/yuv"
)

func TestFourcc(t *testing.T) {
    assert.Equal(t, webcam.PixelFormat(0x3231564E), fourcc("NV12"))
    assert.Equal(t, "YUYV", fourccString(fourccYUYV))
}

func TestPickFormat(t *testing.T) {
    supported := map[webcam.PixelFormat]string{
        fourccYUYV:     "YUYV 4:2:2",
        fourccYU12:     "Planar YUV 4:2:0",
        fourcc("MJPG"): "Motion-JPEG",
    }

    pf, err := pickFormat(supported, "")
    require.NoError(t, err)
    assert.Equal(t, fourccYU12, pf, "planar 4:2:0 preferred over YUYV")

    pf, err = pickFormat(supported, " yuyv ")
    require.NoError(t, err)
    assert.Equal(t, fourccYUYV, pf)

    _, err = pickFormat(supported, "NV21")
    assert.ErrorContains(t, err, "not supported")

    _, err = pickFormat(supported, "MJPG")
    assert.ErrorContains(t, err, "cannot be converted")

    _, err = pickFormat(supported, "RGB")
    assert.ErrorContains(t, err, "illegal fourcc")

    _, err = pickFormat(map[webcam.PixelFormat]string{fourcc("MJPG"): "Motion-JPEG"}, "")
    assert.ErrorContains(t, err, "no usable format")
}

func TestDecodeFramePaddedYUYV(t *testing.T) {
    // 4x2 YUYV with rows padded to 12 bytes.
    data := []byte{
        10, 128, 20, 128, 30, 128, 40, 128, 0xEE, 0xEE, 0xEE, 0xEE,
        50, 128, 60, 128, 70, 128, 80, 128, 0xEE, 0xEE, 0xEE, 0xEE,
    }
    img, copied, err := decodeFrame(fourccYUYV, data, 4, 2, 4, 2)
    require.NoError(t, err)
    assert.True(t, copied)
    nv21, err := yuv.ToNV21(img)
    require.NoError(t, err)
    assert.Equal(t, []byte{10, 20, 30, 40, 50, 60, 70, 80, 128, 128, 128, 128}, nv21)
}

func TestDecodeFramePaddedNV12(t *testing.T) {
    // 4x2 NV12 with rows padded to 8 bytes.
    data := []byte{
        10, 20, 30, 40, 0xEE, 0xEE, 0xEE, 0xEE,
        50, 60, 70, 80, 0xEE, 0xEE, 0xEE, 0xEE,
        100, 200, 101, 201, 0xEE, 0xEE, 0xEE, 0xEE,
    }
    img, copied, err := decodeFrame(fourccNV12, data, 4, 2, 4, 2)
    require.NoError(t, err)
    assert.False(t, copied)
    nv21, err := yuv.ToNV21(img)
    require.NoError(t, err)
    assert.Equal(t, []byte{10, 20, 30, 40, 50, 60, 70, 80, 200, 100, 201, 101}, nv21)
}

func TestDecodeFrameOddDriverSize(t *testing.T) {
    // Driver reports 5x3 I420 with rows padded to 6 bytes: 3 luma rows of 6,
    // then 2 U rows and 2 V rows of 3. The converter sees the 4x2 crop.
    data := []byte{
        10, 20, 30, 40, 1, 0xEE,
        50, 60, 70, 80, 2, 0xEE,
        3, 3, 3, 3, 3, 0xEE,
        100, 101, 9, 9, 9, 9, // U rows
        200, 201, 9, 9, 9, 9, // V rows
    }
    img, _, err := decodeFrame(fourccYU12, data, 4, 2, 5, 3)
    require.NoError(t, err)
    nv21, err := yuv.ToNV21(img)
    require.NoError(t, err)
    assert.Equal(t, []byte{10, 20, 30, 40, 50, 60, 70, 80, 200, 100, 201, 101}, nv21)
}

func TestDecodeFrameTruncated(t *testing.T) {
    _, _, err := decodeFrame(fourccNV21, make([]byte, 5), 4, 2, 4, 2)
    assert.ErrorIs(t, err, yuv.ErrInvalidImageLayout)
}
