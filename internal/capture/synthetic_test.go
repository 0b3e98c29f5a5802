package capture

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "edgeviewer/internal/yuv"
)

// The same instant rendered in every layout must pack to the same NV21.
func TestSyntheticLayoutsAgree(t *testing.T) {
    var want []byte
    for _, layout := range []Layout{LayoutI420, LayoutYV12, LayoutNV12, LayoutNV21} {
        for _, pad := range []int{0, 5} {
            s, err := NewSynthetic(SyntheticConfig{Width: 8, Height: 6, Layout: layout, RowPadding: pad})
            require.NoError(t, err)
            s.render(1.25)
            got, err := yuv.ToNV21(s.image())
            require.NoError(t, err)
            if want == nil {
                want = got
                continue
            }
            assert.Equal(t, want, got, "layout %d pad %d", layout, pad)
        }
    }
}

func TestSyntheticSingleFrameInFlight(t *testing.T) {
    s, err := NewSynthetic(SyntheticConfig{Width: 4, Height: 4})
    require.NoError(t, err)
    _, release, err := s.Acquire(context.Background())
    require.NoError(t, err)
    _, _, err = s.Acquire(context.Background())
    assert.Error(t, err)
    release()
    release()
    _, release, err = s.Acquire(context.Background())
    require.NoError(t, err)
    release()
}

func TestSyntheticClose(t *testing.T) {
    s, err := NewSynthetic(SyntheticConfig{Width: 4, Height: 4, FPS: 1})
    require.NoError(t, err)
    errc := make(chan error, 1)
    go func() {
        _, _, err := s.Acquire(context.Background())
        errc <- err
    }()
    require.NoError(t, s.Close())
    require.NoError(t, s.Close())
    select {
    case err := <-errc:
        assert.ErrorIs(t, err, ErrSourceClosed)
    case <-time.After(2 * time.Second):
        t.Fatal("Acquire did not return after Close")
    }
}

func TestSyntheticRejectsOddSize(t *testing.T) {
    _, err := NewSynthetic(SyntheticConfig{Width: 5, Height: 4})
    assert.ErrorIs(t, err, yuv.ErrInvalidImageLayout)
}

func TestParseLayout(t *testing.T) {
    for in, want := range map[string]Layout{"": LayoutI420, "yu12": LayoutI420, "YV12": LayoutYV12, "nv12": LayoutNV12, "NV21": LayoutNV21} {
        got, err := ParseLayout(in)
        require.NoError(t, err, in)
        assert.Equal(t, want, got, in)
    }
    _, err := ParseLayout("RGB3")
    assert.Error(t, err)
}
