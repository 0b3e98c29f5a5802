package handoff

import (
    "bytes"
    "sync"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestEmptySlot(t *testing.T) {
    var s Slot
    f, ok := s.TakeLatest()
    assert.False(t, ok)
    assert.Equal(t, Frame{}, f)
    assert.Zero(t, s.Seq())
}

func TestTakeLatestIsIdempotent(t *testing.T) {
    var s Slot
    data := []byte{1, 2, 3, 4}
    seq := s.Deposit(data, 1, 1)
    assert.Equal(t, uint64(1), seq)

    first, ok := s.TakeLatest()
    require.True(t, ok)
    second, ok := s.TakeLatest()
    require.True(t, ok)

    assert.Equal(t, data, first.Data)
    assert.Equal(t, first, second)
    assert.Equal(t, 1, first.Width)
    assert.Equal(t, 1, first.Height)
    assert.Equal(t, uint64(1), s.Seq())
}

func TestDepositReplaces(t *testing.T) {
    var s Slot
    s.Deposit(bytes.Repeat([]byte{1}, 16), 2, 2)
    s.Deposit(bytes.Repeat([]byte{2}, 32), 4, 2)

    f, ok := s.TakeLatest()
    require.True(t, ok)
    assert.Equal(t, bytes.Repeat([]byte{2}, 32), f.Data)
    assert.Equal(t, 4, f.Width)
    assert.Equal(t, uint64(2), f.Seq)

    st := s.Stats()
    assert.Equal(t, uint64(2), st.Deposits)
    assert.Equal(t, uint64(1), st.Reads)
    assert.Equal(t, uint64(1), st.Overwritten)
}

func TestOverwriteCountsOnlyUnread(t *testing.T) {
    var s Slot
    s.Deposit([]byte{0, 0, 0, 0}, 1, 1)
    s.TakeLatest()
    s.Deposit([]byte{0, 0, 0, 0}, 1, 1)
    s.Deposit([]byte{0, 0, 0, 0}, 1, 1)
    assert.Equal(t, uint64(1), s.Stats().Overwritten)
}

func TestReset(t *testing.T) {
    var s Slot
    s.Deposit([]byte{9, 9, 9, 9}, 1, 1)
    s.Reset()
    _, ok := s.TakeLatest()
    assert.False(t, ok)
    assert.Equal(t, uint64(2), s.Deposit([]byte{1, 1, 1, 1}, 1, 1))
}

// Every deposit carries a buffer whose length and fill value are derived
// from its dimensions; a torn read would show up as a mismatch.
func TestConcurrentDepositsNeverTear(t *testing.T) {
    var s Slot
    var wg sync.WaitGroup
    const writers, readers, rounds = 8, 8, 500

    for w := 0; w < writers; w++ {
        wg.Add(1)
        go func(id int) {
            defer wg.Done()
            for i := 0; i < rounds; i++ {
                width := 2 + (id+i)%7*2
                height := 2 + (id*3+i)%5*2
                fill := byte(width*height)
                s.Deposit(bytes.Repeat([]byte{fill}, width*height*4), width, height)
            }
        }(w)
    }

    errs := make(chan string, readers)
    for r := 0; r < readers; r++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for i := 0; i < rounds; i++ {
                f, ok := s.TakeLatest()
                if !ok { continue }
                if len(f.Data) != f.Width*f.Height*4 {
                    errs <- "length does not match dimensions"
                    return
                }
                want := byte(f.Width * f.Height)
                for _, b := range f.Data {
                    if b != want {
                        errs <- "buffer content does not match dimensions"
                        return
                    }
                }
            }
        }()
    }
    wg.Wait()
    close(errs)
    for e := range errs {
        t.Error(e)
    }
    assert.Equal(t, uint64(writers*rounds), s.Stats().Deposits)
}
