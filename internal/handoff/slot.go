// Package handoff implements the single-slot "latest frame wins" mailbox
// between the capture goroutine and the render thread.
//
// There is no queue: a deposit always replaces whatever is in the slot,
// read or not. Readers get the whole frame as it was deposited, never a
// mix of two deposits.
package handoff

import (
    "sync"
    "sync/atomic"
)

// Frame is a processed RGBA frame together with its dimensions. Seq is
// assigned by the slot on deposit and starts at 1.
//
// Frames are shared between goroutines without copying: neither the
// depositor nor any reader may modify Data once deposited.
type Frame struct {
    Data   []byte
    Width  int
    Height int
    Seq    uint64
}

// Slot holds at most one Frame. The zero value is an empty slot ready to
// use.
type Slot struct {
    mu    sync.Mutex
    frame *Frame // nil until the first deposit
    read  bool   // current frame has been handed to a reader

    seq         atomic.Uint64
    deposits    atomic.Uint64
    reads       atomic.Uint64
    overwritten atomic.Uint64
}

// Stats is a snapshot of slot counters.
type Stats struct {
    Deposits    uint64 `json:"deposits"`
    Reads       uint64 `json:"reads"`
    Overwritten uint64 `json:"overwritten_unread"` // deposits that replaced a frame nobody read
    LastSeq     uint64 `json:"last_seq"`
}

// Deposit replaces the slot contents with data and its dimensions and
// returns the sequence number given to the frame. It never waits for a
// reader; the lock only covers swapping the frame pointer.
func (s *Slot) Deposit(data []byte, width, height int) uint64 {
    f := &Frame{Data: data, Width: width, Height: height}
    s.mu.Lock()
    f.Seq = s.seq.Add(1)
    if s.frame != nil && !s.read {
        s.overwritten.Add(1)
    }
    s.frame = f
    s.read = false
    s.mu.Unlock()
    s.deposits.Add(1)
    return f.Seq
}

// TakeLatest returns the most recently deposited frame. It does not empty
// the slot, so repeated calls without a deposit in between return the same
// frame. ok is false when nothing has been deposited yet.
func (s *Slot) TakeLatest() (Frame, bool) {
    s.mu.Lock()
    f := s.frame
    if f != nil {
        s.read = true
    }
    s.mu.Unlock()
    if f == nil {
        return Frame{}, false
    }
    s.reads.Add(1)
    return *f, true
}

// Seq returns the sequence number of the frame currently in the slot, or 0
// when empty. Render hosts use it to tell whether anything new arrived
// without taking the frame.
func (s *Slot) Seq() uint64 {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.frame == nil { return 0 }
    return s.frame.Seq
}

// Reset empties the slot. Sequence numbers keep increasing across resets.
func (s *Slot) Reset() {
    s.mu.Lock()
    s.frame = nil
    s.read = false
    s.mu.Unlock()
}

// Stats returns a snapshot of the slot counters.
func (s *Slot) Stats() Stats {
    return Stats{
        Deposits:    s.deposits.Load(),
        Reads:       s.reads.Load(),
        Overwritten: s.overwritten.Load(),
        LastSeq:     s.seq.Load(),
    }
}
