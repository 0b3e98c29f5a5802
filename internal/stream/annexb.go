package stream

import (
    "bufio"
    "bytes"
    "io"
)

const (
    nalTypeIDR = 5
    nalTypeAUD = 9
    maxNALSize = 4 << 20
)

var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// findStartCode returns the index and length (3 or 4) of the first start
// code at or after from, or -1.
func findStartCode(data []byte, from int) (int, int) {
    i := bytes.Index(data[from:], annexBStartCode[1:])
    if i < 0 { return -1, 0 }
    i += from
    if i > from && data[i-1] == 0 {
        return i - 1, 4
    }
    return i, 3
}

// splitNALs is a bufio.SplitFunc yielding NAL unit payloads without their
// start codes. Bytes before the first start code are discarded.
func splitNALs(data []byte, atEOF bool) (int, []byte, error) {
    start, n := findStartCode(data, 0)
    if start < 0 {
        if atEOF { return len(data), nil, nil }
        // Keep a possible partial start code at the tail.
        if len(data) > 3 { return len(data) - 3, nil, nil }
        return 0, nil, nil
    }
    payload := start + n
    next, _ := findStartCode(data, payload)
    if next < 0 {
        if !atEOF { return start, nil, nil }
        if payload >= len(data) { return len(data), nil, nil }
        return len(data), data[payload:], nil
    }
    return next, data[payload:next], nil
}

// accessUnitReader groups NAL units into access units delimited by AUD
// NALs, which the encoder is asked to emit.
type accessUnitReader struct {
    sc      *bufio.Scanner
    pending []byte
}

func newAccessUnitReader(r io.Reader) *accessUnitReader {
    sc := bufio.NewScanner(r)
    sc.Buffer(make([]byte, 0, 1<<16), maxNALSize)
    sc.Split(splitNALs)
    return &accessUnitReader{sc: sc}
}

// Next returns the next access unit in AnnexB form, or io.EOF.
func (r *accessUnitReader) Next() ([]byte, error) {
    au := r.pending
    r.pending = nil
    for r.sc.Scan() {
        nal := r.sc.Bytes()
        if len(nal) == 0 { continue }
        if nal[0]&0x1F == nalTypeAUD && len(au) > 0 {
            r.pending = appendNAL(nil, nal)
            return au, nil
        }
        au = appendNAL(au, nal)
    }
    if err := r.sc.Err(); err != nil { return nil, err }
    if len(au) > 0 { return au, nil }
    return nil, io.EOF
}

func appendNAL(au, nal []byte) []byte {
    au = append(au, annexBStartCode...)
    return append(au, nal...)
}

// containsIDR reports whether an AnnexB access unit carries an IDR slice.
func containsIDR(au []byte) bool {
    for i := 0; ; {
        start, n := findStartCode(au, i)
        if start < 0 { return false }
        p := start + n
        if p < len(au) && au[p]&0x1F == nalTypeIDR { return true }
        i = p
    }
}
