package render

import (
    "fmt"
    "strings"
)

// fakeGL records calls and hands out handles. Shaders whose source
// contains "#error" fail to compile; programs fail to link when
// failLink is set.
type fakeGL struct {
    calls    []string
    next     uint32
    sources  map[uint32]string
    failLink bool
    live     map[string]map[uint32]bool // kind -> live handles
    uploads  [][]byte
    enabled  map[uint32]bool
    locs     map[string]int32
}

func newFakeGL() *fakeGL {
    return &fakeGL{
        sources: map[uint32]string{},
        live:    map[string]map[uint32]bool{"shader": {}, "program": {}, "texture": {}, "buffer": {}},
        enabled: map[uint32]bool{},
        locs:    map[string]int32{attrPosition: 0, attrTexCoord: 1, uniformTexture: 0},
    }
}

func (g *fakeGL) rec(format string, args ...any) { g.calls = append(g.calls, fmt.Sprintf(format, args...)) }

func (g *fakeGL) alloc(kind string) uint32 {
    g.next++
    g.live[kind][g.next] = true
    return g.next
}

func (g *fakeGL) free(kind string, id uint32) { delete(g.live[kind], id) }

// count returns how many recorded calls have the given name, ignoring
// their arguments: "Clear" does not match "ClearColor(...)".
func (g *fakeGL) count(name string) int {
    n := 0
    for _, c := range g.calls {
        if i := strings.IndexByte(c, '('); i >= 0 {
            c = c[:i]
        }
        if c == name {
            n++
        }
    }
    return n
}

func (g *fakeGL) has(call string) bool {
    for _, c := range g.calls {
        if c == call {
            return true
        }
    }
    return false
}

func (g *fakeGL) ClearColor(r, gg, b, a float32)      { g.rec("ClearColor(%v,%v,%v,%v)", r, gg, b, a) }
func (g *fakeGL) Clear()                              { g.rec("Clear") }
func (g *fakeGL) Viewport(x, y, w, h int32)           { g.rec("Viewport(%d,%d,%d,%d)", x, y, w, h) }
func (g *fakeGL) PixelStoreUnpackAlignment(n int32)   { g.rec("UnpackAlignment(%d)", n) }
func (g *fakeGL) CreateShader(kind ShaderKind) uint32 { g.rec("CreateShader(%s)", kind); return g.alloc("shader") }
func (g *fakeGL) ShaderSource(sh uint32, src string)  { g.sources[sh] = src }
func (g *fakeGL) CompileShader(sh uint32)             { g.rec("CompileShader") }
func (g *fakeGL) ShaderStatus(sh uint32) (bool, string) {
    if strings.Contains(g.sources[sh], "#error") {
        return false, "0:1: error directive"
    }
    return true, ""
}
func (g *fakeGL) DeleteShader(sh uint32)       { g.rec("DeleteShader"); g.free("shader", sh) }
func (g *fakeGL) CreateProgram() uint32        { g.rec("CreateProgram"); return g.alloc("program") }
func (g *fakeGL) AttachShader(p, sh uint32)    { g.rec("AttachShader") }
func (g *fakeGL) LinkProgram(p uint32)         { g.rec("LinkProgram") }
func (g *fakeGL) ProgramStatus(p uint32) (bool, string) {
    if g.failLink {
        return false, "link error: varying mismatch"
    }
    return true, ""
}
func (g *fakeGL) UseProgram(p uint32)    { g.rec("UseProgram") }
func (g *fakeGL) DeleteProgram(p uint32) { g.rec("DeleteProgram"); g.free("program", p) }
func (g *fakeGL) AttribLocation(p uint32, name string) int32 {
    if l, ok := g.locs[name]; ok {
        return l
    }
    return -1
}
func (g *fakeGL) UniformLocation(p uint32, name string) int32 { return g.locs[name] }
func (g *fakeGL) Uniform1i(loc, v int32)                    { g.rec("Uniform1i(%d,%d)", loc, v) }
func (g *fakeGL) GenTexture() uint32                        { g.rec("GenTexture"); return g.alloc("texture") }
func (g *fakeGL) ActiveTexture(unit uint32)                 { g.rec("ActiveTexture(%d)", unit) }
func (g *fakeGL) BindTexture2D(t uint32)                    { g.rec("BindTexture2D") }
func (g *fakeGL) TexParameter2D(pname, param int32)         { g.rec("TexParameter(%#x,%#x)", pname, param) }
func (g *fakeGL) TexImage2DRGBA(w, h int32, px []byte) {
    g.rec("TexImage2D(%d,%d)", w, h)
    g.uploads = append(g.uploads, px)
}
func (g *fakeGL) DeleteTexture(t uint32)              { g.rec("DeleteTexture"); g.free("texture", t) }
func (g *fakeGL) GenBuffer() uint32                   { g.rec("GenBuffer"); return g.alloc("buffer") }
func (g *fakeGL) BufferData(b uint32, data []float32) { g.rec("BufferData(%v)", data) }
func (g *fakeGL) DeleteBuffer(b uint32)               { g.rec("DeleteBuffer"); g.free("buffer", b) }
func (g *fakeGL) VertexAttribPointer(loc, buf uint32, n int32) {
    g.rec("VertexAttribPointer(%d,%d)", loc, n)
}
func (g *fakeGL) EnableVertexAttribArray(loc uint32) {
    g.rec("Enable(%d)", loc)
    g.enabled[loc] = true
}
func (g *fakeGL) DisableVertexAttribArray(loc uint32) {
    g.rec("Disable(%d)", loc)
    delete(g.enabled, loc)
}
func (g *fakeGL) DrawTriangleStrip(first, count int32) { g.rec("DrawTriangleStrip(%d,%d)", first, count) }

func (g *fakeGL) liveCount() int {
    n := 0
    for _, m := range g.live {
        n += len(m)
    }
    return n
}
