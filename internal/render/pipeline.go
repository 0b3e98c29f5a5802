// Package render uploads the latest processed frame to a GPU texture and
// draws it as a full-screen quad. The Pipeline implements the three render
// surface callbacks a windowing host drives (surface created, surface
// changed, draw frame) plus the deposit and request-render entry points
// used by the capture side.
package render

import (
    "errors"
    "fmt"
    "log"
    "sync"
    "sync/atomic"

    "edgeviewer/internal/handoff"
)

var (
    ErrShaderCompile = errors.New("shader compile failed")
    ErrProgramLink   = errors.New("program link failed")
)

// State is the lifecycle state of a Pipeline.
type State int32

const (
    Uninitialized State = iota
    SurfaceReady
    Rendering
    // Disabled means shader setup failed for the current surface; draws are
    // skipped until the surface is created again.
    Disabled
    TornDown
)

func (s State) String() string {
    switch s {
    case Uninitialized: return "uninitialized"
    case SurfaceReady: return "surface_ready"
    case Rendering: return "rendering"
    case Disabled: return "disabled"
    case TornDown: return "torn_down"
    }
    return fmt.Sprintf("state(%d)", int32(s))
}

// Requester asks the host to schedule one draw on the render thread.
type Requester interface {
    RequestRender()
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func()

func (f RequesterFunc) RequestRender() { f() }

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithShaders replaces the default shader sources.
func WithShaders(vertex, fragment string) Option {
    return func(p *Pipeline) { p.vertexSrc, p.fragmentSrc = vertex, fragment }
}

// WithRequester sets the host render trigger.
func WithRequester(r Requester) Option {
    return func(p *Pipeline) { p.requester = r }
}

// WithClearColor sets the colour the surface is cleared to on every tick.
func WithClearColor(r, g, b, a float32) Option {
    return func(p *Pipeline) { p.clear = [4]float32{r, g, b, a} }
}

// Pipeline owns every GPU handle used to show frames: one program, one 2D
// texture and two static vertex buffers. GPU state is only touched from the
// surface callbacks, which the host calls on its render thread; UpdateFrame
// and RequestRender may be called from any goroutine.
type Pipeline struct {
    gl          GL
    slot        *handoff.Slot
    vertexSrc   string
    fragmentSrc string
    clear       [4]float32

    reqMu     sync.RWMutex
    requester Requester

    state atomic.Int32

    // Render-thread only.
    program  uint32
    texture  uint32
    posBuf   uint32
    texBuf   uint32
    aPos     int32
    aTex     int32
    uTex     int32
    setupErr error
    badW     int
    badH     int

    draws    atomic.Uint64
    skipped  atomic.Uint64
    uploaded atomic.Uint64
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
    State         string `json:"state"`
    Draws         uint64 `json:"draws"`
    Skipped       uint64 `json:"skipped"`
    UploadedBytes uint64 `json:"uploaded_bytes"`
}

// New returns a pipeline reading frames from slot. No GPU calls are made
// until OnSurfaceCreated.
func New(gl GL, slot *handoff.Slot, opts ...Option) *Pipeline {
    p := &Pipeline{
        gl:          gl,
        slot:        slot,
        vertexSrc:   DefaultVertexShader,
        fragmentSrc: DefaultFragmentShader,
        clear:       [4]float32{0, 0, 0, 1},
    }
    for _, o := range opts {
        o(p)
    }
    return p
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return State(p.state.Load()) }

// Err returns the shader setup error of the current surface, if any.
// Call it from the render thread.
func (p *Pipeline) Err() error { return p.setupErr }

// SetRequester replaces the host render trigger.
func (p *Pipeline) SetRequester(r Requester) {
    p.reqMu.Lock()
    p.requester = r
    p.reqMu.Unlock()
}

// UpdateFrame deposits an RGBA frame and asks the host for a redraw. It
// never blocks on the render thread.
func (p *Pipeline) UpdateFrame(data []byte, width, height int) {
    p.slot.Deposit(data, width, height)
    p.RequestRender()
}

// RequestRender asks the host to run OnDrawFrame once. Without a host it
// does nothing.
func (p *Pipeline) RequestRender() {
    p.reqMu.RLock()
    r := p.requester
    p.reqMu.RUnlock()
    if r != nil {
        r.RequestRender()
    }
}

// OnSurfaceCreated builds the program, texture and vertex buffers for a new
// surface. Resources left over from a previous surface are released first.
// Shader compile or link failures are logged once and leave the pipeline
// Disabled for this surface; there is no retry.
func (p *Pipeline) OnSurfaceCreated() {
    p.release()
    p.setupErr = nil
    p.badW, p.badH = 0, 0
    gl := p.gl
    gl.ClearColor(p.clear[0], p.clear[1], p.clear[2], p.clear[3])

    program, err := p.buildProgram()
    if err != nil {
        p.setupErr = err
        p.state.Store(int32(Disabled))
        log.Printf("render: %v; drawing disabled for this surface", err)
        return
    }
    p.program = program

    p.texture = gl.GenTexture()
    gl.BindTexture2D(p.texture)
    gl.TexParameter2D(TextureMinFilter, Linear)
    gl.TexParameter2D(TextureMagFilter, Linear)
    gl.TexParameter2D(TextureWrapS, ClampToEdge)
    gl.TexParameter2D(TextureWrapT, ClampToEdge)

    p.posBuf = gl.GenBuffer()
    gl.BufferData(p.posBuf, quadVertices)
    p.texBuf = gl.GenBuffer()
    gl.BufferData(p.texBuf, quadTexCoords)

    // Frame rows are tightly packed and need not be 4-byte aligned.
    gl.PixelStoreUnpackAlignment(1)

    p.state.Store(int32(SurfaceReady))
}

func (p *Pipeline) buildProgram() (uint32, error) {
    gl := p.gl
    vs, err := p.compile(VertexShader, p.vertexSrc)
    if err != nil { return 0, err }
    fs, err := p.compile(FragmentShader, p.fragmentSrc)
    if err != nil {
        gl.DeleteShader(vs)
        return 0, err
    }
    program := gl.CreateProgram()
    gl.AttachShader(program, vs)
    gl.AttachShader(program, fs)
    gl.LinkProgram(program)
    // The program keeps what it needs; the shader objects can go.
    gl.DeleteShader(vs)
    gl.DeleteShader(fs)
    if ok, info := gl.ProgramStatus(program); !ok {
        gl.DeleteProgram(program)
        return 0, fmt.Errorf("%w: %s", ErrProgramLink, info)
    }
    p.aPos = gl.AttribLocation(program, attrPosition)
    p.aTex = gl.AttribLocation(program, attrTexCoord)
    p.uTex = gl.UniformLocation(program, uniformTexture)
    if p.aPos < 0 || p.aTex < 0 {
        gl.DeleteProgram(program)
        return 0, fmt.Errorf("%w: program lacks %s/%s attributes", ErrProgramLink, attrPosition, attrTexCoord)
    }
    return program, nil
}

func (p *Pipeline) compile(kind ShaderKind, src string) (uint32, error) {
    gl := p.gl
    sh := gl.CreateShader(kind)
    gl.ShaderSource(sh, src)
    gl.CompileShader(sh)
    if ok, info := gl.ShaderStatus(sh); !ok {
        gl.DeleteShader(sh)
        return 0, fmt.Errorf("%w: %s shader: %s", ErrShaderCompile, kind, info)
    }
    return sh, nil
}

// OnSurfaceChanged resizes the viewport.
func (p *Pipeline) OnSurfaceChanged(width, height int) {
    p.gl.Viewport(0, 0, int32(width), int32(height))
}

// OnDrawFrame clears the surface and, when a valid frame is available,
// re-uploads it as the whole texture and draws the quad. Ticks without a
// program, without a frame or with a malformed frame only clear.
func (p *Pipeline) OnDrawFrame() {
    gl := p.gl
    gl.Clear()

    st := p.State()
    if st != SurfaceReady && st != Rendering {
        p.skipped.Add(1)
        return
    }
    f, ok := p.slot.TakeLatest()
    if !ok || f.Width <= 0 || f.Height <= 0 {
        p.skipped.Add(1)
        return
    }
    if len(f.Data) != f.Width*f.Height*4 {
        if f.Width != p.badW || f.Height != p.badH {
            p.badW, p.badH = f.Width, f.Height
            log.Printf("render: frame %dx%d has %d bytes, want RGBA (%d); skipping", f.Width, f.Height, len(f.Data), f.Width*f.Height*4)
        }
        p.skipped.Add(1)
        return
    }

    gl.ActiveTexture(0)
    gl.BindTexture2D(p.texture)
    gl.TexImage2DRGBA(int32(f.Width), int32(f.Height), f.Data)

    gl.UseProgram(p.program)
    gl.Uniform1i(p.uTex, 0)

    pos, tex := uint32(p.aPos), uint32(p.aTex)
    gl.VertexAttribPointer(pos, p.posBuf, 2)
    gl.EnableVertexAttribArray(pos)
    gl.VertexAttribPointer(tex, p.texBuf, 2)
    gl.EnableVertexAttribArray(tex)

    gl.DrawTriangleStrip(0, 4)

    gl.DisableVertexAttribArray(pos)
    gl.DisableVertexAttribArray(tex)

    p.state.Store(int32(Rendering))
    p.draws.Add(1)
    p.uploaded.Add(uint64(len(f.Data)))
}

// OnSurfaceDestroyed releases all GPU resources. Deposits may keep arriving
// concurrently; they only touch the slot.
func (p *Pipeline) OnSurfaceDestroyed() {
    p.release()
    p.state.Store(int32(TornDown))
}

func (p *Pipeline) release() {
    gl := p.gl
    if p.program != 0 {
        gl.DeleteProgram(p.program)
        p.program = 0
    }
    if p.texture != 0 {
        gl.DeleteTexture(p.texture)
        p.texture = 0
    }
    if p.posBuf != 0 {
        gl.DeleteBuffer(p.posBuf)
        p.posBuf = 0
    }
    if p.texBuf != 0 {
        gl.DeleteBuffer(p.texBuf)
        p.texBuf = 0
    }
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
    return Stats{
        State:         p.State().String(),
        Draws:         p.draws.Load(),
        Skipped:       p.skipped.Load(),
        UploadedBytes: p.uploaded.Load(),
    }
}
