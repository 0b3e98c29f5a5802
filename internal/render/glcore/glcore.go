//go:build gl

// Package glcore implements render.GL on top of the OpenGL 4.1 core
// profile bindings. A context must be current on the calling thread for
// New and for every method.
package glcore

import (
    "fmt"
    "strings"

    "github.com/go-gl/gl/v4.1-core/gl"

    "edgeviewer/internal/render"
)

// Context is a render.GL backed by the current OpenGL context.
type Context struct {
    vao uint32
}

var _ render.GL = (*Context)(nil)

// New loads the GL entry points for the current context and binds the
// vertex array object the core profile requires for attribute setup.
func New() (*Context, error) {
    if err := gl.Init(); err != nil {
        return nil, fmt.Errorf("gl init: %w", err)
    }
    c := &Context{}
    gl.GenVertexArrays(1, &c.vao)
    gl.BindVertexArray(c.vao)
    return c, nil
}

// Version returns the GL_VERSION string of the current context.
func (c *Context) Version() string { return gl.GoStr(gl.GetString(gl.VERSION)) }

// Close deletes the vertex array object.
func (c *Context) Close() {
    if c.vao != 0 {
        gl.DeleteVertexArrays(1, &c.vao)
        c.vao = 0
    }
}

func (c *Context) ClearColor(r, g, b, a float32)      { gl.ClearColor(r, g, b, a) }
func (c *Context) Clear()                              { gl.Clear(gl.COLOR_BUFFER_BIT) }
func (c *Context) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }
func (c *Context) PixelStoreUnpackAlignment(n int32)  { gl.PixelStorei(gl.UNPACK_ALIGNMENT, n) }

func (c *Context) CreateShader(kind render.ShaderKind) uint32 {
    if kind == render.VertexShader {
        return gl.CreateShader(gl.VERTEX_SHADER)
    }
    return gl.CreateShader(gl.FRAGMENT_SHADER)
}

func (c *Context) ShaderSource(shader uint32, src string) {
    csrc, free := gl.Strs(src + "\x00")
    gl.ShaderSource(shader, 1, csrc, nil)
    free()
}

func (c *Context) CompileShader(shader uint32) { gl.CompileShader(shader) }

func (c *Context) ShaderStatus(shader uint32) (bool, string) {
    var status int32
    gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
    if status == gl.TRUE {
        return true, ""
    }
    var n int32
    gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &n)
    return false, infoLog(n, func(buf *uint8) { gl.GetShaderInfoLog(shader, n, nil, buf) })
}

func (c *Context) DeleteShader(shader uint32)          { gl.DeleteShader(shader) }
func (c *Context) CreateProgram() uint32               { return gl.CreateProgram() }
func (c *Context) AttachShader(program, shader uint32) { gl.AttachShader(program, shader) }
func (c *Context) LinkProgram(program uint32)          { gl.LinkProgram(program) }

func (c *Context) ProgramStatus(program uint32) (bool, string) {
    var status int32
    gl.GetProgramiv(program, gl.LINK_STATUS, &status)
    if status == gl.TRUE {
        return true, ""
    }
    var n int32
    gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &n)
    return false, infoLog(n, func(buf *uint8) { gl.GetProgramInfoLog(program, n, nil, buf) })
}

func infoLog(n int32, read func(*uint8)) string {
    if n <= 0 {
        return "no info log"
    }
    buf := strings.Repeat("\x00", int(n+1))
    read(gl.Str(buf))
    return strings.TrimRight(buf, "\x00\n")
}

func (c *Context) UseProgram(program uint32)    { gl.UseProgram(program) }
func (c *Context) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

func (c *Context) AttribLocation(program uint32, name string) int32 {
    return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

func (c *Context) UniformLocation(program uint32, name string) int32 {
    return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (c *Context) Uniform1i(location, v int32) { gl.Uniform1i(location, v) }

func (c *Context) GenTexture() uint32 {
    var t uint32
    gl.GenTextures(1, &t)
    return t
}

func (c *Context) ActiveTexture(unit uint32) { gl.ActiveTexture(gl.TEXTURE0 + unit) }
func (c *Context) BindTexture2D(t uint32)    { gl.BindTexture(gl.TEXTURE_2D, t) }

func (c *Context) TexParameter2D(pname, param int32) {
    gl.TexParameteri(gl.TEXTURE_2D, uint32(pname), param)
}

func (c *Context) TexImage2DRGBA(width, height int32, pixels []byte) {
    gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
}

func (c *Context) DeleteTexture(t uint32) { gl.DeleteTextures(1, &t) }

func (c *Context) GenBuffer() uint32 {
    var b uint32
    gl.GenBuffers(1, &b)
    return b
}

func (c *Context) BufferData(buffer uint32, data []float32) {
    gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
    gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
    gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (c *Context) DeleteBuffer(buffer uint32) { gl.DeleteBuffers(1, &buffer) }

func (c *Context) VertexAttribPointer(location, buffer uint32, components int32) {
    gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
    gl.VertexAttribPointer(location, components, gl.FLOAT, false, 0, gl.PtrOffset(0))
    gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (c *Context) EnableVertexAttribArray(location uint32)  { gl.EnableVertexAttribArray(location) }
func (c *Context) DisableVertexAttribArray(location uint32) { gl.DisableVertexAttribArray(location) }

func (c *Context) DrawTriangleStrip(first, count int32) { gl.DrawArrays(gl.TRIANGLE_STRIP, first, count) }
