package render

// ShaderKind selects the pipeline stage a shader is compiled for.
type ShaderKind int

const (
    VertexShader ShaderKind = iota
    FragmentShader
)

func (k ShaderKind) String() string {
    if k == VertexShader { return "vertex" }
    return "fragment"
}

// Texture parameter names and values. They carry the OpenGL enum values so
// backends can pass them straight through.
const (
    TextureMagFilter int32 = 0x2800
    TextureMinFilter int32 = 0x2801
    TextureWrapS     int32 = 0x2802
    TextureWrapT     int32 = 0x2803

    Linear      int32 = 0x2601
    ClampToEdge int32 = 0x812F
)

// GL is the subset of the OpenGL API the pipeline drives. All methods are
// called on the render thread with the surface's context current.
// Implementations keep the call-for-call shape of the underlying API so the
// pipeline, not the backend, owns the state handling.
type GL interface {
    ClearColor(r, g, b, a float32)
    Clear()
    Viewport(x, y, width, height int32)
    PixelStoreUnpackAlignment(n int32)

    CreateShader(kind ShaderKind) uint32
    ShaderSource(shader uint32, src string)
    CompileShader(shader uint32)
    // ShaderStatus reports the compile status and the info log.
    ShaderStatus(shader uint32) (ok bool, log string)
    DeleteShader(shader uint32)

    CreateProgram() uint32
    AttachShader(program, shader uint32)
    LinkProgram(program uint32)
    // ProgramStatus reports the link status and the info log.
    ProgramStatus(program uint32) (ok bool, log string)
    UseProgram(program uint32)
    DeleteProgram(program uint32)
    AttribLocation(program uint32, name string) int32
    UniformLocation(program uint32, name string) int32
    Uniform1i(location, v int32)

    GenTexture() uint32
    // ActiveTexture selects a texture unit by index, 0 being TEXTURE0.
    ActiveTexture(unit uint32)
    BindTexture2D(texture uint32)
    TexParameter2D(pname, param int32)
    // TexImage2DRGBA uploads pixels as the full level-0 RGBA8 image of the
    // bound 2D texture.
    TexImage2DRGBA(width, height int32, pixels []byte)
    DeleteTexture(texture uint32)

    GenBuffer() uint32
    // BufferData uploads data as static vertex data into buffer.
    BufferData(buffer uint32, data []float32)
    DeleteBuffer(buffer uint32)
    // VertexAttribPointer points attribute location at tightly packed
    // float components of buffer.
    VertexAttribPointer(location uint32, buffer uint32, components int32)
    EnableVertexAttribArray(location uint32)
    DisableVertexAttribArray(location uint32)

    DrawTriangleStrip(first, count int32)
}
