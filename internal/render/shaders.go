package render

// Default shaders. The GLSL dialect matches the 4.1 core backend.
const (
    DefaultVertexShader = `#version 410 core
in vec4 aPosition;
in vec2 aTexCoord;
out vec2 vTexCoord;
void main() {
    gl_Position = aPosition;
    vTexCoord = aTexCoord;
}
`

    DefaultFragmentShader = `#version 410 core
in vec2 vTexCoord;
uniform sampler2D uTexture;
out vec4 fragColor;
void main() {
    fragColor = texture(uTexture, vTexCoord);
}
`
)

const (
    attrPosition    = "aPosition"
    attrTexCoord    = "aTexCoord"
    uniformTexture  = "uTexture"
)

// quadVertices is a full-screen triangle strip.
var quadVertices = []float32{
    -1, -1,
    1, -1,
    -1, 1,
    1, 1,
}

// quadTexCoords maps the strip so the sensor's landscape image shows up
// upright: each corner samples the texture rotated a quarter turn.
var quadTexCoords = []float32{
    1, 1,
    1, 0,
    0, 1,
    0, 0,
}
