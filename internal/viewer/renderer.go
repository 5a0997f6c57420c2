package viewer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-extrude/internal/gpu"
	"github.com/Faultbox/midgard-extrude/pkg/extrude"
	"github.com/Faultbox/midgard-extrude/pkg/math"
)

const meshVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aTexCoord;

uniform mat4 uViewProj;
uniform mat4 uModel;

out vec3 vNormal;
out vec2 vTexCoord;

void main() {
    vNormal = mat3(uModel) * aNormal;
    vTexCoord = aTexCoord;
    gl_Position = uViewProj * uModel * vec4(aPosition, 1.0);
}
`

const meshFragmentShader = `#version 410 core
in vec3 vNormal;
in vec2 vTexCoord;

uniform sampler2D uTexture;
uniform vec3 uLightDir;

out vec4 FragColor;

void main() {
    vec4 color = texture(uTexture, vTexCoord);
    if (color.a < 0.01) {
        discard;
    }
    float diffuse = max(dot(normalize(vNormal), -uLightDir), 0.0);
    FragColor = vec4(color.rgb * (0.35 + 0.65 * diffuse), color.a);
}
`

// floats per interleaved vertex: position, normal, uv
const vertexStride = 3 + 3 + 2

// meshRenderer draws one extruded mesh with its texture.
type meshRenderer struct {
	program uint32

	locViewProj int32
	locModel    int32
	locTexture  int32
	locLightDir int32

	vao, vbo, ebo uint32
	indexCount    int32

	tex    *gpu.Texture
	texSrc *image.NRGBA
}

func newMeshRenderer() (*meshRenderer, error) {
	program, err := gpu.CompileProgram(meshVertexShader, meshFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("mesh shader: %w", err)
	}

	r := &meshRenderer{
		program:     program,
		locViewProj: gpu.Uniform(program, "uViewProj"),
		locModel:    gpu.Uniform(program, "uModel"),
		locTexture:  gpu.Uniform(program, "uTexture"),
		locLightDir: gpu.Uniform(program, "uLightDir"),
	}

	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.GenBuffers(1, &r.ebo)

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)

	stride := int32(vertexStride * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)
	return r, nil
}

// upload replaces the vertex and index buffers with mesh.
func (r *meshRenderer) upload(mesh *extrude.Mesh) {
	r.indexCount = int32(len(mesh.Triangles))
	if mesh.Empty() {
		return
	}

	normals := mesh.Normals()
	data := make([]float32, 0, len(mesh.Vertices)*vertexStride)
	for i, v := range mesh.Vertices {
		n, uv := normals[i], mesh.UVs[i]
		data = append(data, v.X, v.Y, v.Z, n.X, n.Y, n.Z, uv.X, uv.Y)
	}

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Triangles)*4, gl.Ptr(mesh.Triangles), gl.DYNAMIC_DRAW)
	gl.BindVertexArray(0)
}

// setTexture uploads img unless it is already the bound texture source.
func (r *meshRenderer) setTexture(img *image.NRGBA) error {
	if img == r.texSrc && r.tex != nil {
		return nil
	}
	tex, err := gpu.Upload(img)
	if err != nil {
		return err
	}
	if r.tex != nil {
		r.tex.Delete()
	}
	r.tex, r.texSrc = tex, img
	return nil
}

// draw renders the mesh. The model matrix mirrors Z so the -Z front faces
// point at a camera on +Z, which flips the winding to clockwise.
func (r *meshRenderer) draw(viewProj math.Mat4) {
	if r.indexCount == 0 || r.tex == nil {
		return
	}
	model := math.Scale(1, 1, -1)
	light := math.Vec3{X: 0.3, Y: -0.5, Z: -1}.Normalize()

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	gl.FrontFace(gl.CW)
	gl.CullFace(gl.BACK)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.locViewProj, 1, false, viewProj.Ptr())
	gl.UniformMatrix4fv(r.locModel, 1, false, model.Ptr())
	gl.Uniform3f(r.locLightDir, light.X, light.Y, light.Z)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.tex.ID)
	gl.Uniform1i(r.locTexture, 0)

	gl.BindVertexArray(r.vao)
	gl.DrawElementsWithOffset(gl.TRIANGLES, r.indexCount, gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
	gl.FrontFace(gl.CCW)
}

func (r *meshRenderer) destroy() {
	if r.tex != nil {
		r.tex.Delete()
	}
	gl.DeleteBuffers(1, &r.ebo)
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteVertexArrays(1, &r.vao)
	gl.DeleteProgram(r.program)
}
