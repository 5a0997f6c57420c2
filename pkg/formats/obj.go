package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Faultbox/midgard-extrude/pkg/extrude"
	"github.com/Faultbox/midgard-extrude/pkg/math"
)

// ErrEmptyMesh is returned when there is nothing to export.
var ErrEmptyMesh = errors.New("mesh has no faces")

// OBJOptions controls Wavefront OBJ output.
type OBJOptions struct {
	Name        string  // object name ("o" line), optional
	MaterialLib string  // .mtl file referenced by "mtllib", optional
	Material    string  // material for "usemtl", optional
	Scale       float32 // vertex scale, 0 means 1
	Center      bool    // move the bounding box center to the origin
}

// WriteOBJ writes mesh as a Wavefront OBJ. Each quad gets one normal and
// triangles keep the mesh winding.
func WriteOBJ(w io.Writer, mesh *extrude.Mesh, opts OBJOptions) error {
	if mesh == nil || mesh.Empty() {
		return ErrEmptyMesh
	}
	if err := mesh.Validate(); err != nil {
		return fmt.Errorf("writing OBJ: %w", err)
	}

	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	var offset math.Vec3
	if opts.Center {
		lo, hi := mesh.Bounds()
		offset = lo.Add(hi).Scale(0.5)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d faces, depth %s\n", mesh.FaceCount(), ftoa(mesh.Depth))
	if opts.MaterialLib != "" {
		fmt.Fprintf(bw, "mtllib %s\n", opts.MaterialLib)
	}
	if opts.Name != "" {
		fmt.Fprintf(bw, "o %s\n", opts.Name)
	}

	for _, v := range mesh.Vertices {
		p := v.Sub(offset).Scale(scale)
		fmt.Fprintf(bw, "v %s %s %s\n", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	for _, uv := range mesh.UVs {
		fmt.Fprintf(bw, "vt %s %s\n", ftoa(uv.X), ftoa(uv.Y))
	}

	normals := mesh.Normals()
	for i := 0; i < len(normals); i += 4 {
		n := normals[i]
		fmt.Fprintf(bw, "vn %s %s %s\n", ftoa(n.X), ftoa(n.Y), ftoa(n.Z))
	}

	if opts.Material != "" {
		fmt.Fprintf(bw, "usemtl %s\n", opts.Material)
	}
	for t := 0; t < len(mesh.Triangles); t += 3 {
		bw.WriteString("f")
		for _, idx := range mesh.Triangles[t : t+3] {
			// OBJ indices are 1-based; vertex and uv share an index.
			vi := idx + 1
			ni := idx/4 + 1
			fmt.Fprintf(bw, " %d/%d/%d", vi, vi, ni)
		}
		bw.WriteString("\n")
	}

	return bw.Flush()
}

// WriteMTL writes a single material that samples texturePath for color and
// alpha.
func WriteMTL(w io.Writer, name, texturePath string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "newmtl %s\n", name)
	bw.WriteString("Ka 1 1 1\nKd 1 1 1\nKs 0 0 0\nd 1\nillum 1\n")
	if texturePath != "" {
		fmt.Fprintf(bw, "map_Kd %s\n", texturePath)
		fmt.Fprintf(bw, "map_d %s\n", texturePath)
	}
	return bw.Flush()
}

func ftoa(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}
