package stl

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const asciiTetra = `solid tetra
  facet normal 0 0 -1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0 -1 0
    outer loop
      vertex 0 0 0
      vertex 0 0 1
      vertex 1 0 0
    endloop
  endfacet
  facet normal -1 0 0
    outer loop
      vertex 0 0 0
      vertex 0 1 0
      vertex 0 0 1
    endloop
  endfacet
  facet normal 1 1 1
    outer loop
      vertex 1 0 0
      vertex 0 0 1
      vertex 0 1 0
    endloop
  endfacet
endsolid tetra
`

func TestRead_ASCII(t *testing.T) {
	m, err := Read(strings.NewReader(asciiTetra))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if m.TriangleCount() != 4 {
		t.Errorf("triangles = %d, want 4", m.TriangleCount())
	}
	// Four facets sharing corners weld down to four vertices.
	if m.VertexCount() != 4 {
		t.Errorf("vertices = %d, want 4", m.VertexCount())
	}
	if m.IfcType != "tetra" {
		t.Errorf("name = %q, want tetra", m.IfcType)
	}
}

func TestRead_ASCIIMalformedVertex(t *testing.T) {
	bad := "solid x\nfacet normal 0 0 1\nouter loop\nvertex 1 2\nendloop\nendfacet\nendsolid x\n"
	if _, err := Read(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for short vertex line")
	}
}

// binaryTriangles encodes facets in binary STL layout.
func binaryTriangles(header string, tris [][3][3]float32) []byte {
	var buf bytes.Buffer
	h := make([]byte, 80)
	copy(h, header)
	buf.Write(h)
	binary.Write(&buf, binary.LittleEndian, uint32(len(tris)))
	for _, tri := range tris {
		binary.Write(&buf, binary.LittleEndian, [3]float32{0, 0, 1}) // normal
		for _, v := range tri {
			binary.Write(&buf, binary.LittleEndian, v)
		}
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func TestRead_Binary(t *testing.T) {
	data := binaryTriangles("part", [][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		{{1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	})
	m, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if m.TriangleCount() != 2 {
		t.Errorf("triangles = %d, want 2", m.TriangleCount())
	}
	// The shared edge vertices weld: 4 unique corners.
	if m.VertexCount() != 4 {
		t.Errorf("vertices = %d, want 4", m.VertexCount())
	}
}

func TestRead_BinaryWithSolidHeader(t *testing.T) {
	// Binary files sometimes carry "solid" in the comment header; the
	// reader must not mistake them for ASCII.
	data := binaryTriangles("solid exported-from-cad", [][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	})
	m, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if m.TriangleCount() != 1 {
		t.Errorf("triangles = %d, want 1", m.TriangleCount())
	}
}

func TestRead_DegenerateFacetDropped(t *testing.T) {
	data := binaryTriangles("x", [][3][3]float32{
		{{0, 0, 0}, {0, 0, 0}, {0, 1, 0}}, // two identical corners
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	})
	m, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if m.TriangleCount() != 1 {
		t.Errorf("triangles = %d, want 1", m.TriangleCount())
	}
}

func TestRead_TruncatedBinary(t *testing.T) {
	data := binaryTriangles("x", [][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	})
	if _, err := Read(bytes.NewReader(data[:len(data)-10])); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tetra.stl")
	if err := os.WriteFile(path, []byte(asciiTetra), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.TriangleCount() != 4 {
		t.Errorf("triangles = %d, want 4", m.TriangleCount())
	}
	v := m.Vertex(0)
	if math.IsNaN(v.X) {
		t.Error("vertex decode broken")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.stl")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
