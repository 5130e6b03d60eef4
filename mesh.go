package drafter

// Mesh is a triangle soup handed in by the host viewer or model parser:
// a flat vertex position array (3 floats per vertex), a flat index array
// (3 indices per triangle), and the identity tags carried through the
// whole pipeline. Meshes are read-only inputs; no stage mutates them.
type Mesh struct {
	// Positions holds x,y,z triples, one per vertex.
	Positions []float32

	// Indices holds three vertex indices per triangle.
	Indices []uint32

	// EntityID identifies the source model entity (IFC express ID).
	EntityID uint32

	// IfcType is the semantic type tag, e.g. "IFCWALL" or "IFCDOOR".
	IfcType string

	// ModelIndex identifies the owning model in a multi-model session.
	ModelIndex int
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// Vertex returns the position of vertex i. Out-of-range indices, which
// malformed index buffers can produce, return the zero vector rather
// than panicking.
func (m *Mesh) Vertex(i uint32) Vec3 {
	j := int(i) * 3
	if j < 0 || j+2 >= len(m.Positions) {
		return Vec3{}
	}
	return Vec3{
		X: float64(m.Positions[j]),
		Y: float64(m.Positions[j+1]),
		Z: float64(m.Positions[j+2]),
	}
}

// Triangle returns the three corner positions of triangle t.
func (m *Mesh) Triangle(t int) (Vec3, Vec3, Vec3) {
	j := t * 3
	return m.Vertex(m.Indices[j]), m.Vertex(m.Indices[j+1]), m.Vertex(m.Indices[j+2])
}
