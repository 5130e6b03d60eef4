package drafter

import (
	"math"
	"sort"
)

// edgeKey identifies an undirected mesh edge by its ordered vertex pair.
type edgeKey struct {
	lo, hi uint32
}

func makeEdgeKey(a, b uint32) edgeKey {
	if a < b {
		return edgeKey{lo: a, hi: b}
	}
	return edgeKey{lo: b, hi: a}
}

// edgeFaces tracks up to two adjacent triangles per undirected edge.
// Non-manifold meshes can have more; extra faces are counted but only
// the first two normals participate in the dihedral test.
type edgeFaces struct {
	faces [2]int
	count int
}

// ExtractFeatureEdges scans a mesh for boundary and crease edges via
// face adjacency and dihedral angle. Smooth interior edges are discarded;
// only feature edges appear in a drawing.
func ExtractFeatureEdges(m *Mesh, cfg EdgeConfig) []EdgeData {
	tris := m.TriangleCount()
	normals := make([]Vec3, tris)
	adjacency := make(map[edgeKey]*edgeFaces, tris*3/2)

	for t := 0; t < tris; t++ {
		v0, v1, v2 := m.Triangle(t)
		// Degenerate triangles normalize to the zero vector, which the
		// dihedral clamp tolerates.
		normals[t] = v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()

		i0 := m.Indices[t*3]
		i1 := m.Indices[t*3+1]
		i2 := m.Indices[t*3+2]
		for _, k := range [3]edgeKey{makeEdgeKey(i0, i1), makeEdgeKey(i1, i2), makeEdgeKey(i2, i0)} {
			ef := adjacency[k]
			if ef == nil {
				ef = &edgeFaces{}
				adjacency[k] = ef
			}
			if ef.count < 2 {
				ef.faces[ef.count] = t
			}
			ef.count++
		}
	}

	// Deterministic output order regardless of map iteration.
	keys := make([]edgeKey, 0, len(adjacency))
	for k := range adjacency {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].lo != keys[j].lo {
			return keys[i].lo < keys[j].lo
		}
		return keys[i].hi < keys[j].hi
	})

	var out []EdgeData
	for _, k := range keys {
		ef := adjacency[k]
		e := EdgeData{
			A:         m.Vertex(k.lo),
			B:         m.Vertex(k.hi),
			FaceCount: ef.count,
		}
		switch {
		case ef.count == 1:
			e.N0 = normals[ef.faces[0]]
			e.Kind = EdgeBoundary
		default:
			e.N0 = normals[ef.faces[0]]
			e.N1 = normals[ef.faces[1]]
			dot := clamp(e.N0.Dot(e.N1), -1, 1)
			e.Dihedral = math.Acos(dot)
			if e.Dihedral > cfg.CreaseAngle {
				e.Kind = EdgeCrease
			} else {
				e.Kind = EdgeSmooth
			}
		}
		if e.Kind == EdgeSmooth {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SilhouetteEdges returns the edges outlining the mesh for the given view
// direction: every boundary edge, plus interior edges whose adjacent
// faces face toward vs. away from the viewer.
//
// The input normally comes from ExtractFeatureEdges with the crease
// threshold lowered to keep smooth edges; feature edges alone already
// include all boundaries.
func SilhouetteEdges(edges []EdgeData, viewDir Vec3) []EdgeData {
	var out []EdgeData
	for _, e := range edges {
		if e.Kind == EdgeBoundary {
			out = append(out, e)
			continue
		}
		d0 := e.N0.Dot(viewDir)
		d1 := e.N1.Dot(viewDir)
		if (d0 > 0 && d1 < 0) || (d0 < 0 && d1 > 0) {
			out = append(out, e)
		}
	}
	return out
}

// FilterEdgesByDepth keeps edges relevant to the drawing's projection
// band: those with an endpoint whose on-axis offset from the plane lies
// in [0, maxDepth] (or [-maxDepth, 0] for flipped sections), plus edges
// spanning the entire band with both endpoints outside it.
func FilterEdgesByDepth(edges []EdgeData, plane SectionPlane, maxDepth float64) []EdgeData {
	lo, hi := 0.0, maxDepth
	if plane.Flipped {
		lo, hi = -maxDepth, 0.0
	}
	var out []EdgeData
	for _, e := range edges {
		da := plane.Depth(e.A)
		db := plane.Depth(e.B)
		inA := da >= lo && da <= hi
		inB := db >= lo && db <= hi
		spans := (da < lo && db > hi) || (db < lo && da > hi)
		if inA || inB || spans {
			out = append(out, e)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
