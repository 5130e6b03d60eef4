package drafter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dhconnelly/rtreego"
)

// OpeningKind classifies a subtractive feature in a host element.
type OpeningKind int

const (
	// OpeningGeneric is a plain penetration with no filling element.
	OpeningGeneric OpeningKind = iota

	// OpeningDoor is an opening filled by a door.
	OpeningDoor

	// OpeningWindow is an opening filled by a window.
	OpeningWindow
)

// DoorOperation is the door/window operation subtype inferred from the
// filling element's property bag.
type DoorOperation int

const (
	// OperationSingleSwingLeft is the documented default when the
	// property bag carries no operation type.
	OperationSingleSwingLeft DoorOperation = iota
	OperationSingleSwingRight
	OperationDoubleSwing
	OperationSliding
	OperationFixed
)

// OpeningInfo describes one opening: its kind, 3D bounds, and operation
// subtype for doors and windows.
type OpeningInfo struct {
	ID        uint32
	Kind      OpeningKind
	Bounds    Bounds3
	Operation DoorOperation
}

// VoidRelation links a host element to an opening that voids it.
type VoidRelation struct {
	HostKey    string
	OpeningKey string
}

// FillRelation links an opening to the element that fills it.
type FillRelation struct {
	OpeningKey string
	ElementKey string
}

// EntityMeta is the per-entity metadata handed in by the relationship
// source: type tag, 3D bounds, and a property bag of well-known names.
type EntityMeta struct {
	Key        string
	IfcType    string
	Bounds     Bounds3
	Properties map[string]string
}

// OpeningRelationships holds the opening topology of one model, built
// once before cutting.
type OpeningRelationships struct {
	// VoidedBy maps a host entity to the openings that void it.
	VoidedBy map[uint32][]uint32

	// FilledBy maps an opening to the element filling it.
	FilledBy map[uint32]uint32

	// Openings maps an opening id to its description.
	Openings map[uint32]OpeningInfo
}

// ParseEntityKey splits a "modelIndex:expressID" key into its two numeric
// components. A key that cannot be parsed makes the request meaningless,
// so this is one of the few reportable errors in the pipeline.
func ParseEntityKey(key string) (int, uint32, error) {
	lhs, rhs, ok := strings.Cut(key, ":")
	if !ok {
		return 0, 0, fmt.Errorf("drafter: entity key %q: missing separator", key)
	}
	model, err := strconv.Atoi(lhs)
	if err != nil {
		return 0, 0, fmt.Errorf("drafter: entity key %q: bad model index: %w", key, err)
	}
	id, err := strconv.ParseUint(rhs, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("drafter: entity key %q: bad entity id: %w", key, err)
	}
	return model, uint32(id), nil
}

// BuildOpeningRelationships assembles the opening topology from the raw
// void and fill relationship lists plus per-entity metadata. Entries with
// unparseable keys are the caller's error; entries referencing unknown
// metadata degrade to generic openings with default operation.
func BuildOpeningRelationships(voids []VoidRelation, fills []FillRelation, meta []EntityMeta) (*OpeningRelationships, error) {
	rels := &OpeningRelationships{
		VoidedBy: make(map[uint32][]uint32),
		FilledBy: make(map[uint32]uint32),
		Openings: make(map[uint32]OpeningInfo),
	}

	metaByID := make(map[uint32]EntityMeta, len(meta))
	for _, m := range meta {
		_, id, err := ParseEntityKey(m.Key)
		if err != nil {
			return nil, err
		}
		metaByID[id] = m
	}

	for _, f := range fills {
		_, opening, err := ParseEntityKey(f.OpeningKey)
		if err != nil {
			return nil, err
		}
		_, element, err := ParseEntityKey(f.ElementKey)
		if err != nil {
			return nil, err
		}
		rels.FilledBy[opening] = element
	}

	for _, v := range voids {
		_, host, err := ParseEntityKey(v.HostKey)
		if err != nil {
			return nil, err
		}
		_, opening, err := ParseEntityKey(v.OpeningKey)
		if err != nil {
			return nil, err
		}
		rels.VoidedBy[host] = append(rels.VoidedBy[host], opening)

		info := OpeningInfo{ID: opening, Kind: OpeningGeneric}
		if om, ok := metaByID[opening]; ok {
			info.Bounds = om.Bounds
		}
		if filler, ok := rels.FilledBy[opening]; ok {
			if fm, ok := metaByID[filler]; ok {
				switch strings.ToUpper(fm.IfcType) {
				case "IFCDOOR", "IFCDOORSTANDARDCASE":
					info.Kind = OpeningDoor
				case "IFCWINDOW", "IFCWINDOWSTANDARDCASE":
					info.Kind = OpeningWindow
				}
				info.Operation = inferOperation(fm.Properties)
			}
		}
		rels.Openings[opening] = info
	}
	return rels, nil
}

// inferOperation reads the door/window operation subtype from well-known
// property names, defaulting to a left single swing when absent.
func inferOperation(props map[string]string) DoorOperation {
	val := ""
	for _, name := range []string{"OperationType", "operationType", "Operation"} {
		if v, ok := props[name]; ok {
			val = v
			break
		}
	}
	switch strings.ToUpper(val) {
	case "SINGLE_SWING_RIGHT":
		return OperationSingleSwingRight
	case "DOUBLE_DOOR_SINGLE_SWING", "DOUBLE_SWING_LEFT", "DOUBLE_SWING_RIGHT":
		return OperationDoubleSwing
	case "SLIDING_TO_LEFT", "SLIDING_TO_RIGHT", "DOUBLE_DOOR_SLIDING":
		return OperationSliding
	case "FIXEDPANEL", "FIXED":
		return OperationFixed
	default:
		return OperationSingleSwingLeft
	}
}

// openingRect is one opening's projected 2D bounding rectangle, indexed
// spatially so hosts with many voids do not scan every opening per
// segment.
type openingRect struct {
	id       uint32
	min, max Point2D
	bounds   rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (r *openingRect) Bounds() rtreego.Rect { return r.bounds }

// OpeningIndex holds the projected opening rectangles for one section,
// computed once by projecting each opening's 3D bounds' eight corners.
type OpeningIndex struct {
	tree  *rtreego.Rtree
	rects map[uint32]*openingRect
	rels  *OpeningRelationships
}

// NewOpeningIndex projects every opening's bounds into the section plane
// and builds the spatial index. Openings whose projection degenerates
// (NaN bounds) are skipped.
func NewOpeningIndex(rels *OpeningRelationships, plane SectionPlane) *OpeningIndex {
	ix := &OpeningIndex{
		tree:  rtreego.NewTree(2, 25, 50),
		rects: make(map[uint32]*openingRect, len(rels.Openings)),
		rels:  rels,
	}
	for id, info := range rels.Openings {
		b := EmptyBounds2()
		for _, c := range info.Bounds.Corners() {
			b = b.ExtendPoint(plane.Project(c))
		}
		if !b.Valid() {
			continue
		}
		lengths := []float64{b.Width(), b.Height()}
		for i, l := range lengths {
			if l <= 0 {
				lengths[i] = 1e-9
			}
		}
		rect, err := rtreego.NewRect(rtreego.Point{b.Min.X, b.Min.Y}, lengths)
		if err != nil {
			continue
		}
		r := &openingRect{id: id, min: b.Min, max: b.Max, bounds: rect}
		ix.rects[id] = r
		ix.tree.Insert(r)
	}
	return ix
}

// FilterSegments subtracts the host's opening rectangles from its cut
// segments: segments fully inside an opening are dropped, crossing
// segments are split at the rectangle edges and only the pieces whose
// midpoints lie outside survive. Openings apply one at a time so a host
// with several voids accumulates the surviving pieces.
func (ix *OpeningIndex) FilterSegments(hostID uint32, segs []CutSegment, cfg OpeningConfig) []CutSegment {
	openings := ix.rels.VoidedBy[hostID]
	if len(openings) == 0 {
		return segs
	}
	hostSet := make(map[uint32]bool, len(openings))
	for _, id := range openings {
		hostSet[id] = true
	}

	var out []CutSegment
	for _, seg := range segs {
		region := EmptyBounds2().ExtendPoint(seg.A).ExtendPoint(seg.B)
		if !region.Valid() {
			continue
		}
		pieces := []CutSegment{seg}
		for _, id := range ix.Candidates(region) {
			if !hostSet[id] {
				continue
			}
			r := ix.rects[id]
			var next []CutSegment
			for _, p := range pieces {
				next = append(next, subtractRect(p, r, cfg.Tolerance)...)
			}
			pieces = next
			if len(pieces) == 0 {
				break
			}
		}
		out = append(out, pieces...)
	}
	return out
}

// Candidates returns the ids of openings whose rectangles intersect the
// given region, via the spatial index.
func (ix *OpeningIndex) Candidates(region Bounds2) []uint32 {
	lengths := []float64{region.Width(), region.Height()}
	for i, l := range lengths {
		if l <= 0 {
			lengths[i] = 1e-9
		}
	}
	rect, err := rtreego.NewRect(rtreego.Point{region.Min.X, region.Min.Y}, lengths)
	if err != nil {
		return nil
	}
	hits := ix.tree.SearchIntersect(rect)
	ids := make([]uint32, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.(*openingRect).id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// subtractRect removes the parts of one segment covered by one opening
// rectangle.
func subtractRect(seg CutSegment, r *openingRect, tol float64) []CutSegment {
	insideA := pointInRect(seg.A, r.min, r.max, tol)
	insideB := pointInRect(seg.B, r.min, r.max, tol)
	if insideA && insideB {
		return nil
	}

	params := rectIntersections(seg.A, seg.B, r.min, r.max)
	if len(params) == 0 {
		return []CutSegment{seg}
	}

	params = append(params, 0, 1)
	sort.Float64s(params)
	params = uniqueParams(params, 1e-9)

	var out []CutSegment
	for i := 0; i+1 < len(params); i++ {
		t0, t1 := params[i], params[i+1]
		if t1-t0 < 1e-9 {
			continue
		}
		mid := seg.A.Lerp(seg.B, (t0+t1)/2)
		if pointInRect(mid, r.min, r.max, 0) {
			continue
		}
		piece := seg
		piece.A = seg.A.Lerp(seg.B, t0)
		piece.B = seg.A.Lerp(seg.B, t1)
		piece.A3 = seg.A3.Lerp(seg.B3, t0)
		piece.B3 = seg.A3.Lerp(seg.B3, t1)
		out = append(out, piece)
	}
	return out
}

// rectIntersections returns the parameters in (0,1) where the segment
// crosses the rectangle's four edges.
func rectIntersections(a, b, min, max Point2D) []float64 {
	d := b.Sub(a)
	var params []float64

	// Vertical edges: x = min.X and x = max.X.
	for _, x := range [2]float64{min.X, max.X} {
		if d.X != 0 {
			t := (x - a.X) / d.X
			y := a.Y + t*d.Y
			if t > 0 && t < 1 && y >= min.Y && y <= max.Y {
				params = append(params, t)
			}
		}
	}
	// Horizontal edges: y = min.Y and y = max.Y.
	for _, y := range [2]float64{min.Y, max.Y} {
		if d.Y != 0 {
			t := (y - a.Y) / d.Y
			x := a.X + t*d.X
			if t > 0 && t < 1 && x >= min.X && x <= max.X {
				params = append(params, t)
			}
		}
	}
	return params
}

func uniqueParams(params []float64, eps float64) []float64 {
	out := params[:1]
	for _, p := range params[1:] {
		if p-out[len(out)-1] > eps {
			out = append(out, p)
		}
	}
	return out
}

func pointInRect(p, min, max Point2D, tol float64) bool {
	return p.X >= min.X-tol && p.X <= max.X+tol &&
		p.Y >= min.Y-tol && p.Y <= max.Y+tol
}
