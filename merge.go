package drafter

import (
	"math"
	"sort"
)

// mergeGroupKey groups lines that may legally merge with one another.
type mergeGroupKey struct {
	model      int
	entity     uint32
	category   LineCategory
	visibility Visibility
}

// MergeLines merges collinear, touching or overlapping lines within each
// (model, entity, category, visibility) group into longer lines. Merging
// never mixes groups, so a hidden wall line can never fuse with a visible
// one.
func MergeLines(lines []DrawingLine, cfg MergeConfig) []DrawingLine {
	groups := make(map[mergeGroupKey][]DrawingLine)
	var keys []mergeGroupKey
	for _, l := range lines {
		k := mergeGroupKey{l.ModelIndex, l.EntityID, l.Category, l.Visibility}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], l)
	}

	// Deterministic group order regardless of map iteration.
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.model != b.model {
			return a.model < b.model
		}
		if a.entity != b.entity {
			return a.entity < b.entity
		}
		if a.category != b.category {
			return a.category < b.category
		}
		return a.visibility < b.visibility
	})

	var out []DrawingLine
	for _, k := range keys {
		out = append(out, mergeGroup(groups[k], cfg)...)
	}
	return out
}

// angleBucket collects lines sharing one direction, mod pi.
type angleBucket struct {
	angle float64
	lines []DrawingLine
}

// mergeGroup merges one group: bucket by direction angle, split each
// bucket into same-infinite-line runs, then merge 1D parameter intervals
// along each run.
func mergeGroup(lines []DrawingLine, cfg MergeConfig) []DrawingLine {
	var buckets []angleBucket
	var degenerate []DrawingLine

	for _, l := range lines {
		d := l.End.Sub(l.Start)
		if d.LengthSq() == 0 {
			degenerate = append(degenerate, l)
			continue
		}
		a := lineAngle(d)
		placed := false
		for i := range buckets {
			if angleDiffModPi(buckets[i].angle, a) <= cfg.AngleTolerance {
				buckets[i].lines = append(buckets[i].lines, l)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, angleBucket{angle: a, lines: []DrawingLine{l}})
		}
	}

	out := degenerate
	for _, b := range buckets {
		out = append(out, mergeBucket(b.lines, cfg)...)
	}
	return out
}

// mergeBucket groups same-direction lines lying on the same infinite
// line and merges each such run.
func mergeBucket(lines []DrawingLine, cfg MergeConfig) []DrawingLine {
	assigned := make([]bool, len(lines))
	var out []DrawingLine

	for i := range lines {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		origin := lines[i].Start
		dir := lines[i].End.Sub(lines[i].Start).Normalize()

		run := []DrawingLine{lines[i]}
		for j := i + 1; j < len(lines); j++ {
			if assigned[j] {
				continue
			}
			if perpDistance(origin, dir, lines[j].Start) <= cfg.LineTolerance &&
				perpDistance(origin, dir, lines[j].End) <= cfg.LineTolerance {
				assigned[j] = true
				run = append(run, lines[j])
			}
		}
		out = append(out, mergeRun(run, origin, dir, cfg)...)
	}
	return out
}

// interval is a 1D span along a shared line parameterization.
type interval struct {
	start, end float64
	proto      DrawingLine
}

// mergeRun projects every segment of one same-line run onto a shared 1D
// parameter, sorts the intervals, and merges any that overlap or sit
// closer than the gap tolerance.
func mergeRun(run []DrawingLine, origin, dir Point2D, cfg MergeConfig) []DrawingLine {
	intervals := make([]interval, 0, len(run))
	for _, l := range run {
		s := l.Start.Sub(origin).Dot(dir)
		e := l.End.Sub(origin).Dot(dir)
		if s > e {
			s, e = e, s
		}
		intervals = append(intervals, interval{start: s, end: e, proto: l})
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })

	var out []DrawingLine
	cur := intervals[0]
	minDepth := cur.proto.Depth
	flush := func() {
		l := cur.proto
		l.Start = origin.Add(dir.Mul(cur.start))
		l.End = origin.Add(dir.Mul(cur.end))
		l.Depth = minDepth
		out = append(out, l)
	}
	for _, iv := range intervals[1:] {
		if iv.start <= cur.end+cfg.GapTolerance {
			if iv.end > cur.end {
				cur.end = iv.end
			}
			if iv.proto.Depth < minDepth {
				minDepth = iv.proto.Depth
			}
			continue
		}
		flush()
		cur = iv
		minDepth = cur.proto.Depth
	}
	flush()
	return out
}

// DedupeLines removes duplicate lines: two lines are equal when their
// endpoints match in either order within the tolerance. Dedup is usable
// independently of merging.
func DedupeLines(lines []DrawingLine, tol float64) []DrawingLine {
	type key struct {
		ax, ay, bx, by int64
		category       LineCategory
		visibility     Visibility
		model          int
		entity         uint32
	}
	quant := func(v float64) int64 {
		return int64(math.Round(v / tol))
	}
	seen := make(map[key]bool, len(lines))
	out := make([]DrawingLine, 0, len(lines))
	for _, l := range lines {
		a := [2]int64{quant(l.Start.X), quant(l.Start.Y)}
		b := [2]int64{quant(l.End.X), quant(l.End.Y)}
		// Normalize endpoint order so reversed duplicates collide.
		if b[0] < a[0] || (b[0] == a[0] && b[1] < a[1]) {
			a, b = b, a
		}
		k := key{a[0], a[1], b[0], b[1], l.Category, l.Visibility, l.ModelIndex, l.EntityID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
	}
	return out
}

// lineAngle returns the direction angle of d normalized to [0, pi),
// since line direction is undirected.
func lineAngle(d Point2D) float64 {
	a := math.Atan2(d.Y, d.X)
	if a < 0 {
		a += math.Pi
	}
	if a >= math.Pi {
		a -= math.Pi
	}
	return a
}

// angleDiffModPi returns the smallest difference between two undirected
// line angles.
func angleDiffModPi(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > math.Pi/2 {
		d = math.Pi - d
	}
	return d
}

// perpDistance returns the perpendicular distance from p to the infinite
// line through origin with unit direction dir, via the 2D cross product.
func perpDistance(origin, dir, p Point2D) float64 {
	return math.Abs(dir.Cross(p.Sub(origin)))
}
