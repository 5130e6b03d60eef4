package drafter

import (
	"math"
	"testing"
)

func hline(x0, x1 float64) DrawingLine {
	return DrawingLine{
		Start: P2(x0, 0), End: P2(x1, 0),
		Category: CategoryCut, Visibility: VisibilityVisible,
	}
}

func totalLength(lines []DrawingLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.Length()
	}
	return sum
}

func TestMergeLines_CollinearChain(t *testing.T) {
	// Five unit segments along the x axis collapse into one line.
	lines := []DrawingLine{
		hline(0, 1), hline(1, 2), hline(2, 3), hline(3, 4), hline(4, 5),
	}
	out := MergeLines(lines, DefaultMergeConfig())
	if len(out) != 1 {
		t.Fatalf("merged lines = %d, want 1", len(out))
	}
	if got := out[0].Length(); math.Abs(got-5) > 1e-9 {
		t.Errorf("merged length = %v, want 5", got)
	}
}

func TestMergeLines_ReversedOrder(t *testing.T) {
	// Segment direction and input order must not matter.
	lines := []DrawingLine{
		hline(4, 5), hline(1, 0), hline(2, 3), hline(3, 2), hline(4, 3), hline(1, 2),
	}
	out := MergeLines(lines, DefaultMergeConfig())
	if len(out) != 1 {
		t.Fatalf("merged lines = %d, want 1", len(out))
	}
	if got := out[0].Length(); math.Abs(got-5) > 1e-9 {
		t.Errorf("merged length = %v, want 5", got)
	}
}

func TestMergeLines_GapNotBridged(t *testing.T) {
	// A gap wider than the tolerance keeps the segments apart.
	lines := []DrawingLine{hline(0, 1), hline(1.5, 2.5)}
	out := MergeLines(lines, DefaultMergeConfig())
	if len(out) != 2 {
		t.Fatalf("merged lines = %d, want 2", len(out))
	}
	if got := totalLength(out); math.Abs(got-2) > 1e-9 {
		t.Errorf("total length = %v, want 2", got)
	}
}

func TestMergeLines_ParallelOffsetNotMerged(t *testing.T) {
	// Parallel but offset lines stay separate.
	lines := []DrawingLine{
		hline(0, 1),
		{Start: P2(0, 0.5), End: P2(1, 0.5), Category: CategoryCut, Visibility: VisibilityVisible},
	}
	out := MergeLines(lines, DefaultMergeConfig())
	if len(out) != 2 {
		t.Fatalf("merged lines = %d, want 2", len(out))
	}
}

func TestMergeLines_CategoriesKeptApart(t *testing.T) {
	a := hline(0, 1)
	b := hline(1, 2)
	b.Category = CategoryProjection
	out := MergeLines([]DrawingLine{a, b}, DefaultMergeConfig())
	if len(out) != 2 {
		t.Fatalf("merged lines = %d, want 2", len(out))
	}
}

func TestMergeLines_VisibilityKeptApart(t *testing.T) {
	a := hline(0, 1)
	b := hline(1, 2)
	b.Visibility = VisibilityHidden
	out := MergeLines([]DrawingLine{a, b}, DefaultMergeConfig())
	if len(out) != 2 {
		t.Fatalf("merged lines = %d, want 2", len(out))
	}
}

func TestMergeLines_OverlapTakesMinDepth(t *testing.T) {
	a := hline(0, 2)
	a.Depth = 3
	b := hline(1, 3)
	b.Depth = 1
	out := MergeLines([]DrawingLine{a, b}, DefaultMergeConfig())
	if len(out) != 1 {
		t.Fatalf("merged lines = %d, want 1", len(out))
	}
	if out[0].Depth != 1 {
		t.Errorf("merged depth = %v, want 1", out[0].Depth)
	}
}

func TestDedupeLines(t *testing.T) {
	a := hline(0, 1)
	b := hline(1, 0) // same line, reversed
	c := hline(0, 1)
	out := DedupeLines([]DrawingLine{a, b, c}, 1e-6)
	if len(out) != 1 {
		t.Fatalf("deduped lines = %d, want 1", len(out))
	}
}

func TestDedupeLines_DistinctSurvive(t *testing.T) {
	a := hline(0, 1)
	b := hline(0, 2)
	c := hline(0, 1)
	c.Category = CategoryProjection
	out := DedupeLines([]DrawingLine{a, b, c}, 1e-6)
	if len(out) != 3 {
		t.Fatalf("deduped lines = %d, want 3", len(out))
	}
}

// Benchmarks

func BenchmarkMergeLines(b *testing.B) {
	var lines []DrawingLine
	for i := 0; i < 500; i++ {
		lines = append(lines, hline(float64(i), float64(i)+1))
	}
	cfg := DefaultMergeConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MergeLines(lines, cfg)
	}
}
