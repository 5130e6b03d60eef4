package drafter

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"time"
)

// Stage identifies one phase of the generation state machine:
// cutting -> polygons -> edges -> hidden-line -> merging -> complete.
type Stage int

const (
	StageCutting Stage = iota
	StagePolygons
	StageEdges
	StageHiddenLine
	StageMerging
	StageComplete
)

// String returns the stage name reported through progress callbacks.
func (s Stage) String() string {
	switch s {
	case StageCutting:
		return "cutting"
	case StagePolygons:
		return "polygons"
	case StageEdges:
		return "edges"
	case StageHiddenLine:
		return "hidden-line"
	case StageMerging:
		return "merging"
	case StageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ProgressFunc receives (stage, fraction) notifications. Progress is
// best-effort: a panicking callback is swallowed rather than aborting
// the pipeline.
type ProgressFunc func(stage Stage, fraction float64)

// Option configures a Generator.
type Option func(*Generator)

// WithConfig replaces the default pipeline configuration.
func WithConfig(cfg Config) Option {
	return func(g *Generator) { g.cfg = cfg }
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(g *Generator) { g.progress = fn }
}

// WithCutter injects a GPU cutter for this generator only, bypassing the
// registered one. The generator owns the injected cutter and closes it
// on Close.
func WithCutter(c GPUCutter) Option {
	return func(g *Generator) {
		g.injected = c
		g.ownsCutter = true
	}
}

// WithoutGPU forces the CPU cutting path even when a GPU cutter is
// registered.
func WithoutGPU() Option {
	return func(g *Generator) { g.cpuOnly = true }
}

// Generator orchestrates the pipeline stages over a batch of meshes.
//
// A Generator is not safe for concurrent Generate calls when bound to a
// GPU cutter: GPU buffers are per-request resources, so concurrent
// callers should serialize or use one Generator each.
type Generator struct {
	cfg      Config
	progress ProgressFunc

	injected   GPUCutter
	ownsCutter bool
	cpuOnly    bool
}

// NewGenerator creates a Generator with the given options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Close releases resources the generator owns. Only injected cutters
// are closed here; the globally registered cutter stays alive for other
// generators.
func (g *Generator) Close() {
	if g.ownsCutter && g.injected != nil {
		g.injected.Close()
		g.injected = nil
	}
}

// Generate runs the full pipeline for one section over the given meshes
// and returns the finished drawing. rels may be nil when the model has
// no opening relationships.
//
// Streaming: meshes are cut in batches of Config.Stream.BatchSize and the
// generator yields between batches for Config.Stream.YieldInterval, so
// very large models do not monopolize the caller. Cancelling ctx between
// batches abandons the run.
func (g *Generator) Generate(ctx context.Context, plane SectionPlane, meshes []*Mesh, rels *OpeningRelationships) (*Drawing2D, error) {
	start := time.Now()
	log := Logger()

	d := &Drawing2D{Config: g.cfg}
	d.Stats.MeshCount = len(meshes)

	// Stage 1: cutting, CPU or GPU per mesh, batched.
	segmentsByEntity, err := g.cutStage(ctx, plane, meshes, d)
	if err != nil {
		return nil, err
	}
	cutElapsed := time.Since(start)
	d.Stats.CutTime = cutElapsed

	// Stage 2: opening subtraction, then polygons per entity.
	g.emitProgress(StagePolygons, 0)
	polyStart := time.Now()

	var index *OpeningIndex
	if rels != nil {
		index = NewOpeningIndex(rels, plane)
	}

	entities := make([]entityKey, 0, len(segmentsByEntity))
	for k := range segmentsByEntity {
		entities = append(entities, k)
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].model != entities[j].model {
			return entities[i].model < entities[j].model
		}
		return entities[i].entity < entities[j].entity
	})

	var cutLines []DrawingLine
	for i, k := range entities {
		segs := segmentsByEntity[k]
		if index != nil {
			segs = index.FilterSegments(k.entity, segs, g.cfg.Opening)
		}
		for _, s := range segs {
			cutLines = append(cutLines, DrawingLine{
				Start:      s.A,
				End:        s.B,
				Category:   CategoryCut,
				Visibility: VisibilityVisible,
				EntityID:   s.EntityID,
				IfcType:    s.IfcType,
				ModelIndex: s.ModelIndex,
			})
		}

		res := BuildPolygons(segs, g.cfg.Polygon)
		for _, p := range res.Polygons {
			d.CutPolygons = append(d.CutPolygons, DrawingPolygon{
				Polygon:    p,
				EntityID:   k.entity,
				IfcType:    segTypeOf(segs),
				ModelIndex: k.model,
				IsCut:      true,
			})
		}
		d.OpenLoops = append(d.OpenLoops, res.OpenLoops...)
		g.emitProgress(StagePolygons, float64(i+1)/float64(len(entities)))
	}
	d.Stats.PolygonTime = time.Since(polyStart)
	d.Stats.CutPolygons = len(d.CutPolygons)
	d.Stats.OpenLoops = len(d.OpenLoops)

	cutBounds := EmptyBounds2()
	for _, l := range cutLines {
		cutBounds = cutBounds.ExtendPoint(l.Start).ExtendPoint(l.End)
	}

	// Stage 3: feature edges and silhouettes beyond the plane.
	g.emitProgress(StageEdges, 0)
	edgeStart := time.Now()
	viewDir := plane.ViewDirection()
	var featureLines []DrawingLine
	for i, m := range meshes {
		edges := ExtractFeatureEdges(m, g.cfg.Edge)
		edges = FilterEdgesByDepth(edges, plane, g.cfg.Edge.MaxDepth)
		silhouettes := SilhouetteEdges(edges, viewDir)

		silhouetteSet := make(map[[2]Vec3]bool, len(silhouettes))
		for _, e := range silhouettes {
			silhouetteSet[[2]Vec3{e.A, e.B}] = true
		}
		for _, e := range edges {
			cat := CategoryCrease
			switch {
			case silhouetteSet[[2]Vec3{e.A, e.B}]:
				cat = CategorySilhouette
			case e.Kind == EdgeBoundary:
				cat = CategoryBoundary
			}
			l := edgeToLine(e, plane, m, cat)
			if l.Length() > 0 {
				featureLines = append(featureLines, l)
			}
		}
		g.emitProgress(StageEdges, float64(i+1)/float64(len(meshes)))
	}
	d.Stats.EdgeTime = time.Since(edgeStart)

	// Artifact suppression: abnormally long non-cut lines are almost
	// always numeric junk from sliver triangles.
	if cutBounds.Valid() {
		maxLen := g.cfg.Stream.ArtifactFactor * cutBounds.Diagonal()
		kept := featureLines[:0]
		dropped := 0
		for _, l := range featureLines {
			if l.Length() <= maxLen {
				kept = append(kept, l)
			} else {
				dropped++
			}
		}
		featureLines = kept
		if dropped > 0 {
			log.Debug("suppressed long artifact lines", "count", dropped)
		}
	}

	// Stage 4: hidden-line classification against the depth buffer.
	g.emitProgress(StageHiddenLine, 0)
	hiddenStart := time.Now()
	allBounds := cutBounds
	for _, l := range featureLines {
		allBounds = allBounds.ExtendPoint(l.Start).ExtendPoint(l.End)
	}
	if len(featureLines) > 0 && allBounds.Valid() {
		buf := NewDepthBuffer(g.cfg.Hidden.Resolution, allBounds)
		buf.RasterizeMeshes(plane, meshes)
		featureLines = ClassifyLines(featureLines, buf, g.cfg.Hidden)
	}
	d.Stats.HiddenTime = time.Since(hiddenStart)
	g.emitProgress(StageHiddenLine, 1)

	// Stage 5: merge collinear lines, drop duplicates.
	g.emitProgress(StageMerging, 0)
	mergeStart := time.Now()
	lines := append(cutLines, featureLines...)
	lines = MergeLines(lines, g.cfg.Merge)
	lines = DedupeLines(lines, g.cfg.Merge.DedupeTolerance)
	d.Lines = lines
	d.Stats.MergeTime = time.Since(mergeStart)
	g.emitProgress(StageMerging, 1)

	// Hatching fills the cut polygons.
	hatchStart := time.Now()
	for _, p := range d.CutPolygons {
		pattern := g.cfg.Hatch.PatternFor(p.IfcType)
		d.Hatches = append(d.Hatches, GenerateHatch(p, pattern, g.cfg.Hatch)...)
	}
	d.Stats.HatchTime = time.Since(hatchStart)
	d.Stats.HatchLines = len(d.Hatches)

	d.Bounds = allBounds
	for _, p := range d.CutPolygons {
		d.Bounds = d.Bounds.Union(p.Polygon.Bounds())
	}

	g.countLines(d)
	d.Stats.TotalTime = time.Since(start)
	g.emitProgress(StageComplete, 1)

	log.Debug("drawing generated",
		"meshes", d.Stats.MeshCount,
		"triangles", d.Stats.TriangleCount,
		"lines", len(d.Lines),
		"polygons", len(d.CutPolygons),
		"elapsed", d.Stats.TotalTime)
	return d, nil
}

// entityKey identifies one entity within one model.
type entityKey struct {
	model  int
	entity uint32
}

// cutStage cuts every mesh, GPU first when available, in batches with a
// cooperative yield in between.
func (g *Generator) cutStage(ctx context.Context, plane SectionPlane, meshes []*Mesh, d *Drawing2D) (map[entityKey][]CutSegment, error) {
	log := Logger()
	g.emitProgress(StageCutting, 0)

	gpuCutter := g.activeCutter()
	segmentsByEntity := make(map[entityKey][]CutSegment)

	batch := g.cfg.Stream.BatchSize
	if batch < 1 {
		batch = 1
	}

	for lo := 0; lo < len(meshes); lo += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := lo + batch
		if hi > len(meshes) {
			hi = len(meshes)
		}
		for _, m := range meshes[lo:hi] {
			segs, err := g.cutOne(gpuCutter, plane, m, d)
			if err != nil {
				return nil, err
			}
			d.Stats.TriangleCount += m.TriangleCount()
			d.Stats.Intersections += len(segs)
			if len(segs) > 0 {
				k := entityKey{model: m.ModelIndex, entity: m.EntityID}
				segmentsByEntity[k] = append(segmentsByEntity[k], segs...)
			}
		}
		g.emitProgress(StageCutting, float64(hi)/float64(len(meshes)))
		// Yield between batches so the host scheduler can run other
		// work; abandoning the context is the only cancellation.
		if err := yieldBetweenBatches(ctx, g.cfg.Stream.YieldInterval); err != nil {
			return nil, err
		}
	}

	if d.Stats.GPUUsed {
		log.Debug("cut stage complete", "path", "gpu", "intersections", d.Stats.Intersections)
	}
	return segmentsByEntity, nil
}

// yieldBetweenBatches pauses for the configured interval, or just gives
// up the processor when no interval is set.
func yieldBetweenBatches(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		runtime.Gosched()
		return nil
	}
	t := time.NewTimer(interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cutOne cuts a single mesh, falling back to the CPU when the GPU cutter
// declines or overflows. Device loss is the one GPU error that aborts.
func (g *Generator) cutOne(c GPUCutter, plane SectionPlane, m *Mesh, d *Drawing2D) ([]CutSegment, error) {
	if c != nil {
		if m.TriangleCount() > c.Capacity() {
			if err := c.Grow(m.TriangleCount()); err != nil {
				Logger().Warn("GPU buffer growth failed, using CPU", "err", err)
				segs, _ := CutMesh(plane, m, g.cfg.Cutter)
				return segs, nil
			}
		}
		segs, err := c.CutMesh(plane, m, g.cfg.Cutter)
		switch {
		case err == nil:
			d.Stats.GPUUsed = true
			return segs, nil
		case errors.Is(err, ErrDeviceLost):
			return nil, err
		case errors.Is(err, ErrFallbackToCPU):
			// Expected: capability gap, cut on CPU below.
		default:
			Logger().Warn("GPU cut failed, using CPU", "err", err)
		}
	}
	segs, _ := CutMesh(plane, m, g.cfg.Cutter)
	return segs, nil
}

// activeCutter resolves which GPU cutter, if any, this run uses.
func (g *Generator) activeCutter() GPUCutter {
	if g.cpuOnly {
		return nil
	}
	if g.injected != nil {
		return g.injected
	}
	return Cutter()
}

// emitProgress notifies the callback, swallowing panics: progress is
// best-effort and must never abort generation.
func (g *Generator) emitProgress(stage Stage, fraction float64) {
	if g.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("progress callback panicked", "stage", stage.String(), "recovered", r)
		}
	}()
	g.progress(stage, fraction)
}

// countLines fills the per-category statistics.
func (g *Generator) countLines(d *Drawing2D) {
	for _, l := range d.Lines {
		if l.Visibility == VisibilityHidden {
			d.Stats.HiddenLines++
			continue
		}
		switch l.Category {
		case CategoryCut:
			d.Stats.CutLines++
		case CategoryProjection:
			d.Stats.ProjectionLines++
		case CategorySilhouette:
			d.Stats.SilhouetteLines++
		case CategoryCrease:
			d.Stats.CreaseLines++
		case CategoryBoundary:
			d.Stats.BoundaryLines++
		}
	}
}

// edgeToLine projects a feature edge into the drawing plane.
func edgeToLine(e EdgeData, plane SectionPlane, m *Mesh, cat LineCategory) DrawingLine {
	mid := e.A.Lerp(e.B, 0.5)
	depth := plane.ViewDepth(mid)
	if depth < 0 {
		depth = 0
	}
	return DrawingLine{
		Start:      plane.Project(e.A),
		End:        plane.Project(e.B),
		Category:   cat,
		Visibility: VisibilityVisible,
		EntityID:   m.EntityID,
		IfcType:    m.IfcType,
		ModelIndex: m.ModelIndex,
		Depth:      depth,
	}
}

// segTypeOf returns the IFC type tag shared by one entity's segments.
func segTypeOf(segs []CutSegment) string {
	if len(segs) == 0 {
		return ""
	}
	return segs[0].IfcType
}
