package drafter

import (
	"testing"
)

func TestParseEntityKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantModel int
		wantID    uint32
		wantErr   bool
	}{
		{"simple", "0:142", 0, 142, false},
		{"multi model", "3:9000", 3, 9000, false},
		{"missing separator", "142", 0, 0, true},
		{"bad model", "x:142", 0, 0, true},
		{"bad id", "0:abc", 0, 0, true},
		{"negative id", "0:-5", 0, 0, true},
		{"empty", "", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, id, err := ParseEntityKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (model != tt.wantModel || id != tt.wantID) {
				t.Errorf("ParseEntityKey(%q) = (%d, %d)", tt.key, model, id)
			}
		})
	}
}

func wallOpeningRels(t *testing.T) *OpeningRelationships {
	t.Helper()
	doorBounds := Bounds3{Min: V3(2, 0, 0), Max: V3(3, 0.3, 2.1)}
	rels, err := BuildOpeningRelationships(
		[]VoidRelation{{HostKey: "0:10", OpeningKey: "0:20"}},
		[]FillRelation{{OpeningKey: "0:20", ElementKey: "0:30"}},
		[]EntityMeta{
			{Key: "0:10", IfcType: "IFCWALL"},
			{Key: "0:20", IfcType: "IFCOPENINGELEMENT", Bounds: doorBounds},
			{Key: "0:30", IfcType: "IFCDOOR", Properties: map[string]string{
				"OperationType": "SINGLE_SWING_RIGHT",
			}},
		},
	)
	if err != nil {
		t.Fatalf("BuildOpeningRelationships: %v", err)
	}
	return rels
}

func TestBuildOpeningRelationships(t *testing.T) {
	rels := wallOpeningRels(t)

	if got := rels.VoidedBy[10]; len(got) != 1 || got[0] != 20 {
		t.Errorf("VoidedBy[10] = %v", got)
	}
	if got := rels.FilledBy[20]; got != 30 {
		t.Errorf("FilledBy[20] = %v", got)
	}
	info := rels.Openings[20]
	if info.Kind != OpeningDoor {
		t.Errorf("opening kind = %v, want door", info.Kind)
	}
	if info.Operation != OperationSingleSwingRight {
		t.Errorf("operation = %v, want single swing right", info.Operation)
	}
}

func TestBuildOpeningRelationships_BadKey(t *testing.T) {
	_, err := BuildOpeningRelationships(
		[]VoidRelation{{HostKey: "nonsense", OpeningKey: "0:20"}}, nil, nil)
	if err == nil {
		t.Fatal("expected error for malformed key")
	}
}

func TestBuildOpeningRelationships_UnknownOpeningMeta(t *testing.T) {
	// Relationships referencing entities without metadata still build;
	// the opening degrades to a generic one.
	rels, err := BuildOpeningRelationships(
		[]VoidRelation{{HostKey: "0:10", OpeningKey: "0:99"}}, nil, nil)
	if err != nil {
		t.Fatalf("BuildOpeningRelationships: %v", err)
	}
	if rels.Openings[99].Kind != OpeningGeneric {
		t.Errorf("kind = %v, want generic", rels.Openings[99].Kind)
	}
}

func TestInferOperation(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]string
		want  DoorOperation
	}{
		{"nil props", nil, OperationSingleSwingLeft},
		{"right", map[string]string{"OperationType": "SINGLE_SWING_RIGHT"}, OperationSingleSwingRight},
		{"double", map[string]string{"Operation": "DOUBLE_DOOR_SINGLE_SWING"}, OperationDoubleSwing},
		{"sliding", map[string]string{"operationType": "SLIDING_TO_LEFT"}, OperationSliding},
		{"fixed", map[string]string{"OperationType": "FIXED"}, OperationFixed},
		{"unknown value", map[string]string{"OperationType": "SOMETHING"}, OperationSingleSwingLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferOperation(tt.props); got != tt.want {
				t.Errorf("inferOperation = %v, want %v", got, tt.want)
			}
		})
	}
}

// planCut is a floor plan at z=1 where the wall runs along the x axis.
func planCut() SectionPlane {
	return SectionPlane{Axis: AxisZ, Offset: 1}
}

func wallSegment(x0, x1 float64) CutSegment {
	return CutSegment{
		A3: V3(x0, 0, 1), B3: V3(x1, 0, 1),
		A: P2(x0, 0), B: P2(x1, 0),
		EntityID: 10, IfcType: "IFCWALL",
	}
}

func TestFilterSegments_CrossingSplit(t *testing.T) {
	rels := wallOpeningRels(t)
	ix := NewOpeningIndex(rels, planCut())

	// Wall from x=0 to x=5 crosses the opening at x in [2,3].
	segs := ix.FilterSegments(10, []CutSegment{wallSegment(0, 5)}, DefaultOpeningConfig())
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2", len(segs))
	}
	var total float64
	for _, s := range segs {
		total += s.A.Distance(s.B)
	}
	if total > 4+1e-6 || total < 4-1e-6 {
		t.Errorf("surviving length = %v, want 4", total)
	}
}

func TestFilterSegments_FullyInsideDropped(t *testing.T) {
	rels := wallOpeningRels(t)
	ix := NewOpeningIndex(rels, planCut())

	segs := ix.FilterSegments(10, []CutSegment{wallSegment(2.2, 2.8)}, DefaultOpeningConfig())
	if len(segs) != 0 {
		t.Fatalf("segments = %d, want 0", len(segs))
	}
}

func TestFilterSegments_OutsideUntouched(t *testing.T) {
	rels := wallOpeningRels(t)
	ix := NewOpeningIndex(rels, planCut())

	in := []CutSegment{wallSegment(3.5, 5)}
	segs := ix.FilterSegments(10, in, DefaultOpeningConfig())
	if len(segs) != 1 {
		t.Fatalf("segments = %d, want 1", len(segs))
	}
}

func TestFilterSegments_OtherHostIgnored(t *testing.T) {
	rels := wallOpeningRels(t)
	ix := NewOpeningIndex(rels, planCut())

	// Entity 11 has no voids, so its segments pass through even where
	// they overlap entity 10's opening.
	s := wallSegment(0, 5)
	s.EntityID = 11
	segs := ix.FilterSegments(11, []CutSegment{s}, DefaultOpeningConfig())
	if len(segs) != 1 {
		t.Fatalf("segments = %d, want 1", len(segs))
	}
}

func TestCandidates(t *testing.T) {
	rels := wallOpeningRels(t)
	ix := NewOpeningIndex(rels, planCut())

	region := EmptyBounds2().ExtendPoint(P2(1.5, -0.5)).ExtendPoint(P2(4, 0.5))
	if ids := ix.Candidates(region); len(ids) != 1 || ids[0] != 20 {
		t.Errorf("Candidates = %v, want [20]", ids)
	}

	far := EmptyBounds2().ExtendPoint(P2(50, 50)).ExtendPoint(P2(51, 51))
	if ids := ix.Candidates(far); len(ids) != 0 {
		t.Errorf("Candidates(far) = %v, want none", ids)
	}
}
