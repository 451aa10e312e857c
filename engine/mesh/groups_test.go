package mesh

import (
	"slices"
	"sort"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/spaghettifunk/autorig/engine/math"
)

func TestUnusedGroups(t *testing.T) {
	m := New("Body", quad(0))
	_ = m.AddGroup("used", []int{0}, []float64{0.2})
	_ = m.AddGroup("zeros", []int{1, 2}, []float64{0, 0})
	_ = m.AddGroup("empty", nil, nil)

	unused := UnusedGroups(m)
	if len(unused) != 2 || unused[0] != "zeros" || unused[1] != "empty" {
		t.Fatalf("UnusedGroups = %v, want [zeros empty]", unused)
	}

	pruned := PruneUnusedGroups(m)
	if len(pruned) != 2 {
		t.Errorf("PruneUnusedGroups = %v", pruned)
	}
	if got := m.Regions(); len(got) != 1 || got[0] != "used" {
		t.Errorf("Regions after prune = %v", got)
	}
	if again := PruneUnusedGroups(m); len(again) != 0 {
		t.Errorf("second prune removed %v", again)
	}
}

func TestNaturalCompare(t *testing.T) {
	names := []string{"bone10", "bone2", "Arm", "bone1", "10", "9", "bone2a", "bone02"}
	sort.Slice(names, func(i, j int) bool { return NaturalCompare(names[i], names[j]) < 0 })
	want := []string{"9", "10", "Arm", "bone1", "bone02", "bone2", "bone2a", "bone10"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", names, want)
		}
	}
}

func TestSortGroups(t *testing.T) {
	m := New("Body", quad(0))
	for _, name := range []string{"12", "3", "unknown", "0"} {
		_ = m.AddGroup(name, []int{0}, []float64{1})
	}
	SortGroups(m)
	got := m.Regions()
	want := []string{"0", "3", "12", "unknown"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Regions = %v, want %v", got, want)
		}
	}
}

func TestVertexAreas(t *testing.T) {
	m := New("Body", quad(0))
	for i, a := range VertexAreas(m) {
		if a != 1 {
			t.Errorf("faceless area[%d] = %v, want 1", i, a)
		}
	}

	_ = m.SetFaces([][]int{{0, 1, 2}})
	got := VertexAreas(m)
	want := []float64{1.0 / 6, 1.0 / 6, 1.0 / 6, 0}
	if !floats.EqualApprox(got, want, 1e-12) {
		t.Errorf("triangle areas = %v, want %v", got, want)
	}

	_ = m.SetFaces([][]int{{0, 1, 2, 3}})
	got = VertexAreas(m)
	want = []float64{0.25, 0.25, 0.25, 0.25}
	if !floats.EqualApprox(got, want, 1e-12) {
		t.Errorf("quad areas = %v, want %v", got, want)
	}
}

func TestWeightedCenter(t *testing.T) {
	m := New("Body", quad(0))
	_ = m.AddGroup("edge", []int{0, 1}, []float64{1, 3})
	_ = m.AddGroup("none", []int{0}, []float64{0})
	m.SetTransform(math.TransformFromPosition(math.NewVec3(0, 0, 5)))

	c, ok := WeightedCenter(m, "edge")
	if !ok {
		t.Fatalf("WeightedCenter reported no center")
	}
	if !c.Compare(math.NewVec3(0.75, 0, 5), 1e-12) {
		t.Errorf("center = %+v, want (0.75,0,5)", c)
	}
	if _, ok := WeightedCenter(m, "none"); ok {
		t.Errorf("zero-weight group has a center")
	}
	if _, ok := WeightedCenter(m, "missing"); ok {
		t.Errorf("unknown group has a center")
	}

	// vertex 3 carries no face area, so its weight does not count
	_ = m.SetFaces([][]int{{0, 1, 2}})
	_ = m.AddGroup("tri", []int{0, 3}, []float64{1, 1})
	c, ok = WeightedCenter(m, "tri")
	if !ok || !c.Compare(math.NewVec3(0, 0, 5), 1e-12) {
		t.Errorf("area weighted center = %+v (%v), want (0,0,5)", c, ok)
	}
}

func TestMatchGroups(t *testing.T) {
	src := New("Source", append(quad(0), quad(2)...))
	_ = src.AddGroup("hips", []int{0, 1, 2, 3}, []float64{1, 1, 1, 1})
	_ = src.AddGroup("chest", []int{4, 5, 6, 7}, []float64{1, 1, 1, 1})

	dest := New("Dest", append(quad(0.1), quad(1.8)...))
	_ = dest.AddGroup("7", []int{4, 5, 6, 7}, []float64{1, 1, 1, 1})
	_ = dest.AddGroup("2", []int{0, 1}, []float64{1, 1})
	_ = dest.AddGroup("5", []int{2, 3}, []float64{1, 1})
	_ = dest.AddGroup("9", nil, nil)

	renamed := MatchGroups(dest, src)
	want := map[string]string{"7": "chest", "2": "hips", "5": "hips.001", "9": UnknownGroup}
	for old, name := range want {
		if renamed[old] != name {
			t.Errorf("%s renamed to %q, want %q", old, renamed[old], name)
		}
	}
	got := dest.Regions()
	wantOrder := []string{"chest", "hips", "hips.001", UnknownGroup}
	for i := range wantOrder {
		if got[i] != wantOrder[i] {
			t.Fatalf("Regions = %v, want %v", got, wantOrder)
		}
	}
	if w, ok := dest.Weights("chest"); !ok || w[4] != 1 || w[0] != 0 {
		t.Errorf("chest weights = %v", w)
	}
}

func TestMatchGroupsWithoutSourceCenters(t *testing.T) {
	src := New("Source", quad(0))
	_ = src.AddGroup("empty", nil, nil)
	dest := New("Dest", quad(0))
	_ = dest.AddGroup("a", []int{0}, []float64{1})

	renamed := MatchGroups(dest, src)
	if renamed["a"] != UnknownGroup {
		t.Errorf("a renamed to %q, want %q", renamed["a"], UnknownGroup)
	}
}

func TestRenumberUnknown(t *testing.T) {
	m := New("Body", quad(0))
	for _, name := range []string{"0", "unknown", "2", "unknown.001", "spine"} {
		_ = m.AddGroup(name, []int{0}, []float64{1})
	}
	renamed := RenumberUnknown(m)
	if renamed["unknown"] != "1" || renamed["unknown.001"] != "3" {
		t.Errorf("renamed = %v, want unknown->1 unknown.001->3", renamed)
	}

	m = New("Body", quad(0))
	for _, name := range []string{"0", "1", "unknown"} {
		_ = m.AddGroup(name, []int{0}, []float64{1})
	}
	renamed = RenumberUnknown(m)
	if renamed["unknown"] != "2" {
		t.Errorf("renamed = %v, want unknown->2", renamed)
	}
}

func TestFillNumericGaps(t *testing.T) {
	tests := []struct {
		name      string
		groups    []string
		wantAdded []string
		wantOrder []string
	}{
		{
			name:      "holes below the largest number",
			groups:    []string{"3", "spine", "0"},
			wantAdded: []string{"1", "2"},
			wantOrder: []string{"0", "1", "2", "3", "spine"},
		},
		{
			name:      "leading zeros count as their value",
			groups:    []string{"002", "0"},
			wantAdded: []string{"1"},
			wantOrder: []string{"0", "1", "002"},
		},
		{name: "dense run", groups: []string{"1", "0"}, wantOrder: []string{"0", "1"}},
		{name: "no numeric names", groups: []string{"hips", "bone2"}, wantOrder: []string{"bone2", "hips"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("Body", quad(0))
			for _, name := range tt.groups {
				_ = m.AddGroup(name, []int{0}, []float64{1})
			}
			added := FillNumericGaps(m)
			if !slices.Equal(added, tt.wantAdded) {
				t.Errorf("added = %v, want %v", added, tt.wantAdded)
			}
			for _, name := range added {
				if g, ok := m.Group(name); !ok || len(g.Indices) != 0 {
					t.Errorf("filled group %q = %+v, want empty", name, g)
				}
			}
			SortGroups(m)
			if got := m.Regions(); !slices.Equal(got, tt.wantOrder) {
				t.Errorf("sorted regions = %v, want %v", got, tt.wantOrder)
			}
		})
	}
}
