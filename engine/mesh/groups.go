package mesh

import (
	"slices"
	"strconv"
	"strings"

	"github.com/spaghettifunk/autorig/engine/core"
	"github.com/spaghettifunk/autorig/engine/math"
)

// UnknownGroup names a destination group that MatchGroups could not place.
const UnknownGroup = "unknown"

// UnusedGroups lists, in group order, the groups where no vertex has a
// weight above zero.
func UnusedGroups(m *Mesh) []string {
	var unused []string
	for _, g := range m.groups {
		used := false
		for _, w := range g.Weights {
			if w > 0 {
				used = true
				break
			}
		}
		if !used {
			unused = append(unused, g.Name)
		}
	}
	return unused
}

// PruneUnusedGroups removes every unused group and returns their names.
func PruneUnusedGroups(m *Mesh) []string {
	unused := UnusedGroups(m)
	for _, name := range unused {
		m.RemoveGroup(name)
	}
	if len(unused) > 0 {
		core.LogDebug("%s: pruned %d unused groups", m.name, len(unused))
	}
	return unused
}

// SortGroups orders the groups by name, comparing digit runs by value so
// "bone2" sorts before "bone10".
func SortGroups(m *Mesh) {
	slices.SortStableFunc(m.groups, func(a, b *Group) int {
		return NaturalCompare(a.Name, b.Name)
	})
}

// NaturalCompare compares a and b chunk by chunk; digit chunks compare
// numerically and sort before text chunks at the same position.
func NaturalCompare(a, b string) int {
	ca, cb := naturalChunks(a), naturalChunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		na, aNum := chunkNumber(ca[i])
		nb, bNum := chunkNumber(cb[i])
		switch {
		case aNum && bNum:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case aNum:
			return -1
		case bNum:
			return 1
		default:
			if c := strings.Compare(ca[i], cb[i]); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(ca) < len(cb):
		return -1
	case len(ca) > len(cb):
		return 1
	}
	return strings.Compare(a, b)
}

func naturalChunks(s string) []string {
	var chunks []string
	start, prevDigit := 0, false
	for i, r := range s {
		digit := isDigit(r)
		if i > 0 && digit != prevDigit {
			chunks = append(chunks, s[start:i])
			start = i
		}
		prevDigit = digit
	}
	if start < len(s) {
		chunks = append(chunks, s[start:])
	}
	return chunks
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// chunkNumber parses chunk when it is made of digits only.
func chunkNumber(chunk string) (uint64, bool) {
	if chunk == "" || strings.IndexFunc(chunk, func(r rune) bool { return !isDigit(r) }) >= 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(chunk, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// VertexAreas spreads every face's area evenly over its vertices. A mesh
// without faces gives every vertex an area of 1.
func VertexAreas(m *Mesh) []float64 {
	areas := make([]float64, len(m.vertices))
	if len(m.faces) == 0 {
		for i := range areas {
			areas[i] = 1
		}
		return areas
	}
	for _, f := range m.faces {
		share := polygonArea(m.vertices, f) / float64(len(f))
		for _, idx := range f {
			areas[idx] += share
		}
	}
	return areas
}

// polygonArea is the area of a planar polygon, fanned from its first vertex.
func polygonArea(vertices []math.Vec3, face []int) float64 {
	origin := vertices[face[0]]
	sum := math.NewVec3Zero()
	for i := 1; i+1 < len(face); i++ {
		e1 := vertices[face[i]].Sub(origin)
		e2 := vertices[face[i+1]].Sub(origin)
		sum = sum.Add(e1.Cross(e2))
	}
	return sum.Length() / 2
}

// WeightedCenter is the world-space mean of the group's vertices, weighted
// by weight times vertex area. ok is false when the group is unknown or has
// no weighted area.
func WeightedCenter(m *Mesh, group string) (center math.Vec3, ok bool) {
	return weightedCenter(m, group, VertexAreas(m))
}

func weightedCenter(m *Mesh, group string, areas []float64) (math.Vec3, bool) {
	g, found := m.Group(group)
	if !found {
		return math.Vec3{}, false
	}
	sum := math.NewVec3Zero()
	total := 0.0
	for i, idx := range g.Indices {
		wa := g.Weights[i] * areas[idx]
		if wa > 0 {
			sum = sum.Add(m.vertices[idx].Transform(m.world).MulScalar(wa))
			total += wa
		}
	}
	if total <= 0 {
		return math.Vec3{}, false
	}
	return sum.DivScalar(total), true
}

// MatchGroups renames every group of dest after the src group whose weighted
// center lies nearest to its own. Groups without a center, or with no
// source center to compare against, become UnknownGroup. Colliding names get
// a numeric suffix. The returned map goes from old to new dest names.
func MatchGroups(dest, src *Mesh) map[string]string {
	type center struct {
		name string
		at   math.Vec3
	}
	srcAreas := VertexAreas(src)
	var srcCenters []center
	for _, g := range src.groups {
		if c, ok := weightedCenter(src, g.Name, srcAreas); ok {
			srcCenters = append(srcCenters, center{g.Name, c})
		}
	}

	destAreas := VertexAreas(dest)
	targets := make([]string, len(dest.groups))
	for i, g := range dest.groups {
		targets[i] = UnknownGroup
		c, ok := weightedCenter(dest, g.Name, destAreas)
		if !ok {
			continue
		}
		best := math.K_INFINITY
		for _, sc := range srcCenters {
			if d := c.Distance(sc.at); d < best {
				best = d
				targets[i] = sc.name
			}
		}
	}

	// clear every name first so matches do not collide with stale names
	old := dest.Regions()
	for i, g := range dest.groups {
		placeholder := "\x00" + strconv.Itoa(i)
		dest.dense[placeholder] = dest.dense[g.Name]
		delete(dest.dense, g.Name)
		g.Name = placeholder
	}
	renamed := make(map[string]string, len(old))
	for i, g := range dest.groups {
		final, _ := dest.RenameGroup(g.Name, targets[i])
		renamed[old[i]] = final
	}
	core.LogDebug("%s: matched %d groups against %s", dest.name, len(renamed), src.name)
	return renamed
}

// RenumberUnknown gives every group whose name starts with UnknownGroup a
// numeric name, filling the gaps in 0..len(groups)-1 left by the existing
// numeric names first, then counting past the largest one.
func RenumberUnknown(m *Mesh) map[string]string {
	var unknown []*Group
	existing := make(map[uint64]bool)
	var maxExisting uint64
	hasExisting := false
	for _, g := range m.groups {
		if strings.HasPrefix(g.Name, UnknownGroup) {
			unknown = append(unknown, g)
			continue
		}
		if n, ok := chunkNumber(g.Name); ok {
			existing[n] = true
			if !hasExisting || n > maxExisting {
				maxExisting = n
				hasExisting = true
			}
		}
	}

	var missing []uint64
	for n := uint64(0); n < uint64(len(m.groups)); n++ {
		if !existing[n] {
			missing = append(missing, n)
		}
	}

	renamed := make(map[string]string, len(unknown))
	next := maxExisting + 1
	if !hasExisting {
		next = 0
	}
	for i, g := range unknown {
		var n uint64
		if i < len(missing) {
			n = missing[i]
		} else {
			n = next
			next++
		}
		oldName := g.Name
		final, _ := m.RenameGroup(oldName, strconv.FormatUint(n, 10))
		renamed[oldName] = final
	}
	return renamed
}

// FillNumericGaps adds an empty group for every number in 0..max that no
// numeric group name covers, max being the largest numeric name. Game
// exporters index vertex groups by number and expect no holes.
// It returns the added names in ascending order.
func FillNumericGaps(m *Mesh) []string {
	existing := make(map[uint64]bool)
	var maxID uint64
	found := false
	for _, g := range m.groups {
		n, ok := chunkNumber(g.Name)
		if !ok {
			continue
		}
		existing[n] = true
		if !found || n > maxID {
			maxID, found = n, true
		}
	}
	if !found {
		return nil
	}

	var added []string
	for n := uint64(0); n <= maxID; n++ {
		if existing[n] {
			continue
		}
		name := strconv.FormatUint(n, 10)
		if err := m.AddGroup(name, nil, nil); err != nil {
			core.LogWarn("%s: cannot add group %q: %s", m.name, name, err)
			continue
		}
		added = append(added, name)
	}
	if len(added) > 0 {
		core.LogDebug("%s: filled %d numeric gaps", m.name, len(added))
	}
	return added
}
