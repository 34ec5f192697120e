package response

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/scene"
)

// overviewPlans buckets the distinct labels of the snapshot by the
// minimum distance observed for that label: near below the near bound,
// far beyond the far bound, mid in between. Labels with no measured
// distance fall back on criticality: a critical label is treated as
// near, anything else as mid.
func (g *Generator) overviewPlans(a scene.Analysis) (near, mid, far []string) {
	minByLabel := make(map[string]float64)
	for key, d := range a.Distances {
		label := canonicalOf(key)
		if best, ok := minByLabel[label]; !ok || d < best {
			minByLabel[label] = d
		}
	}

	critical := make(map[string]bool, len(a.Critical))
	for _, display := range a.Critical {
		critical[display] = true
	}

	seen := make(map[string]bool)
	for key := range a.Scores {
		label := canonicalOf(key)
		if seen[label] {
			continue
		}
		seen[label] = true

		display := g.dict.Display(label)
		if d, ok := minByLabel[label]; ok {
			switch {
			case d < g.cfg.NearPlanMeters:
				near = append(near, display)
			case d > g.cfg.FarPlanMeters:
				far = append(far, display)
			default:
				mid = append(mid, display)
			}
			continue
		}
		if critical[display] {
			near = append(near, display)
		} else {
			mid = append(mid, display)
		}
	}

	sort.Strings(near)
	sort.Strings(mid)
	sort.Strings(far)
	return near, mid, far
}

// ambianceClause picks at most one closing remark about the overall
// situation. Priorities: many critical objects, then visible signage,
// then dense traffic, then a calm scene.
func (g *Generator) ambianceClause(a scene.Analysis) string {
	switch {
	case len(a.Critical) > 2:
		return "Several objects are very close, stay cautious."
	case len(a.Navigation) > 0:
		return "There is road signage around you."
	case g.vehicleCount(a) > 3:
		return "Traffic is dense."
	case a.Total < 3:
		return "The area looks calm."
	default:
		return ""
	}
}

func (g *Generator) vehicleCount(a scene.Analysis) int {
	n := 0
	for key := range a.Scores {
		if vehicleLabels[canonicalOf(key)] {
			n++
		}
	}
	return n
}

func (g *Generator) overview(a scene.Analysis) string {
	if a.Empty() {
		return "The area around you looks clear, I don't detect anything notable."
	}

	near, mid, far := g.overviewPlans(a)

	var clauses []string
	if len(near) > 0 {
		clauses = append(clauses, fmt.Sprintf("Very close to you: %s", joinNatural(near)))
	}
	if len(mid) > 0 {
		clauses = append(clauses, fmt.Sprintf("A bit further: %s", joinNatural(mid)))
	}
	if len(far) > 0 {
		clauses = append(clauses, fmt.Sprintf("In the distance: %s", joinNatural(far)))
	}

	text := strings.Join(clauses, ". ") + "."
	if ambiance := g.ambianceClause(a); ambiance != "" {
		text += " " + ambiance
	}
	return text
}
