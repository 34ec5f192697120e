package response

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/lexicon"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/question"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/scene"
)

// Config carries the distance and score thresholds the generation rules
// depend on. Zero values fall back to the shipped defaults.
type Config struct {
	CloseVehicleMeters float64 // a vehicle nearer than this blocks a crossing
	MovingScore        float64 // above this score a vehicle is treated as moving
	NearPlanMeters     float64 // overview near/mid boundary
	FarPlanMeters      float64 // overview mid/far boundary
}

func (c Config) withDefaults() Config {
	if c.CloseVehicleMeters <= 0 {
		c.CloseVehicleMeters = 5
	}
	if c.MovingScore <= 0 {
		c.MovingScore = 0.8
	}
	if c.NearPlanMeters <= 0 {
		c.NearPlanMeters = 3
	}
	if c.FarPlanMeters <= 0 {
		c.FarPlanMeters = 8
	}
	return c
}

// vehicleLabels are the canonical labels the crossing advisor and the
// traffic ambiance rule treat as vehicles.
var vehicleLabels = map[string]bool{
	"car":        true,
	"truck":      true,
	"bus":        true,
	"motorcycle": true,
	"bicycle":    true,
}

// Generator turns a parsed question plus a scene analysis into one
// spoken sentence. Every rule is pure; two identical inputs always
// produce the same text.
type Generator struct {
	dict *lexicon.Dictionary
	cfg  Config
}

func NewGenerator(dict *lexicon.Dictionary, cfg Config) *Generator {
	return &Generator{dict: dict, cfg: cfg.withDefaults()}
}

// Generate dispatches on the question's intent.
func (g *Generator) Generate(q question.Parsed, a scene.Analysis) string {
	switch q.Intent {
	case question.IntentCrossing:
		return g.crossing(a)
	case question.IntentCount:
		return g.count(q, a)
	case question.IntentPresence:
		return g.presence(q, a)
	case question.IntentLocation:
		return g.location(q, a)
	case question.IntentDescription:
		return g.description(a)
	case question.IntentSceneOverview:
		return g.overview(a)
	default:
		return g.unknown(q, a)
	}
}

// canonicalOf recovers the label part of a per-object "label_id" key.
func canonicalOf(key string) string {
	if i := strings.LastIndex(key, "_"); i >= 0 {
		return key[:i]
	}
	return key
}

// hasObject reports whether the snapshot holds at least one object with
// the canonical label.
func hasObject(a scene.Analysis, label string) bool {
	prefix := label + "_"
	for key := range a.Scores {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// minDistanceFor returns the smallest known distance of any object with
// the canonical label.
func minDistanceFor(a scene.Analysis, label string) (float64, bool) {
	prefix := label + "_"
	best := math.Inf(1)
	found := false
	for key, d := range a.Distances {
		if strings.HasPrefix(key, prefix) && d < best {
			best = d
			found = true
		}
	}
	return best, found
}

// zoneFor finds the first zone holding the display label, scanning
// center, then left, then right so the hint prefers the walking path.
func zoneFor(a scene.Analysis, display string) (scene.Zone, bool) {
	for _, zone := range []scene.Zone{scene.ZoneCenter, scene.ZoneLeft, scene.ZoneRight} {
		for _, label := range a.Zones[zone] {
			if label == display {
				return zone, true
			}
		}
	}
	return "", false
}

func zoneHint(zone scene.Zone) string {
	switch zone {
	case scene.ZoneLeft:
		return "on your left"
	case scene.ZoneRight:
		return "on your right"
	default:
		return "right in front of you"
	}
}

// sortedLabels returns the distinct display labels in alphabetical
// order so enumerations read the same way every time.
func sortedLabels(counts map[string]int) []string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// labelsByFrequency returns display labels ordered by count descending,
// ties broken alphabetically.
func labelsByFrequency(counts map[string]int) []string {
	labels := sortedLabels(counts)
	sort.SliceStable(labels, func(i, j int) bool {
		return counts[labels[i]] > counts[labels[j]]
	})
	return labels
}

// joinNatural joins items for speech: "a", "a and b", "a, b and c".
func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

// countPhrase renders "one car", "2 cars", "3 people".
func countPhrase(n int, display string) string {
	if n == 1 {
		return "one " + display
	}
	return fmt.Sprintf("%d %s", n, pluralOf(display))
}

func pluralOf(display string) string {
	switch display {
	case "person":
		return "people"
	case "bus":
		return "buses"
	}
	return display + "s"
}

// formatMeters renders a distance for speech, rounded to one decimal.
func formatMeters(d float64) string {
	v := math.Round(d*10) / 10
	switch {
	case v < 1:
		return "less than one meter"
	case v == 1:
		return "one meter"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64) + " meters"
	}
}
