package scene

import (
	"fmt"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/lexicon"
)

// Analysis is the reduced view of one snapshot. Labels in Counts, Zones,
// Critical and Navigation are translated display forms; Distances and Scores
// are keyed by "canonicalLabel_id" so individual objects stay addressable.
type Analysis struct {
	Total      int
	Counts     map[string]int
	Zones      map[Zone][]string
	Distances  map[string]float64
	Scores     map[string]float64
	Critical   []string
	Navigation []string
}

// Empty reports whether the analysis saw no objects.
func (a Analysis) Empty() bool {
	return a.Total == 0
}

// Analyzer reduces tracked-object snapshots. Pure; holds only the dictionary
// and thresholds.
type Analyzer struct {
	dict *lexicon.Dictionary
	cfg  Config
}

func NewAnalyzer(dict *lexicon.Dictionary, cfg Config) *Analyzer {
	return &Analyzer{
		dict: dict,
		cfg:  cfg.withDefaults(),
	}
}

// Analyze computes a fresh Analysis from the snapshot. No caching: the
// snapshot may differ between two questions and the answer must track it.
func (a *Analyzer) Analyze(objects []TrackedObject) Analysis {
	analysis := Analysis{
		Total:     len(objects),
		Counts:    make(map[string]int, len(objects)),
		Zones:     make(map[Zone][]string, 3),
		Distances: make(map[string]float64, len(objects)),
		Scores:    make(map[string]float64, len(objects)),
	}

	for _, obj := range objects {
		display := a.dict.Display(obj.Label)
		analysis.Counts[display]++

		zone := a.zoneOf(obj.Box)
		analysis.Zones[zone] = append(analysis.Zones[zone], display)

		key := ObjectKey(obj.Label, obj.ID)
		analysis.Scores[key] = obj.Score
		if obj.Distance != nil {
			analysis.Distances[key] = *obj.Distance
		}

		if obj.Score > a.cfg.CriticalScore {
			analysis.Critical = append(analysis.Critical, display)
		}
		if IsNavigationLabel(obj.Label) {
			analysis.Navigation = append(analysis.Navigation, display)
		}
	}

	return analysis
}

func (a *Analyzer) zoneOf(box Rect) Zone {
	center := box.CenterX()
	switch {
	case center < a.cfg.ZoneLeft:
		return ZoneLeft
	case center > a.cfg.ZoneRight:
		return ZoneRight
	default:
		return ZoneCenter
	}
}

// ObjectKey builds the per-object key used by Distances and Scores.
func ObjectKey(label string, id int) string {
	return fmt.Sprintf("%s_%d", label, id)
}
