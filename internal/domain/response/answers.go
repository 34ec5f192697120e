package response

import (
	"fmt"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/question"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/scene"
)

const (
	emptySceneAnswer   = "I don't detect any objects around you right now."
	nothingToCount     = "I don't detect any objects to count right now."
	helpAnswer         = "You can ask me whether something is there, how many there are, where something is, what is in front of you, for an overview of the scene, or whether it is safe to cross."
	unknownEmptyAnswer = "I didn't understand the question, and I don't detect anything around you right now."
)

func (g *Generator) presence(q question.Parsed, a scene.Analysis) string {
	if q.Target == "" {
		if a.Empty() {
			return emptySceneAnswer
		}
		return fmt.Sprintf("I can see %s.", joinNatural(sortedLabels(a.Counts)))
	}

	display := g.dict.Display(q.Target)
	n := a.Counts[display]
	switch {
	case n == 0:
		return fmt.Sprintf("No, I don't see any %s right now.", display)
	case n == 1:
		hint := zoneHint(scene.ZoneCenter)
		if zone, ok := zoneFor(a, display); ok {
			hint = zoneHint(zone)
		}
		return fmt.Sprintf("Yes, there is one %s, %s.", display, hint)
	default:
		return fmt.Sprintf("Yes, I can see %s.", countPhrase(n, display))
	}
}

func (g *Generator) count(q question.Parsed, a scene.Analysis) string {
	if q.Target == "" {
		if a.Empty() {
			return nothingToCount
		}
		parts := make([]string, 0, len(a.Counts))
		for _, label := range labelsByFrequency(a.Counts) {
			parts = append(parts, countPhrase(a.Counts[label], label))
		}
		return fmt.Sprintf("I can see %d objects in total: %s.", a.Total, joinNatural(parts))
	}

	display := g.dict.Display(q.Target)
	n := a.Counts[display]
	switch {
	case n == 0:
		return fmt.Sprintf("I don't see any %s right now.", display)
	case n == 1:
		return fmt.Sprintf("I can see one %s.", display)
	default:
		return fmt.Sprintf("I can see %s.", countPhrase(n, display))
	}
}

func (g *Generator) location(q question.Parsed, a scene.Analysis) string {
	if q.Target == "" {
		return "Tell me which object you are looking for, for example a car or a crosswalk."
	}

	display := g.dict.Display(q.Target)
	n := a.Counts[display]
	if n == 0 {
		return fmt.Sprintf("I don't see any %s around you right now.", display)
	}

	hint := zoneHint(scene.ZoneCenter)
	if zone, ok := zoneFor(a, display); ok {
		hint = zoneHint(zone)
	}

	distance := ""
	if d, ok := minDistanceFor(a, q.Target); ok {
		distance = fmt.Sprintf(", about %s away", formatMeters(d))
	}

	if n == 1 {
		return fmt.Sprintf("The %s is %s%s.", display, hint, distance)
	}
	return fmt.Sprintf("I can see %s, one of them is %s%s.", countPhrase(n, display), hint, distance)
}

func (g *Generator) description(a scene.Analysis) string {
	if a.Empty() {
		return "I don't detect anything around you right now."
	}

	center := a.Zones[scene.ZoneCenter]
	if len(center) == 0 {
		sides := make(map[string]int)
		for _, zone := range []scene.Zone{scene.ZoneLeft, scene.ZoneRight} {
			for _, label := range a.Zones[zone] {
				sides[label]++
			}
		}
		return fmt.Sprintf("Nothing directly in front of you, but I can see %s to your sides.",
			joinNatural(sortedLabels(sides)))
	}

	counts := make(map[string]int, len(center))
	for _, label := range center {
		counts[label]++
	}
	parts := make([]string, 0, len(counts))
	for _, label := range labelsByFrequency(counts) {
		parts = append(parts, countPhrase(counts[label], label))
	}
	return fmt.Sprintf("In front of you, I can see %s.", joinNatural(parts))
}

func (g *Generator) unknown(q question.Parsed, a scene.Analysis) string {
	if question.WantsHelp(q.Text) {
		return helpAnswer
	}
	if a.Empty() {
		return unknownEmptyAnswer
	}
	top := labelsByFrequency(a.Counts)
	if len(top) > 3 {
		top = top[:3]
	}
	return fmt.Sprintf("I didn't understand the question. Right now I can see %s.", joinNatural(top))
}
