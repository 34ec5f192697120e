package response

import (
	"github.com/SamyKr/VisuAI-sub000/internal/domain/scene"
)

// crossingScores computes the two independent inputs of the crossing
// advisor.
//
// Signalization counts what is there to regulate the crossing: a
// traffic light and a crosswalk weigh 2 each, signs and street lighting
// 1 each. Traffic safety starts at 10 and loses 3 per vehicle closer
// than the close-vehicle bound, 2 per vehicle scored above the moving
// bound, and 1 per vehicle beyond the first two, floored at zero.
func (g *Generator) crossingScores(a scene.Analysis) (signalization, safety, closeVehicles int) {
	if hasObject(a, "traffic_light") {
		signalization += 2
	}
	if hasObject(a, "crosswalk") {
		signalization += 2
	}
	if hasObject(a, "traffic_sign") || hasObject(a, "stop_sign") {
		signalization++
	}
	if hasObject(a, "street_light") {
		signalization++
	}

	safety = 10
	vehicles := 0
	for key, score := range a.Scores {
		if !vehicleLabels[canonicalOf(key)] {
			continue
		}
		vehicles++
		if d, ok := a.Distances[key]; ok && d < g.cfg.CloseVehicleMeters {
			safety -= 3
			closeVehicles++
		}
		if score > g.cfg.MovingScore {
			safety -= 2
		}
	}
	if vehicles > 2 {
		safety -= vehicles - 2
	}
	if safety < 0 {
		safety = 0
	}
	return signalization, safety, closeVehicles
}

// crossing is the safety advisor. The branch order is part of the
// contract: the full light-and-crosswalk setup is judged first, then a
// bare crosswalk, then a bare light, then the unsignalized cases.
func (g *Generator) crossing(a scene.Analysis) string {
	signalization, safety, closeVehicles := g.crossingScores(a)
	hasLight := hasObject(a, "traffic_light")
	hasCrosswalk := hasObject(a, "crosswalk")
	hasVehicles := g.vehicleCount(a) > 0

	switch {
	case hasLight && hasCrosswalk:
		if safety >= 7 {
			return "There is a traffic light and a crosswalk. Wait for the green light, then cross with caution."
		}
		if closeVehicles > 0 {
			return "There is a crosswalk here, but vehicles are close by. Wait until they have passed before crossing."
		}
		return "There is a traffic light and a crosswalk. Check the light carefully before you cross."

	case hasCrosswalk:
		if safety >= 8 {
			return "There is a crosswalk and traffic looks clear. You can cross there."
		}
		if closeVehicles > 2 {
			return "There is a crosswalk, but several vehicles are very close. Wait before crossing."
		}
		return "There is a crosswalk. Check the traffic carefully before you cross."

	case hasLight:
		return "There is a traffic light, but I don't see a crosswalk. Try to locate one before crossing."

	case signalization <= 1:
		if !hasVehicles {
			return "I don't see any crossing signals, but nothing obstructs your way right now."
		}
		if safety >= 4 {
			return "There are no crossing signals here. If you must cross, do it with extreme caution."
		}
		return "There are no crossing signals and traffic is heavy. Look for a safer place to cross."

	default:
		if safety >= 6 {
			return "There is some signage here. You can cross, but stay cautious."
		}
		return "The signage is limited and traffic is risky. Look for a safer place to cross."
	}
}
