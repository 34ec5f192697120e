package scene

// Rect is a bounding box normalized to frame size.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// CenterX returns the horizontal center of the box.
func (r Rect) CenterX() float64 {
	return r.X + r.W/2
}

// TrackedObject is one detection as delivered by the external tracker. The
// engine never mutates these; snapshots are replaced wholesale.
type TrackedObject struct {
	ID       int      `json:"id"`
	Label    string   `json:"label"` // canonical form, e.g. "traffic_light"
	Score    float64  `json:"score"`
	Box      Rect     `json:"box"`
	Distance *float64 `json:"distance,omitempty"` // meters, absent when depth is unavailable
	Age      float64  `json:"age,omitempty"`      // seconds in track
}

// Zone is the horizontal third of the frame an object sits in.
type Zone string

const (
	ZoneLeft   Zone = "left"
	ZoneCenter Zone = "center"
	ZoneRight  Zone = "right"
)

// Config carries the analyzer thresholds. Zero values fall back to the
// published defaults.
type Config struct {
	ZoneLeft      float64 // center-x below this is the left zone
	ZoneRight     float64 // center-x above this is the right zone
	CriticalScore float64 // objects scoring above this are critical
}

func (c Config) withDefaults() Config {
	if c.ZoneLeft <= 0 {
		c.ZoneLeft = 0.3
	}
	if c.ZoneRight <= 0 {
		c.ZoneRight = 0.7
	}
	if c.CriticalScore <= 0 {
		c.CriticalScore = 0.7
	}
	return c
}

// navigationLabels are the canonical labels that matter for wayfinding.
var navigationLabels = map[string]bool{
	"traffic_light": true,
	"traffic_sign":  true,
	"crosswalk":     true,
	"street_light":  true,
	"traffic_cone":  true,
}

// IsNavigationLabel reports whether a canonical label is navigation-relevant.
func IsNavigationLabel(label string) bool {
	return navigationLabels[label]
}
