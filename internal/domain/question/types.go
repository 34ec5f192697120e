package question

// Intent is the closed set of question kinds the engine understands.
type Intent string

const (
	IntentCrossing      Intent = "crossing"
	IntentCount         Intent = "count"
	IntentPresence      Intent = "presence"
	IntentLocation      Intent = "location"
	IntentDescription   Intent = "description"
	IntentSceneOverview Intent = "scene_overview"
	IntentUnknown       Intent = "unknown"
)

// Parsed is the classification of one finalized transcript. Immutable;
// created once per question.
type Parsed struct {
	Intent     Intent
	Target     string // canonical label, empty when no object was named
	Confidence float64
	Text       string // original transcript
}
