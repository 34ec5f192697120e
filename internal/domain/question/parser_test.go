package question

import (
	"testing"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/lexicon"
)

func newTestParser() *Parser {
	return NewParser(lexicon.New())
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Can I cross?", "can i cross"},
		{"  Where   is the CAR. ", "where is the car"},
		{"describe\tthe scene", "describe the scene"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseIntents(t *testing.T) {
	p := newTestParser()

	cases := []struct {
		name       string
		text       string
		intent     Intent
		target     string
		confidence float64
	}{
		{"crossing", "Can I cross the street?", IntentCrossing, "", 0.9},
		{"crossing safety", "is it safe to cross here", IntentCrossing, "", 0.9},
		{"count with target", "How many cars are there?", IntentCount, "car", 0.8},
		{"presence with target", "Is there a person?", IntentPresence, "person", 0.8},
		{"presence without target", "What do you see?", IntentPresence, "", 0.8},
		{"location", "Where is the crosswalk?", IntentLocation, "crosswalk", 0.8},
		{"distance is location", "how far is the bus", IntentLocation, "bus", 0.8},
		{"description", "describe what is in front of me", IntentDescription, "", 0.85},
		{"overview", "give me an overview", IntentSceneOverview, "", 0.8},
		{"unknown", "tell me a joke", IntentUnknown, "", 0},
		{"unknown with target", "the dog", IntentUnknown, "dog", 0.7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Parse(tc.text)
			if got.Intent != tc.intent {
				t.Errorf("intent = %s, want %s", got.Intent, tc.intent)
			}
			if got.Target != tc.target {
				t.Errorf("target = %q, want %q", got.Target, tc.target)
			}
			if got.Confidence != tc.confidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tc.confidence)
			}
			if got.Text != tc.text {
				t.Errorf("text = %q, want original %q", got.Text, tc.text)
			}
		})
	}
}

// A question that mentions both crossing and counting must be treated
// as a crossing question, whatever order the words appear in.
func TestParseCrossingBeatsCount(t *testing.T) {
	p := newTestParser()

	texts := []string{
		"can i cross or how many cars are coming",
		"how many cars before it is safe to cross",
		"count the lanes, should i cross now",
	}
	for _, text := range texts {
		got := p.Parse(text)
		if got.Intent != IntentCrossing {
			t.Errorf("Parse(%q).Intent = %s, want %s", text, got.Intent, IntentCrossing)
		}
		if got.Confidence < 0.9 {
			t.Errorf("Parse(%q).Confidence = %v, want >= 0.9", text, got.Confidence)
		}
	}
}

func TestParseSceneOverride(t *testing.T) {
	p := newTestParser()

	got := p.Parse("describe the scene")
	if got.Intent != IntentSceneOverview {
		t.Fatalf("intent = %s, want %s", got.Intent, IntentSceneOverview)
	}
	if got.Confidence < 0.8 {
		t.Fatalf("confidence = %v, want >= 0.8", got.Confidence)
	}

	got = p.Parse("how many people in this situation")
	if got.Intent != IntentSceneOverview {
		t.Fatalf("intent = %s, want %s", got.Intent, IntentSceneOverview)
	}
	if got.Target != "person" {
		t.Fatalf("target = %q, want person", got.Target)
	}

	// Scene wording never demotes a crossing question.
	got = p.Parse("can i cross in this situation")
	if got.Intent != IntentCrossing {
		t.Fatalf("intent = %s, want %s", got.Intent, IntentCrossing)
	}
}

func TestWantsHelp(t *testing.T) {
	if !WantsHelp("Help!") {
		t.Error("expected help request to be recognized")
	}
	if !WantsHelp("what can you do") {
		t.Error("expected capability question to be recognized")
	}
	if WantsHelp("is there a car") {
		t.Error("presence question misread as help request")
	}
}
