package question

import (
	"strings"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/lexicon"
)

// rule binds one intent to its keyword table. Keywords are matched as
// plain substrings against the normalized text.
type rule struct {
	intent     Intent
	confidence float64
	keywords   []string
}

// intentRules is scanned in order, first match wins. Crossing sits on
// top so that a safety question is never shadowed by a generic one.
var intentRules = []rule{
	{IntentCrossing, 0.9, []string{
		"can i cross", "should i cross", "may i cross", "safe to cross",
		"cross the street", "cross the road", "cross now", "crossing safely",
	}},
	{IntentCount, 0.8, []string{
		"how many", "number of", "count the",
	}},
	{IntentPresence, 0.8, []string{
		"is there", "are there", "do you see", "can you see", "any obstacle",
	}},
	{IntentLocation, 0.8, []string{
		"where", "which side", "what side", "how far", "distance",
	}},
	{IntentDescription, 0.8, []string{
		"describe", "in front of me", "what is in front", "what is ahead",
		"ahead of me",
	}},
	{IntentSceneOverview, 0.8, []string{
		"overview", "surroundings", "around me", "environment", "what is happening",
	}},
}

// helpKeywords route an otherwise unknown question to the usage help
// answer instead of the fallback.
var helpKeywords = []string{
	"help", "what can you do", "how do you work", "instructions",
}

// Parser classifies normalized transcripts into intents and extracts
// the named object, if any, from the dictionary.
type Parser struct {
	dict  *lexicon.Dictionary
	rules []rule
}

func NewParser(dict *lexicon.Dictionary) *Parser {
	return &Parser{dict: dict, rules: intentRules}
}

// Parse classifies one transcript. It never fails; text that matches no
// table comes back as IntentUnknown with confidence zero.
func (p *Parser) Parse(text string) Parsed {
	norm := Normalize(text)
	parsed := Parsed{Intent: IntentUnknown, Text: text}

	for _, r := range p.rules {
		if r.matches(norm) {
			parsed.Intent = r.intent
			parsed.Confidence = r.confidence
			break
		}
	}

	// Target extraction is independent of the intent scan: naming a
	// known object is a strong signal even when no table matched.
	if label, ok := p.dict.FindTarget(norm); ok {
		parsed.Target = label
		if parsed.Confidence < 0.7 {
			parsed.Confidence = 0.7
		}
	}

	// Scene-level wording wins over every generic classification, but
	// never over a crossing question.
	if parsed.Intent != IntentCrossing && containsAny(norm, "scene", "situation") {
		parsed.Intent = IntentSceneOverview
		if parsed.Confidence < 0.8 {
			parsed.Confidence = 0.8
		}
	}

	// Asking about the immediate path is more deliberate than a generic
	// description, so it carries a higher floor.
	if parsed.Intent == IntentDescription && strings.Contains(norm, "in front of me") {
		if parsed.Confidence < 0.85 {
			parsed.Confidence = 0.85
		}
	}

	return parsed
}

// WantsHelp reports whether an unknown question is asking how to use
// the assistant.
func WantsHelp(text string) bool {
	return containsAny(Normalize(text), helpKeywords...)
}

// Normalize lowercases the transcript, strips sentence punctuation and
// collapses runs of whitespace. Recognizers disagree on trailing "?"
// and "." so classification always runs on the normalized form.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, "?", "")
	s = strings.ReplaceAll(s, ".", "")
	return strings.Join(strings.Fields(s), " ")
}

func (r rule) matches(norm string) bool {
	return containsAny(norm, r.keywords...)
}

func containsAny(norm string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}
