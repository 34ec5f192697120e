package lexicon

import (
	"strings"
	"unicode/utf8"
)

// Entry maps one canonical detection label to its spoken-language synonyms.
// The first synonym is the display form used in answers. Entry order and
// synonym order are significant: target extraction is first-match-wins.
type Entry struct {
	Label    string
	Synonyms []string
}

// Dictionary is the static mapping between canonical object labels and their
// spoken forms. Pure lookup, no state.
type Dictionary struct {
	entries []Entry
	byLabel map[string]int
}

// builtinEntries covers the labels the street tracker emits. Safety-relevant
// entries come first so their synonyms win ties.
var builtinEntries = []Entry{
	{Label: "traffic_light", Synonyms: []string{"traffic light", "light", "signal", "stoplight"}},
	{Label: "crosswalk", Synonyms: []string{"crosswalk", "pedestrian crossing", "zebra crossing", "crossing"}},
	{Label: "traffic_sign", Synonyms: []string{"sign", "traffic sign", "road sign"}},
	{Label: "stop_sign", Synonyms: []string{"stop sign"}},
	{Label: "street_light", Synonyms: []string{"street light", "streetlight", "lamppost", "lamp"}},
	{Label: "traffic_cone", Synonyms: []string{"cone", "traffic cone", "cones"}},
	{Label: "person", Synonyms: []string{"person", "people", "pedestrian", "someone", "anyone", "man", "woman"}},
	{Label: "car", Synonyms: []string{"car", "cars", "vehicle", "automobile"}},
	{Label: "truck", Synonyms: []string{"truck", "trucks", "lorry"}},
	{Label: "bus", Synonyms: []string{"bus", "buses"}},
	{Label: "motorcycle", Synonyms: []string{"motorcycle", "motorbike", "scooter"}},
	{Label: "bicycle", Synonyms: []string{"bicycle", "bike", "cyclist"}},
	{Label: "dog", Synonyms: []string{"dog", "dogs"}},
	{Label: "fire_hydrant", Synonyms: []string{"fire hydrant", "hydrant"}},
	{Label: "bench", Synonyms: []string{"bench", "seat"}},
	{Label: "pole", Synonyms: []string{"pole", "post"}},
	{Label: "trash_can", Synonyms: []string{"trash can", "garbage can", "bin"}},
	{Label: "stairs", Synonyms: []string{"stairs", "steps", "staircase"}},
	{Label: "door", Synonyms: []string{"door", "doorway", "entrance"}},
}

// New builds a dictionary from the built-in entries plus any extras from
// configuration. Extras with a known label extend that entry's synonyms;
// unknown labels append new entries after the built-ins.
func New(extra ...Entry) *Dictionary {
	d := &Dictionary{
		entries: make([]Entry, 0, len(builtinEntries)+len(extra)),
		byLabel: make(map[string]int, len(builtinEntries)+len(extra)),
	}
	for _, e := range builtinEntries {
		d.append(e)
	}
	for _, e := range extra {
		d.append(e)
	}
	return d
}

func (d *Dictionary) append(e Entry) {
	if e.Label == "" {
		return
	}
	if idx, ok := d.byLabel[e.Label]; ok {
		d.entries[idx].Synonyms = append(d.entries[idx].Synonyms, e.Synonyms...)
		return
	}
	if len(e.Synonyms) == 0 {
		e.Synonyms = []string{strings.ReplaceAll(e.Label, "_", " ")}
	}
	d.byLabel[e.Label] = len(d.entries)
	d.entries = append(d.entries, Entry{
		Label:    e.Label,
		Synonyms: append([]string(nil), e.Synonyms...),
	})
}

// Entries returns the ordered entry list. Callers must not mutate it.
func (d *Dictionary) Entries() []Entry {
	return d.entries
}

// Len reports the number of entries.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Display returns the spoken form for a canonical label. Unknown labels fall
// back to the label itself with underscores spaced out.
func (d *Dictionary) Display(label string) string {
	if idx, ok := d.byLabel[label]; ok {
		return d.entries[idx].Synonyms[0]
	}
	return strings.ReplaceAll(label, "_", " ")
}

// Known reports whether a canonical label has an entry.
func (d *Dictionary) Known(label string) bool {
	_, ok := d.byLabel[label]
	return ok
}

// FindTarget scans entries in order and returns the canonical label of the
// first synonym present in the normalized text. Synonyms match only on word
// boundaries, so "cat" does not hit inside "category".
func (d *Dictionary) FindTarget(normalized string) (string, bool) {
	for _, entry := range d.entries {
		for _, syn := range entry.Synonyms {
			if ContainsWord(normalized, syn) {
				return entry.Label, true
			}
		}
	}
	return "", false
}

// ContainsWord reports whether phrase occurs in text as a whole word or a
// whole space-separated phrase.
func ContainsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	for start := 0; start <= len(text)-len(phrase); {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		i := start + idx
		j := i + len(phrase)
		leftOK := i == 0 || !isWordByte(text[i-1])
		rightOK := j == len(text) || !isWordByte(text[j])
		if leftOK && rightOK {
			return true
		}
		start = i + 1
	}
	return false
}

// isWordByte treats ASCII letters, digits and underscore as word characters.
// Bytes above ASCII belong to multi-byte runes and are treated as word
// characters so boundaries never split a rune.
func isWordByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_':
		return true
	case b >= utf8.RuneSelf:
		return true
	}
	return false
}
