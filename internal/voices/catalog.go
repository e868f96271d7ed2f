// Package voices holds the edge-tts narration voice catalog. The catalog is
// an explicit value handed to consumers rather than package state, so tests
// and future dynamic voice discovery can substitute their own tables.
package voices

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Voice describes a single narration voice.
type Voice struct {
	ID          string
	Gender      string
	Description string
}

// Locale returns the BCP 47 locale prefix of the voice identifier, e.g.
// "zh-CN" for "zh-CN-XiaoxiaoNeural".
func (v Voice) Locale() string {
	idx := strings.LastIndex(v.ID, "-")
	if idx <= 0 {
		return v.ID
	}
	return v.ID[:idx]
}

// LanguageName returns the English display name of the voice language.
func (v Voice) LanguageName() string {
	tag, err := language.Parse(v.Locale())
	if err != nil {
		return v.Locale()
	}
	return display.English.Languages().Name(tag)
}

// ASRLanguage returns the base language code used to hint transcription,
// e.g. "zh" or "en". Empty when the locale cannot be parsed.
func (v Voice) ASRLanguage() string {
	locale := v.Locale()
	tag, err := language.Parse(locale)
	if err != nil {
		// Regional voice IDs carry unregistered subtags; fall back to the
		// primary language subtag alone.
		if head, _, found := strings.Cut(locale, "-"); found {
			if tag, err = language.Parse(head); err != nil {
				return ""
			}
		} else {
			return ""
		}
	}
	base, _ := tag.Base()
	return base.String()
}

// Catalog is an immutable set of known voices.
type Catalog struct {
	byID  map[string]Voice
	order []string
}

// New builds a catalog from the provided voices.
func New(list ...Voice) *Catalog {
	c := &Catalog{byID: make(map[string]Voice, len(list))}
	for _, v := range list {
		if _, exists := c.byID[v.ID]; exists {
			continue
		}
		c.byID[v.ID] = v
		c.order = append(c.order, v.ID)
	}
	sort.Strings(c.order)
	return c
}

// Contains reports whether the voice identifier is known.
func (c *Catalog) Contains(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.byID[strings.TrimSpace(id)]
	return ok
}

// Get returns the voice for an identifier.
func (c *Catalog) Get(id string) (Voice, bool) {
	if c == nil {
		return Voice{}, false
	}
	v, ok := c.byID[strings.TrimSpace(id)]
	return v, ok
}

// List returns all voices ordered by identifier.
func (c *Catalog) List() []Voice {
	if c == nil {
		return nil
	}
	out := make([]Voice, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of voices in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byID)
}

// Default returns the built-in edge-tts voice table.
func Default() *Catalog {
	return New(
		Voice{ID: "zh-CN-XiaoxiaoNeural", Gender: "Female", Description: "Mandarin, warm narration voice"},
		Voice{ID: "zh-CN-YunxiNeural", Gender: "Male", Description: "Mandarin, lively narration voice"},
		Voice{ID: "zh-CN-YunjianNeural", Gender: "Male", Description: "Mandarin, steady presentation voice"},
		Voice{ID: "zh-CN-XiaoyiNeural", Gender: "Female", Description: "Mandarin, bright narration voice"},
		Voice{ID: "zh-CN-liaoning-XiaobeiNeural", Gender: "Female", Description: "Mandarin, Liaoning accent"},
		Voice{ID: "zh-CN-shaanxi-XiaoniNeural", Gender: "Female", Description: "Mandarin, Shaanxi accent"},
		Voice{ID: "en-US-JennyNeural", Gender: "Female", Description: "American English, general purpose"},
		Voice{ID: "en-US-GuyNeural", Gender: "Male", Description: "American English, general purpose"},
		Voice{ID: "en-US-AriaNeural", Gender: "Female", Description: "American English, expressive"},
		Voice{ID: "en-US-DavisNeural", Gender: "Male", Description: "American English, calm"},
		Voice{ID: "en-US-SaraNeural", Gender: "Female", Description: "American English, clear"},
		Voice{ID: "en-US-ChristopherNeural", Gender: "Male", Description: "American English, deep"},
		Voice{ID: "en-GB-LibbyNeural", Gender: "Female", Description: "British English"},
		Voice{ID: "en-GB-RyanNeural", Gender: "Male", Description: "British English"},
		Voice{ID: "en-GB-SoniaNeural", Gender: "Female", Description: "British English"},
		Voice{ID: "en-AU-NatashaNeural", Gender: "Female", Description: "Australian English"},
		Voice{ID: "en-AU-WilliamNeural", Gender: "Male", Description: "Australian English"},
	)
}
