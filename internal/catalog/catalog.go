package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrEmptyCatalog = errors.New("catalog has no themes")

//go:embed themes.json
var defaultFS embed.FS

// AttackTool is opaque to the engine; it is carried for the UI layer only.
type AttackTool struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

type DefenseTool struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon,omitempty"`
	Correct bool   `json:"correct"`
}

type Theme struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	DurationSeconds int           `json:"durationSeconds"`
	AttackTools     []AttackTool  `json:"attackTools"`
	DefenseTools    []DefenseTool `json:"defenseTools"`
}

// Catalog is the static theme collection loaded once at startup. The engine
// reads durations and defense correctness; everything else passes through to
// clients untouched.
type Catalog struct {
	themes []Theme
	byID   map[string]Theme
	raw    []byte
}

type document struct {
	Themes []Theme `json:"themes"`
}

// Load reads a catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = defaultFS.ReadFile("themes.json")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c, err := New(doc.Themes)
	if err != nil {
		return nil, err
	}
	c.raw = data
	return c, nil
}

func New(themes []Theme) (*Catalog, error) {
	if len(themes) == 0 {
		return nil, ErrEmptyCatalog
	}
	byID := make(map[string]Theme, len(themes))
	for _, t := range themes {
		if t.ID == "" {
			return nil, fmt.Errorf("theme %q: missing id", t.Name)
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("theme %q: duplicate id", t.ID)
		}
		if t.DurationSeconds <= 0 {
			return nil, fmt.Errorf("theme %q: durationSeconds must be positive", t.ID)
		}
		if len(t.DefenseTools) == 0 {
			return nil, fmt.Errorf("theme %q: no defense tools", t.ID)
		}
		correct := 0
		for _, d := range t.DefenseTools {
			if d.Correct {
				correct++
			}
		}
		if correct == 0 {
			return nil, fmt.Errorf("theme %q: no correct defense tool", t.ID)
		}
		byID[t.ID] = t
	}
	return &Catalog{themes: themes, byID: byID}, nil
}

func (c *Catalog) Size() int { return len(c.themes) }

func (c *Catalog) Theme(id string) (Theme, bool) {
	t, ok := c.byID[id]
	return t, ok
}

func (c *Catalog) Themes() []Theme { return c.themes }

// DefenseCorrect reports whether toolID is a correct defense for the theme.
// known is false when the theme has no metadata for that tool, in which case
// the caller decides how much to trust the client.
func (c *Catalog) DefenseCorrect(themeID, toolID string) (correct, known bool) {
	t, ok := c.byID[themeID]
	if !ok {
		return false, false
	}
	for _, d := range t.DefenseTools {
		if d.ID == toolID {
			return d.Correct, true
		}
	}
	return false, false
}

// Raw returns the catalog document as loaded, for pass-through serving.
func (c *Catalog) Raw() []byte {
	if c.raw != nil {
		return c.raw
	}
	data, _ := json.Marshal(document{Themes: c.themes})
	return data
}
