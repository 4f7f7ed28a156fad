package style

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Descriptor is the structured style selection accompanying a prompt. Every
// field is optional.
type Descriptor struct {
	Style     string `json:"style"`
	Palette   string `json:"palette"`
	Mood      string `json:"mood"`
	Elements  string `json:"elements"`
	TextStyle string `json:"text_style"`
	Notes     string `json:"notes"`
}

// Presets expands well-known style names into their canonical descriptions.
var Presets = map[string]string{
	"professional": "clean, professional, high-quality",
	"gaming":       "vibrant, energetic, gaming aesthetic with neon effects",
	"tutorial":     "educational, clear, instructional with arrows and text elements",
	"reaction":     "emotional, expressive, reaction-style with surprised expressions",
	"minimalist":   "clean, simple, minimalist design with bold typography",
}

const maxFieldLength = 500

// Parse decodes a style given either as a JSON string or as a JSON object.
func Parse(raw json.RawMessage) (Descriptor, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Descriptor{}, nil
	}
	var d Descriptor
	if strings.HasPrefix(trimmed, "\"") {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return Descriptor{}, fmt.Errorf("style: %w", err)
		}
		d = FromText(text)
	} else if err := json.Unmarshal(raw, &d); err != nil {
		return Descriptor{}, fmt.Errorf("style: %w", err)
	}
	d.Normalize()
	return d, d.Validate()
}

// FromText wraps a free-text style selection. A bare preset name is kept as
// the style so it expands on Describe.
func FromText(text string) Descriptor {
	text = strings.TrimSpace(text)
	if _, ok := Presets[strings.ToLower(text)]; ok {
		return Descriptor{Style: text}
	}
	return Descriptor{Notes: text}
}

// Normalize trims every field and lower-cases preset names.
func (d *Descriptor) Normalize() {
	if d == nil {
		return
	}
	d.Style = strings.TrimSpace(d.Style)
	if _, ok := Presets[strings.ToLower(d.Style)]; ok {
		d.Style = strings.ToLower(d.Style)
	}
	d.Palette = strings.TrimSpace(d.Palette)
	d.Mood = strings.TrimSpace(d.Mood)
	d.Elements = strings.TrimSpace(d.Elements)
	d.TextStyle = strings.TrimSpace(d.TextStyle)
	d.Notes = strings.TrimSpace(d.Notes)
}

// Validate bounds field lengths.
func (d Descriptor) Validate() error {
	for name, v := range d.fields() {
		if len(v) > maxFieldLength {
			return fmt.Errorf("style.%s must be at most %d characters", name, maxFieldLength)
		}
	}
	return nil
}

// Empty reports whether no style was selected.
func (d Descriptor) Empty() bool {
	for _, v := range d.fields() {
		if v != "" {
			return false
		}
	}
	return true
}

func (d Descriptor) fields() map[string]string {
	return map[string]string{
		"style":      d.Style,
		"palette":    d.Palette,
		"mood":       d.Mood,
		"elements":   d.Elements,
		"text_style": d.TextStyle,
		"notes":      d.Notes,
	}
}

// Describe renders the descriptor as the text handed to the prompt refiner.
// Lines follow a fixed order so equal descriptors render identically.
func (d Descriptor) Describe() string {
	if d.Empty() {
		return ""
	}
	title := cases.Title(language.English)
	var lines []string
	if d.Style != "" {
		label := title.String(d.Style)
		if preset, ok := Presets[d.Style]; ok {
			lines = append(lines, fmt.Sprintf("Thumbnail style: %s (%s)", label, preset))
		} else {
			lines = append(lines, "Thumbnail style: "+label)
		}
	}
	if d.Palette != "" {
		lines = append(lines, "Color palette: "+d.Palette)
	}
	if d.Mood != "" {
		lines = append(lines, "Mood & emotion: "+d.Mood)
	}
	if d.Elements != "" {
		lines = append(lines, "Visual elements: "+d.Elements)
	}
	if d.TextStyle != "" {
		lines = append(lines, "Text style: "+d.TextStyle)
	}
	if d.Notes != "" {
		lines = append(lines, d.Notes)
	}
	return strings.Join(lines, "\n")
}
