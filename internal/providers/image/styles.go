package image

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"photoedit/internal/domain"
)

// Style is a named filter or adjustment preset the UI offers as a one-click
// edit. The instruction is what actually goes to the model.
type Style struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Kind        string `json:"kind"`
	Instruction string `json:"-"`
}

const (
	StyleKindFilter     = "filter"
	StyleKindAdjustment = "adjustment"
)

var styles = []Style{
	{ID: "vintage-film", Kind: StyleKindFilter, Instruction: "Apply a warm vintage film look with faded blacks, subtle grain, and slightly muted colors."},
	{ID: "black-and-white", Kind: StyleKindFilter, Instruction: "Convert the photo to rich black and white with deep contrast and detailed midtones."},
	{ID: "golden-hour", Kind: StyleKindFilter, Instruction: "Relight the scene as if shot during golden hour, with soft warm sunlight and long gentle shadows."},
	{ID: "cinematic-teal", Kind: StyleKindFilter, Instruction: "Grade the photo with a cinematic teal-and-orange palette while keeping skin tones natural."},
	{ID: "watercolor", Kind: StyleKindFilter, Instruction: "Repaint the photo as a delicate watercolor illustration with soft edges and paper texture."},
	{ID: "brighten", Kind: StyleKindAdjustment, Instruction: "Brighten the exposure moderately and lift the shadows without blowing out highlights."},
	{ID: "sharpen", Kind: StyleKindAdjustment, Instruction: "Increase sharpness and clarity, especially on fine details, without introducing halos."},
	{ID: "denoise", Kind: StyleKindAdjustment, Instruction: "Reduce noise and grain while preserving edges and fine texture."},
	{ID: "vivid-colors", Kind: StyleKindAdjustment, Instruction: "Boost color saturation and vibrance tastefully, keeping skin tones realistic."},
}

// Styles lists the preset catalog with display labels derived from the ids.
func Styles() []Style {
	titler := cases.Title(language.English)
	out := make([]Style, len(styles))
	for i, s := range styles {
		s.Label = titler.String(strings.ReplaceAll(s.ID, "-", " "))
		out[i] = s
	}
	return out
}

// StyleByID resolves a preset by id.
func StyleByID(id string) (Style, error) {
	for _, s := range styles {
		if s.ID == id {
			titler := cases.Title(language.English)
			s.Label = titler.String(strings.ReplaceAll(s.ID, "-", " "))
			return s, nil
		}
	}
	return Style{}, domain.ErrUnknownStyle
}
