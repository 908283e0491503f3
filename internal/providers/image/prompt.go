package image

import (
	"fmt"
	"strings"
)

// BuildInstruction turns a transform request into the prompt sent to the
// model. The instruction always leads; a focus point adds localization
// phrasing so the model edits only around the marked spot; a trailing
// constraint keeps the rest of the photo intact.
func BuildInstruction(req TransformRequest) string {
	parts := []string{}
	if instruction := strings.TrimSpace(req.Instruction); instruction != "" {
		parts = append(parts, instruction)
	}
	if req.Focus != nil {
		parts = append(parts, fmt.Sprintf(
			"Apply the edit only to the area around pixel coordinate (%d, %d); leave the rest of the image untouched.",
			req.Focus.X, req.Focus.Y))
	}
	parts = append(parts, "Return the edited photograph at the original resolution, photorealistic, without borders or annotations.")
	return strings.Join(parts, " ")
}
