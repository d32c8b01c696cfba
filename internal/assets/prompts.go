// Package assets provides embedded prompt templates for the generation
// pipeline.
//
// Style templates are stored as text files under prompts/ and embedded at
// compile time. Keeping them external to the code lets the house style be
// tuned without touching pipeline logic, and embedding keeps the binary
// self-contained.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/rs/zerolog/log"
)

// ImageStyleTemplate wraps a panel's scene description in the house art
// style, so every panel of a story renders consistently.
//
//go:embed prompts/image-style.txt
var ImageStyleTemplate string

// NarrationStyleTemplate wraps a panel's narration text with delivery
// direction for the TTS model.
//
//go:embed prompts/narration-style.txt
var NarrationStyleTemplate string

var (
	imageTmpl     = template.Must(template.New("image-style").Parse(ImageStyleTemplate))
	narrationTmpl = template.Must(template.New("narration-style").Parse(NarrationStyleTemplate))
)

// ApplyImageStyle renders the house art-style wrapper around a panel's scene
// description. On a template failure the raw scene is returned so generation
// proceeds unstyled rather than not at all.
func ApplyImageStyle(scene string) string {
	var buf bytes.Buffer
	if err := imageTmpl.Execute(&buf, struct{ Scene string }{Scene: scene}); err != nil {
		log.Error().Err(err).Msg("Failed to render image style template")
		return scene
	}
	return buf.String()
}

// ApplyNarrationStyle prefixes narration text with the TTS delivery
// direction.
func ApplyNarrationStyle(text string) string {
	var buf bytes.Buffer
	if err := narrationTmpl.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		log.Error().Err(err).Msg("Failed to render narration style template")
		return text
	}
	return buf.String()
}
