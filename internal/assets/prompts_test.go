package assets

import (
	"strings"
	"testing"
)

func TestApplyImageStyle(t *testing.T) {
	scene := "a fox crossing a moonlit bridge"
	got := ApplyImageStyle(scene)

	if !strings.Contains(got, scene) {
		t.Errorf("styled prompt does not contain the scene: %q", got)
	}
	if got == scene {
		t.Error("styled prompt identical to raw scene, style not applied")
	}
	if strings.Contains(got, "{{") {
		t.Errorf("unrendered template markers in output: %q", got)
	}
}

func TestApplyNarrationStyle(t *testing.T) {
	text := "The fox paused at the water's edge."
	got := ApplyNarrationStyle(text)

	if !strings.Contains(got, text) {
		t.Errorf("styled narration does not contain the text: %q", got)
	}
	if strings.Contains(got, "{{") {
		t.Errorf("unrendered template markers in output: %q", got)
	}
}
