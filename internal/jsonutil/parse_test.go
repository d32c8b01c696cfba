package jsonutil

import "testing"

type panelStub struct {
	PanelNumber int    `json:"panelNumber"`
	ImagePrompt string `json:"imagePrompt"`
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"too short to be fenced", "```", "```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.in); got != tt.want {
				t.Errorf("StripMarkdownFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	got, err := ExtractJSON("Here is your plan:\n{\"panels\": []}\nEnjoy!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"panels": []}` {
		t.Errorf("ExtractJSON = %q", got)
	}

	if _, err := ExtractJSON("no json here"); err == nil {
		t.Error("expected error for text without JSON")
	}
	if _, err := ExtractJSON("{unclosed"); err == nil {
		t.Error("expected error for unterminated JSON")
	}
}

func TestParseJSON_FencedPlan(t *testing.T) {
	raw := "Sure! Here's the plan:\n```json\n" +
		`{"panelNumber": 3, "imagePrompt": "a rainy street"}` +
		"\n```\nLet me know if you want changes."

	p, err := ParseJSON[panelStub](raw)
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	if p.PanelNumber != 3 || p.ImagePrompt != "a rainy street" {
		t.Errorf("ParseJSON = %+v", p)
	}
}

func TestParseJSON_InvalidJSON(t *testing.T) {
	if _, err := ParseJSON[panelStub](`{"panelNumber": }`); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
