package generate

import "context"

// Descriptor carries the vendor-neutral inputs for one generation call.
// Prompt holds the image prompt, speech text, or music reference depending on
// the generator kind it is handed to.
type Descriptor struct {
	PanelNumber int
	Prompt      string
}

// Generator is the uniform capability all vendor adapters satisfy. The
// orchestrator depends only on this signature; adding a new asset kind means
// adding a new adapter, not touching pipeline logic.
//
// Implementations return raw asset bytes plus the MIME type of the payload.
// Errors should be classifiable via ClassOf; adapters that can see an HTTP
// status wrap it with StatusError so classification is exact.
type Generator interface {
	Generate(ctx context.Context, d Descriptor) (data []byte, mimeType string, err error)
}

// Func adapts an ordinary function to the Generator interface. Used heavily
// in tests for scripted failure sequences.
type Func func(ctx context.Context, d Descriptor) ([]byte, string, error)

func (f Func) Generate(ctx context.Context, d Descriptor) ([]byte, string, error) {
	return f(ctx, d)
}
