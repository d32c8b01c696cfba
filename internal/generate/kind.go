// Package generate defines the uniform asset-generation capability used by the
// panel pipeline: a Kind per asset type, a Generator contract each vendor
// adapter satisfies, and the error taxonomy that drives retry/fallback
// decisions.
package generate

// Kind identifies one asset type produced for a panel.
type Kind string

const (
	KindImage  Kind = "image"
	KindSpeech Kind = "speech"
	KindMusic  Kind = "music"
)

// AllKinds returns every asset kind a panel resolves, in a stable order.
func AllKinds() []Kind {
	return []Kind{KindImage, KindSpeech, KindMusic}
}

// Valid reports whether k is a known asset kind.
func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindSpeech, KindMusic:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }
