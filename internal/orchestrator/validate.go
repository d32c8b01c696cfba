package orchestrator

import (
	"errors"
	"fmt"
)

// ErrNoPanels rejects jobs with an empty panel list.
var ErrNoPanels = errors.New("job has no panels")

// ValidatePanels checks that panel numbers are dense, unique, and cover
// exactly 1..N. Malformed input is a caller bug, so this is the one place
// where the pipeline fails fast instead of falling back.
func ValidatePanels(panels []PanelDescriptor) error {
	if len(panels) == 0 {
		return ErrNoPanels
	}

	seen := make(map[int]bool, len(panels))
	for _, p := range panels {
		if p.PanelNumber < 1 || p.PanelNumber > len(panels) {
			return fmt.Errorf("panel number %d outside 1..%d", p.PanelNumber, len(panels))
		}
		if seen[p.PanelNumber] {
			return fmt.Errorf("duplicate panel number %d", p.PanelNumber)
		}
		seen[p.PanelNumber] = true
	}
	// len(panels) distinct values each in 1..N implies density; nothing more
	// to check.
	return nil
}
