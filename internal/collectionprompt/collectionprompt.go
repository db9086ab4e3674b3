// Package collectionprompt implements the interactive terminal picker used
// when a run's configuration does not pin down which remote collection to
// sync.
package collectionprompt

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/eykd/outlinesync/internal/model"
)

// Select presents a single-select prompt over collections and returns the
// chosen id. Returns an error if the terminal prompt is aborted or if
// collections is empty.
func Select(collections []model.Collection) (string, error) {
	if len(collections) == 0 {
		return "", fmt.Errorf("no collections available to choose from")
	}
	if len(collections) == 1 {
		return collections[0].ID, nil
	}

	options := make([]huh.Option[string], 0, len(collections))
	for _, c := range collections {
		options = append(options, huh.NewOption(c.Name, c.ID))
	}

	var chosen string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a collection to sync").
				Options(options...).
				Value(&chosen),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("collection prompt: %w", err)
	}
	return chosen, nil
}
