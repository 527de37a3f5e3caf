package sessionlog

import (
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// View names.
const (
	ViewChosen          = "chosen"
	ViewRecommendations = "recommendations"
	ViewMetadata        = "metadata"
)

// LoadError reports a session log that could not be read or is not JSON.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load session log %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ViewError reports a session log whose content does not match a view.
type ViewError struct {
	Path string
	View string
	Err  error
}

func (e *ViewError) Error() string {
	detail := strings.TrimSpace(cueerrors.Details(e.Err, nil))
	detail = strings.Join(strings.Fields(detail), " ")
	return fmt.Sprintf("session log %s: invalid %s view: %s", e.Path, e.View, detail)
}

func (e *ViewError) Unwrap() error {
	return e.Err
}
