package forge

import (
	"net/http"

	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
)

// IsNotFound reports whether the error is a typed not-found condition.
func IsNotFound(err error) bool {
	return errors.GetStatus(err) == http.StatusNotFound ||
		errors.HasCategory(err, errors.CategoryNotFound)
}

// IsForbidden reports whether the error is a typed forbidden condition.
// Abuse-detection 403s are excluded: those are transient throttles, not
// access answers.
func IsForbidden(err error) bool {
	if errors.GetStatus(err) != http.StatusForbidden {
		return false
	}
	if c, ok := errors.AsClassified(err); ok {
		if flag, exists := c.Context().Get("abuse_detected"); exists {
			if abuse, _ := flag.(bool); abuse {
				return false
			}
		}
	}
	return true
}

// IsSkippable reports whether the error means "this repo is not ours to
// read" rather than a transient failure. Callers skip the repo and move on.
func IsSkippable(err error) bool {
	return IsNotFound(err) || IsForbidden(err)
}
