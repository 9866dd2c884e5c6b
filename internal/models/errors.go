package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAnalysisNotFound is returned by result lookups for unknown ids.
var ErrAnalysisNotFound = errors.New("analysis not found")

// MissingSignalError records that a field required by the requested analysis
// type was absent in every source. It is reported as a high-severity
// Uncertainty on the degraded result, not raised to the caller.
type MissingSignalError struct {
	Field        string
	AnalysisType AnalysisType
}

func (e *MissingSignalError) Error() string {
	return fmt.Sprintf("signal %q missing in all sources for %s analysis", e.Field, e.AnalysisType)
}

// InvalidScenarioError is returned for an unknown scenario key. It is fatal
// to the one call that supplied the key and carries the valid keys so the
// caller can surface them.
type InvalidScenarioError struct {
	Scenario string
	Valid    []ScenarioKey
}

func (e *InvalidScenarioError) Error() string {
	keys := make([]string, len(e.Valid))
	for i, k := range e.Valid {
		keys[i] = string(k)
	}
	return fmt.Sprintf("unknown scenario %q; valid scenarios: %s", e.Scenario, strings.Join(keys, ", "))
}

// IsInvalidScenario reports whether err is an InvalidScenarioError.
func IsInvalidScenario(err error) bool {
	var ise *InvalidScenarioError
	return errors.As(err, &ise)
}
