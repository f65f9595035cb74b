package query

import (
	"fmt"
	"net/url"

	"github.com/khanglvm/devtools-hub/internal/param"
)

// UpdateMode selects how a binding's change is committed.
type UpdateMode int

const (
	// ReplaceIn replaces the current history entry and merges into the existing query.
	ReplaceIn UpdateMode = iota
	// Replace replaces the current history entry and drops all untouched keys.
	Replace
	// PushIn adds a history entry and merges into the existing query.
	PushIn
	// Push adds a history entry and drops all untouched keys.
	Push
)

// String returns the mode's canonical name.
func (m UpdateMode) String() string {
	switch m {
	case ReplaceIn:
		return "replaceIn"
	case Replace:
		return "replace"
	case PushIn:
		return "pushIn"
	case Push:
		return "push"
	default:
		return fmt.Sprintf("UpdateMode(%d)", int(m))
	}
}

// ParseUpdateMode parses a mode name as produced by String.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case "", "replaceIn":
		return ReplaceIn, nil
	case "replace":
		return Replace, nil
	case "pushIn":
		return PushIn, nil
	case "push":
		return Push, nil
	default:
		return ReplaceIn, fmt.Errorf("unknown update mode %q", s)
	}
}

// Pushes reports whether the mode adds a new history entry.
func (m UpdateMode) Pushes() bool {
	return m == Push || m == PushIn
}

// Merges reports whether the mode starts from the existing query.
func (m UpdateMode) Merges() bool {
	return m == ReplaceIn || m == PushIn
}

// Apply computes the query that results from writing changes onto prev.
//
// Merging modes start from prev; the others start from an empty mapping.
// Keys whose encoded value is absent are removed rather than written. prev is
// not modified.
func Apply(prev url.Values, changes map[string]param.Raw, mode UpdateMode) url.Values {
	var next url.Values
	if mode.Merges() {
		next = cloneValues(prev)
	} else {
		next = make(url.Values, len(changes))
	}

	for key, raw := range changes {
		if raw.IsAbsent() {
			next.Del(key)
			continue
		}
		next[key] = append([]string(nil), raw...)
	}
	return next
}
