package wikibase

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat indicates malformed input: an entity id, a time string, a snak
	// or data value missing required keys, or an unknown type tag.
	ErrFormat = errors.New("wikibase format error")
	// ErrUnsupportedType indicates a data value type tag with no known variant.
	ErrUnsupportedType = errors.New("wikibase unsupported data value type")
	// ErrInvalidArgument indicates a constructor argument that breaks an invariant,
	// such as a snak whose property id names an item.
	ErrInvalidArgument = errors.New("wikibase invalid argument")
	// ErrState indicates an operation that violates the current object state.
	ErrState = errors.New("wikibase invalid state")
	// ErrNotFound indicates the requested entity does not exist remotely.
	ErrNotFound = errors.New("wikibase entity not found")
)

// RemoteError is an error payload reported by the remote repository.
type RemoteError struct {
	Code string
	Info string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return "wikibase remote error: " + e.Info
	}
	return fmt.Sprintf("wikibase remote error %s: %s", e.Code, e.Info)
}

func formatErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

func argErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func stateErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}
