package classify

import "errors"

var (
	// ErrNotScore is returned when text does not have the score report shape.
	ErrNotScore = errors.New("not a score report")
	// ErrMalformedScore is returned when text has the score shape but its
	// numbers do not parse.
	ErrMalformedScore = errors.New("malformed score report")
)
