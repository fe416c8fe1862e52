package rating

import "errors"

// ErrTooFewPlayers is returned by Rate when fewer than two players took part.
var ErrTooFewPlayers = errors.New("rating needs at least two participants")
