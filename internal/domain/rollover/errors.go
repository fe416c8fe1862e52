package rollover

import "errors"

// ErrInvalidGame is returned for non-positive game ids.
var ErrInvalidGame = errors.New("invalid game id")
