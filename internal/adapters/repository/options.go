package repository

import (
	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/pkg/logger"
)

type options struct {
	prior model.Rating
	log   logger.Logger
}

func defaultOptions() options {
	return options{prior: model.DefaultRating(), log: logger.Nop()}
}

// Option configures a store.
type Option func(*options)

// WithPriorRating sets the rating new players are created with.
func WithPriorRating(r model.Rating) Option {
	return func(o *options) {
		if r.Sigma > 0 {
			o.prior = r
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
