package rating

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPrior sets the starting mean and uncertainty. Beta follows sigma as sigma/2.
func WithPrior(mu, sigma float64) Option {
	return func(e *Engine) {
		if sigma > 0 {
			e.mu0 = mu
			e.sigma0 = sigma
			e.beta = sigma / 2
		}
	}
}

// WithExposureK sets k in mu - k*sigma.
func WithExposureK(k float64) Option {
	return func(e *Engine) {
		if k >= 0 {
			e.k = k
		}
	}
}

// WithKappa sets the floor that keeps sigma from collapsing to zero.
func WithKappa(kappa float64) Option {
	return func(e *Engine) {
		if kappa > 0 {
			e.kappa = kappa
		}
	}
}
