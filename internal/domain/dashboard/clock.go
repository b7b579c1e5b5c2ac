package dashboard

import "time"

// Option adjusts a SessionStore or TokenSigner.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
