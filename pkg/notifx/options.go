package notifx

// SendOptions holds per-send settings understood by some providers.
type SendOptions struct {
	Tags     map[string]string
	ConfigID string
}

type Option func(*SendOptions)

// WithTags attaches metadata tags (SES message tags).
func WithTags(tags map[string]string) Option {
	return func(o *SendOptions) {
		o.Tags = tags
	}
}

// WithConfigID sets a provider configuration set (SES configuration set name).
func WithConfigID(id string) Option {
	return func(o *SendOptions) {
		o.ConfigID = id
	}
}

// ApplyOptions folds opts into SendOptions.
func ApplyOptions(opts []Option) SendOptions {
	var so SendOptions
	for _, o := range opts {
		o(&so)
	}
	return so
}
