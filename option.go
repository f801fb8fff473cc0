package quillmark

// engineConfig holds construction-time settings for an Engine, grounded on
// xtemplate's config.go functional-options idiom (type override func(*Config)).
type engineConfig struct {
	noAutoBackends bool
}

// Option configures an Engine at construction time.
type Option func(*engineConfig)

// WithoutAutoBackends skips registering the built-in Typst backend, leaving
// the caller to call RegisterBackend explicitly.
func WithoutAutoBackends() Option {
	return func(c *engineConfig) {
		c.noAutoBackends = true
	}
}
