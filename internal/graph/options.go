package graph

type options struct {
	name     string
	maxSteps int
	debug    bool
	trace    func(step string)
}

// Option configures a Builder and the Graph it compiles.
type Option func(*options)

// WithName names the graph in logs and errors.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMaxSteps bounds the number of step visits per invocation.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithDebug logs every transition.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithTrace registers a hook called with each step name before it runs.
func WithTrace(fn func(step string)) Option {
	return func(o *options) {
		o.trace = fn
	}
}
