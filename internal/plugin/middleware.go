package plugin

import "context"

// Middleware wraps a plugin's Run (logging, permission check, argument binding).
type Middleware func(Plugin) Plugin

// Apply wraps p with mws; the first in the list is the outermost.
func Apply(p Plugin, mws ...Middleware) Plugin {
	for i := len(mws) - 1; i >= 0; i-- {
		p = mws[i](p)
	}
	return p
}

// Unwrappable is implemented by wrapped plugins so callers can reach the
// plugin underneath.
type Unwrappable interface {
	Plugin
	Unwrap() Plugin
}

// Wrapped is a plugin with a replaced Run.
type Wrapped struct {
	Inner   Plugin
	RunFunc func(ctx context.Context, inv *Invocation) error
}

// Name delegates to the inner plugin.
func (w *Wrapped) Name() string { return w.Inner.Name() }

func (w *Wrapped) Run(ctx context.Context, inv *Invocation) error {
	if w.RunFunc != nil {
		return w.RunFunc(ctx, inv)
	}
	return w.Inner.Run(ctx, inv)
}

// Unwrap returns the inner plugin.
func (w *Wrapped) Unwrap() Plugin { return w.Inner }

// Wrap returns a plugin that runs run instead of p.Run.
func Wrap(p Plugin, run func(ctx context.Context, inv *Invocation) error) Plugin {
	return &Wrapped{Inner: p, RunFunc: run}
}

// Root unwraps p until it reaches a plugin that is not Unwrappable.
func Root(p Plugin) Plugin {
	for {
		u, ok := p.(Unwrappable)
		if !ok {
			return p
		}
		p = u.Unwrap()
	}
}
