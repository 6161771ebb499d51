// Package plugin defines the plugin contract and the registry that loads
// plugins, compiles their usage and runs their lifecycle hooks.
//
// A plugin only has to provide a name and a Run method. Everything else is
// optional and detected through the small interfaces below.
package plugin

import "context"

// Plugin is a command the dispatcher can run. Name is the dispatch key.
type Plugin interface {
	Name() string
	Run(ctx context.Context, inv *Invocation) error
}

// UsageProvider declares the usage grammar strings, tried in order.
type UsageProvider interface {
	Usage() []string
}

// Describer provides help text.
type Describer interface {
	Synopsis() string
	Description() string
}

// CapabilityProvider requests platform access scopes, e.g. "GUILD_MEMBERS".
type CapabilityProvider interface {
	Capabilities() []string
}

// Initializer runs once at load time, before the platform connection exists.
// It may report fatal configuration problems with Context.Fatalf.
type Initializer interface {
	Initialize(app *Context) error
}

// ReadyHook runs once after the platform connection is established.
type ReadyHook interface {
	Ready(ctx context.Context, app *Context) error
}
