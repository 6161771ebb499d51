package middleware

import (
	"context"

	"github.com/keshon/airlock/internal/plugin"
	"github.com/keshon/airlock/internal/storage"
	"github.com/keshon/airlock/internal/usage"
)

// WithArgumentBinding binds the raw arguments against the plugin's usage
// list. When nothing matches, the caller is shown the usage instead.
func WithArgumentBinding() plugin.Middleware {
	return func(p plugin.Plugin) plugin.Plugin {
		return plugin.Wrap(p, func(ctx context.Context, inv *plugin.Invocation) error {
			entry := inv.Entry
			args, ok := usage.Bind(ctx, inv.RawArgs, entry.Usages, inv.Env())
			if !ok {
				inv.Outcome = storage.OutcomeUsage
				return inv.Reply(ctx, inv.App.Registry.FormatUsage(inv.App.Prefix(), entry))
			}
			inv.Args = args
			return p.Run(ctx, inv)
		})
	}
}
