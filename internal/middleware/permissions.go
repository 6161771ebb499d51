package middleware

import (
	"context"
	"log"

	"github.com/keshon/airlock/internal/plugin"
	"github.com/keshon/airlock/internal/storage"
)

// WithPermissionCheck drops invocations the permission rules do not allow.
// The caller gets no reply.
func WithPermissionCheck() plugin.Middleware {
	return func(p plugin.Plugin) plugin.Plugin {
		return plugin.Wrap(p, func(ctx context.Context, inv *plugin.Invocation) error {
			perms := inv.App.Permissions
			if perms == nil || !perms.Allows(inv.Roles, inv.Command, inv.Message.ChannelID) {
				log.Printf("[INFO] [%s] The preceding command was ignored due to insufficient permissions.", inv.ID)
				inv.Outcome = storage.OutcomeDenied
				return nil
			}
			return p.Run(ctx, inv)
		})
	}
}
