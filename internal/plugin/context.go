package plugin

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/config"
	"github.com/keshon/airlock/internal/fatal"
	"github.com/keshon/airlock/internal/permission"
	"github.com/keshon/airlock/internal/platform"
	"github.com/keshon/airlock/internal/storage"
	"github.com/keshon/airlock/pkg/jobmgr"
)

// Context is the application state shared with plugins. It is filled in
// order: configuration, permissions, registry, then the platform fields once
// the connection is up.
type Context struct {
	Config      *config.Config
	Permissions *permission.Set
	Registry    *Registry
	Storage     *storage.Storage
	Jobs        *jobmgr.Manager
	Latch       *fatal.Latch

	// Set before Ready.
	Platform platform.Platform
	Events   platform.Events
	Members  *platform.MembersCache
	Guild    *discordgo.Guild
}

// Fatalf reports a fatal configuration problem. The process exits once the
// current step is complete.
func (c *Context) Fatalf(format string, args ...any) {
	c.Latch.Fatalf(format, args...)
}

// GuildID returns the managed guild's ID.
func (c *Context) GuildID() string {
	return c.Config.GuildID
}

// Prefix returns the command prefix.
func (c *Context) Prefix() string {
	return c.Config.CommandPrefix
}
