package plugin

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/usage"
)

// BaseIntents are requested regardless of what plugins declare.
const BaseIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

var capabilityIntents = map[string]discordgo.Intent{
	"GUILDS":                  discordgo.IntentsGuilds,
	"GUILD_MEMBERS":           discordgo.IntentsGuildMembers,
	"GUILD_BANS":              discordgo.IntentsGuildBans,
	"GUILD_PRESENCES":         discordgo.IntentsGuildPresences,
	"GUILD_MESSAGES":          discordgo.IntentsGuildMessages,
	"GUILD_MESSAGE_REACTIONS": discordgo.IntentsGuildMessageReactions,
	"DIRECT_MESSAGES":         discordgo.IntentsDirectMessages,
	"MESSAGE_CONTENT":         discordgo.IntentsMessageContent,
}

// Entry is a loaded plugin.
type Entry struct {
	Source string
	// Plugin is the plugin as registered; Handler is it wrapped in middleware.
	Plugin  Plugin
	Handler Plugin
	// Usages is nil when the plugin declares no usage.
	Usages []usage.Usage
}

// Name returns the dispatch key.
func (e *Entry) Name() string { return e.Plugin.Name() }

// Registry holds the loaded plugins in load order.
type Registry struct {
	catalogue   usage.Catalogue
	middlewares []Middleware

	entries map[string]*Entry
	order   []*Entry
	intents discordgo.Intent
}

// NewRegistry returns an empty registry whose plugins will be wrapped in mws.
func NewRegistry(cat usage.Catalogue, mws ...Middleware) *Registry {
	if cat == nil {
		cat = usage.DefaultCatalogue()
	}
	return &Registry{
		catalogue:   cat,
		middlewares: mws,
		entries:     make(map[string]*Entry),
		intents:     BaseIntents,
	}
}

// Load loads sources one at a time. Problems are reported through
// app.Fatalf and loading goes on, so every problem is shown before exit.
func (r *Registry) Load(app *Context, sources []Source) {
	app.Registry = r
	for _, src := range sources {
		r.load(app, src)
	}
}

func (r *Registry) load(app *Context, src Source) {
	p := src.Plugin
	name := p.Name()
	log.Printf("[INFO] Loading plugin %s (%s)...", name, src.Name)

	if prev, dup := r.entries[name]; dup {
		app.Fatalf("Plugins %s and %s are both named %q. Plugin names must be unique.", prev.Source, src.Name, name)
		return
	}
	entry := &Entry{Source: src.Name, Plugin: p}

	if cp, ok := p.(CapabilityProvider); ok {
		for _, tag := range cp.Capabilities() {
			intent, known := capabilityIntents[tag]
			if !known {
				app.Fatalf("Plugin %s requests unknown capability %q.", name, tag)
				continue
			}
			r.intents |= intent
		}
	}

	if up, ok := p.(UsageProvider); ok {
		usages, err := usage.CompileAll(up.Usage(), r.catalogue)
		if err != nil {
			app.Fatalf("Syntax error in usage of plugin %s: %v", name, err)
		}
		entry.Usages = usages
	}

	entry.Handler = Apply(p, r.middlewares...)
	r.entries[name] = entry
	r.order = append(r.order, entry)

	if in, ok := p.(Initializer); ok {
		if err := in.Initialize(app); err != nil {
			app.Fatalf("Plugin %s failed to initialize: %v", name, err)
		}
	}
}

// Ready runs the ready hooks in load order and stops at the first error.
func (r *Registry) Ready(ctx context.Context, app *Context) error {
	for _, e := range r.order {
		hook, ok := e.Plugin.(ReadyHook)
		if !ok {
			continue
		}
		if err := hook.Ready(ctx, app); err != nil {
			return fmt.Errorf("plugin %s: ready: %w", e.Name(), err)
		}
	}
	return nil
}

// Get returns the plugin dispatched under name, or nil.
func (r *Registry) Get(name string) *Entry {
	return r.entries[name]
}

// Entries returns the loaded plugins in load order.
func (r *Registry) Entries() []*Entry {
	return append([]*Entry(nil), r.order...)
}

// Intents returns the union of the base intents and every requested capability.
func (r *Registry) Intents() discordgo.Intent {
	return r.intents
}

// FormatUsage renders the help text for an entry's usage list.
func (r *Registry) FormatUsage(prefix string, e *Entry) string {
	if e.Usages == nil {
		return "(There is no command associated with this plugin.)"
	}

	var b strings.Builder
	b.WriteString("Usage:")
	for _, u := range e.Usages {
		for _, line := range strings.Split(usage.Format(prefix, e.Name(), u), "\n") {
			b.WriteString("\n    ")
			b.WriteString(line)
		}
	}
	return b.String()
}
