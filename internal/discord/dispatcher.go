package discord

import (
	"context"
	"log"
	"runtime/debug"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/keshon/airlock/internal/plugin"
)

// InternalErrorReply is what a caller sees when a plugin fails.
const InternalErrorReply = "An unhandled exception was encountered while running that command. The details have been logged for a maintainer to see."

// Dispatcher turns prefixed messages into plugin invocations.
type Dispatcher struct {
	app *plugin.Context
}

func NewDispatcher(app *plugin.Context) *Dispatcher {
	return &Dispatcher{app: app}
}

// Dispatch handles one inbound message. It never panics and is safe to call
// concurrently for different messages.
func (d *Dispatcher) Dispatch(ctx context.Context, m *discordgo.Message) {
	prefix := d.app.Prefix()
	if m.Author == nil || m.Author.Bot || m.Content == "" || !strings.HasPrefix(m.Content, prefix) {
		return
	}
	if m.GuildID != d.app.GuildID() {
		return
	}

	if d.app.Members != nil {
		go d.app.Members.Refresh(context.WithoutCancel(ctx))
	}

	id := uuid.NewString()[:8]
	log.Printf("[INFO] [%s] <%s> %s", id, m.Author.Username, m.Content)

	name, rest := splitCommand(strings.TrimPrefix(m.Content, prefix))
	entry := d.app.Registry.Get(name)
	if entry == nil {
		return
	}

	inv := &plugin.Invocation{
		ID:      id,
		Message: m,
		Command: name,
		RawArgs: rest,
		Roles:   d.callerRoles(m),
		Entry:   entry,
		App:     d.app,
	}
	d.run(ctx, inv)

	d.app.Latch.Check()
}

func (d *Dispatcher) run(ctx context.Context, inv *plugin.Invocation) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERR] [%s] Plugin %s panicked: %v\n%s", inv.ID, inv.Command, r, debug.Stack())
			d.replyInternalError(ctx, inv)
		}
	}()

	if err := inv.Entry.Handler.Run(ctx, inv); err != nil {
		log.Printf("[ERR] [%s] Plugin %s failed: %v", inv.ID, inv.Command, err)
		d.replyInternalError(ctx, inv)
		return
	}
	log.Printf("[DONE] [%s] %s", inv.ID, inv.Command)
}

func (d *Dispatcher) replyInternalError(ctx context.Context, inv *plugin.Invocation) {
	if err := inv.Reply(ctx, InternalErrorReply); err != nil {
		log.Printf("[ERR] [%s] Failed to report the error: %v", inv.ID, err)
	}
}

// callerRoles returns the author's roles plus the @everyone role, whose ID is
// the guild ID.
func (d *Dispatcher) callerRoles(m *discordgo.Message) []string {
	var roles []string
	switch {
	case m.Member != nil:
		roles = append(roles, m.Member.Roles...)
	case d.app.Members != nil:
		if member, ok := d.app.Members.Cached(m.Author.ID); ok {
			roles = append(roles, member.Roles...)
		}
	}
	return append(roles, m.GuildID)
}

// splitCommand splits "name   rest of it" into the name and the text after
// the first run of whitespace.
func splitCommand(s string) (name, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
