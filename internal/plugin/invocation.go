package plugin

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/platform"
	"github.com/keshon/airlock/internal/usage"
)

// Invocation is one dispatched command.
type Invocation struct {
	ID      string // correlation ID used in logs
	Message *discordgo.Message
	Command string
	RawArgs string
	// Roles are the caller's role IDs, including the @everyone role.
	Roles []string
	// Args is set by the argument binding stage.
	Args  usage.Args
	Entry *Entry
	App   *Context
	// Outcome is filled in by the pipeline stages for the command log.
	Outcome string
}

// GuildID returns the guild the message was sent in.
func (inv *Invocation) GuildID() string { return inv.Message.GuildID }

// Env is what argument types may consult while binding.
func (inv *Invocation) Env() usage.Env {
	env := usage.Env{GuildID: inv.Message.GuildID}
	if inv.App.Members != nil {
		env.Members = inv.App.Members
	}
	return env
}

// Reply answers the triggering message.
func (inv *Invocation) Reply(ctx context.Context, content string) error {
	_, err := inv.App.Platform.Reply(ctx, inv.Message, content)
	return err
}

// ReplyLines answers with lines, chunked to the per-message limit, or with
// empty when there are no lines.
func (inv *Invocation) ReplyLines(ctx context.Context, lines []string, empty string) error {
	if len(lines) == 0 {
		return inv.Reply(ctx, empty)
	}
	for _, chunk := range platform.Chunk(lines, platform.MaxLinesPerMessage) {
		if err := inv.Reply(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}
