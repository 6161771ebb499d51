// Package platform describes the chat platform as seen by plugins: REST-style
// operations, event subscriptions and a cache of guild members.
package platform

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// MaxLinesPerMessage bounds how many list entries go into one reply.
const MaxLinesPerMessage = 10

// MemberSource fetches guild members.
type MemberSource interface {
	Members(ctx context.Context, guildID string) ([]*discordgo.Member, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
}

// Platform is the set of calls plugins make against the chat platform.
type Platform interface {
	MemberSource

	// Reply answers m without pinging its author.
	Reply(ctx context.Context, m *discordgo.Message, content string) (*discordgo.Message, error)
	Send(ctx context.Context, channelID, content string) (*discordgo.Message, error)
	DirectMessage(ctx context.Context, userID, content string) error
	Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Channels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	LeaveGuild(ctx context.Context, guildID string) error

	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string) error
}

// Events delivers gateway events. Each On method returns a function that
// removes the handler.
type Events interface {
	OnMessageCreate(fn func(*discordgo.Message)) (remove func())
	OnChannelCreate(fn func(*discordgo.Channel)) (remove func())
}

// Chunk joins lines into messages of at most size lines each.
func Chunk(lines []string, size int) []string {
	if size < 1 {
		size = MaxLinesPerMessage
	}
	var out []string
	for start := 0; start < len(lines); start += size {
		end := min(start+size, len(lines))
		out = append(out, strings.Join(lines[start:end], "\n"))
	}
	return out
}
