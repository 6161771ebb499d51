package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/platform"
	"github.com/keshon/airlock/pkg/retrylimit"
)

var (
	_ platform.Platform = (*Adapter)(nil)
	_ platform.Events   = (*Adapter)(nil)
)

// Adapter implements the platform interfaces on top of a discordgo session.
// REST errors are wrapped so pkg/retrylimit can classify them.
type Adapter struct {
	s *discordgo.Session
}

func NewAdapter(s *discordgo.Session) *Adapter {
	return &Adapter{s: s}
}

// restError exposes the HTTP status of a discordgo REST error.
type restError struct {
	err  *discordgo.RESTError
	code int
}

func (e *restError) Error() string   { return e.err.Error() }
func (e *restError) Unwrap() error   { return e.err }
func (e *restError) StatusCode() int { return e.code }

// wrapErr marks client errors other than 429 as not worth retrying.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *discordgo.RESTError
	if !errors.As(err, &re) || re.Response == nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	wrapped := &restError{err: re, code: re.Response.StatusCode}
	if wrapped.code >= 400 && wrapped.code < 500 && wrapped.code != 429 {
		return &retrylimit.FatalError{Err: fmt.Errorf("%s: %w", op, wrapped)}
	}
	return fmt.Errorf("%s: %w", op, wrapped)
}

func (a *Adapter) Reply(ctx context.Context, m *discordgo.Message, content string) (*discordgo.Message, error) {
	msg, err := a.s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:   content,
		Reference: m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse:       []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
			RepliedUser: false,
		},
	}, discordgo.WithContext(ctx))
	return msg, wrapErr("reply", err)
}

func (a *Adapter) Send(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	msg, err := a.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}, discordgo.WithContext(ctx))
	return msg, wrapErr("send", err)
}

func (a *Adapter) DirectMessage(ctx context.Context, userID, content string) error {
	ch, err := a.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return wrapErr("open DM channel", err)
	}
	_, err = a.s.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return wrapErr("send DM", err)
}

func (a *Adapter) Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	msg, err := a.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	return msg, wrapErr("fetch message", err)
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return wrapErr("delete message", a.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (a *Adapter) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	g, err := a.s.Guild(guildID, discordgo.WithContext(ctx))
	return g, wrapErr("fetch guild", err)
}

func (a *Adapter) Channels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	chs, err := a.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	return chs, wrapErr("fetch channels", err)
}

func (a *Adapter) LeaveGuild(ctx context.Context, guildID string) error {
	return wrapErr("leave guild", a.s.GuildLeave(guildID, discordgo.WithContext(ctx)))
}

// Members pages through the whole member list.
func (a *Adapter) Members(ctx context.Context, guildID string) ([]*discordgo.Member, error) {
	const pageSize = 1000
	var (
		all   []*discordgo.Member
		after string
	)
	for {
		page, err := a.s.GuildMembers(guildID, after, pageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrapErr("fetch members", err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (a *Adapter) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	m, err := a.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	return m, wrapErr("fetch member", err)
}

func (a *Adapter) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return wrapErr("add role", a.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (a *Adapter) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return wrapErr("remove role", a.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (a *Adapter) Kick(ctx context.Context, guildID, userID, reason string) error {
	return wrapErr("kick", a.s.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)))
}

func (a *Adapter) Ban(ctx context.Context, guildID, userID, reason string) error {
	return wrapErr("ban", a.s.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx)))
}

func (a *Adapter) OnMessageCreate(fn func(*discordgo.Message)) func() {
	return a.s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageCreate) {
		fn(e.Message)
	})
}

func (a *Adapter) OnChannelCreate(fn func(*discordgo.Channel)) func() {
	return a.s.AddHandler(func(_ *discordgo.Session, e *discordgo.ChannelCreate) {
		fn(e.Channel)
	})
}
