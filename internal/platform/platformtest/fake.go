// Package platformtest provides an in-memory platform for tests.
package platformtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/platform"
)

var (
	_ platform.Platform = (*Fake)(nil)
	_ platform.Events   = (*Fake)(nil)
)

// Sent is a message recorded by the fake.
type Sent struct {
	ChannelID string
	ReplyTo   string
	UserID    string // set for direct messages
	Content   string
}

// RoleChange is a recorded role mutation.
type RoleChange struct {
	UserID string
	RoleID string
	Added  bool
}

// Fake implements platform.Platform and platform.Events in memory.
// Event handlers run synchronously on the goroutine that emits the event.
type Fake struct {
	mu sync.Mutex

	GuildValue  *discordgo.Guild
	ChannelList []*discordgo.Channel
	MemberList  map[string]*discordgo.Member
	MessageList map[string]*discordgo.Message

	// DMBlocked lists users whose direct messages fail.
	DMBlocked map[string]bool
	// FailKick and FailBan make the respective action fail.
	FailKick, FailBan bool
	// FailDelete and FailReply make message deletion and replies fail.
	FailDelete, FailReply bool

	sent    []Sent
	roles   []RoleChange
	deleted []string
	kicked  map[string]string
	banned  map[string]string
	left    []string
	nextID  int

	handlerID       int
	messageHandlers map[int]func(*discordgo.Message)
	channelHandlers map[int]func(*discordgo.Channel)
}

// New returns an empty fake for guildID.
func New(guildID string) *Fake {
	return &Fake{
		GuildValue:      &discordgo.Guild{ID: guildID, Name: "test guild"},
		MemberList:      make(map[string]*discordgo.Member),
		MessageList:     make(map[string]*discordgo.Message),
		DMBlocked:       make(map[string]bool),
		kicked:          make(map[string]string),
		banned:          make(map[string]string),
		messageHandlers: make(map[int]func(*discordgo.Message)),
		channelHandlers: make(map[int]func(*discordgo.Channel)),
	}
}

// AddMember stores a member and returns it.
func (f *Fake) AddMember(m *discordgo.Member) *discordgo.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MemberList[m.User.ID] = m
	return m
}

func (f *Fake) record(s Sent) *discordgo.Message {
	f.nextID++
	id := "m" + strconv.Itoa(f.nextID)
	msg := &discordgo.Message{ID: id, ChannelID: s.ChannelID, Content: s.Content}
	f.sent = append(f.sent, s)
	f.MessageList[id] = msg
	return msg
}

func (f *Fake) Reply(_ context.Context, m *discordgo.Message, content string) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReply {
		return nil, fmt.Errorf("cannot reply to message %s", m.ID)
	}
	return f.record(Sent{ChannelID: m.ChannelID, ReplyTo: m.ID, Content: content}), nil
}

func (f *Fake) Send(_ context.Context, channelID, content string) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(Sent{ChannelID: channelID, Content: content}), nil
}

func (f *Fake) DirectMessage(_ context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DMBlocked[userID] {
		return fmt.Errorf("cannot send messages to user %s", userID)
	}
	f.record(Sent{ChannelID: "dm:" + userID, UserID: userID, Content: content})
	return nil
}

func (f *Fake) Message(_ context.Context, _, messageID string) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.MessageList[messageID]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", messageID)
	}
	return m, nil
}

func (f *Fake) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete {
		return fmt.Errorf("cannot delete message %s", messageID)
	}
	f.deleted = append(f.deleted, messageID)
	delete(f.MessageList, messageID)
	return nil
}

func (f *Fake) Guild(context.Context, string) (*discordgo.Guild, error) {
	return f.GuildValue, nil
}

func (f *Fake) Channels(context.Context, string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Channel(nil), f.ChannelList...), nil
}

func (f *Fake) LeaveGuild(_ context.Context, guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, guildID)
	return nil
}

func (f *Fake) Members(context.Context, string) ([]*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*discordgo.Member, 0, len(f.MemberList))
	for _, m := range f.MemberList {
		out = append(out, m)
	}
	return out, nil
}

func (f *Fake) Member(_ context.Context, _, userID string) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.MemberList[userID]
	if !ok {
		return nil, fmt.Errorf("unknown member %s", userID)
	}
	return m, nil
}

func (f *Fake) AddRole(_ context.Context, _, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, RoleChange{UserID: userID, RoleID: roleID, Added: true})
	if m, ok := f.MemberList[userID]; ok {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (f *Fake) RemoveRole(_ context.Context, _, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, RoleChange{UserID: userID, RoleID: roleID})
	if m, ok := f.MemberList[userID]; ok {
		kept := m.Roles[:0]
		for _, r := range m.Roles {
			if r != roleID {
				kept = append(kept, r)
			}
		}
		m.Roles = kept
	}
	return nil
}

func (f *Fake) Kick(_ context.Context, _, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailKick {
		return fmt.Errorf("missing permissions to kick %s", userID)
	}
	f.kicked[userID] = reason
	return nil
}

func (f *Fake) Ban(_ context.Context, _, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailBan {
		return fmt.Errorf("missing permissions to ban %s", userID)
	}
	f.banned[userID] = reason
	return nil
}

func (f *Fake) OnMessageCreate(fn func(*discordgo.Message)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlerID++
	id := f.handlerID
	f.messageHandlers[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.messageHandlers, id)
		f.mu.Unlock()
	}
}

func (f *Fake) OnChannelCreate(fn func(*discordgo.Channel)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlerID++
	id := f.handlerID
	f.channelHandlers[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.channelHandlers, id)
		f.mu.Unlock()
	}
}

// EmitMessage delivers m to every message handler and stores it.
func (f *Fake) EmitMessage(m *discordgo.Message) {
	f.mu.Lock()
	f.MessageList[m.ID] = m
	handlers := make([]func(*discordgo.Message), 0, len(f.messageHandlers))
	for _, h := range f.messageHandlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(m)
	}
}

// EmitChannel delivers ch to every channel handler.
func (f *Fake) EmitChannel(ch *discordgo.Channel) {
	f.mu.Lock()
	handlers := make([]func(*discordgo.Channel), 0, len(f.channelHandlers))
	for _, h := range f.channelHandlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ch)
	}
}

// Handlers returns the number of registered event handlers.
func (f *Fake) Handlers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messageHandlers) + len(f.channelHandlers)
}

// Sent returns every recorded message in order.
func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// Replies returns the contents of replies to the message with the given ID.
func (f *Fake) Replies(messageID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.ReplyTo == messageID {
			out = append(out, s.Content)
		}
	}
	return out
}

// DMs returns the direct messages sent to userID.
func (f *Fake) DMs(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.UserID == userID {
			out = append(out, s.Content)
		}
	}
	return out
}

// RoleChanges returns every recorded role mutation.
func (f *Fake) RoleChanges() []RoleChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RoleChange(nil), f.roles...)
}

// Deleted returns the IDs of deleted messages.
func (f *Fake) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// Kicked returns the kick reason for userID.
func (f *Fake) Kicked(userID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.kicked[userID]
	return r, ok
}

// Banned returns the ban reason for userID.
func (f *Fake) Banned(userID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.banned[userID]
	return r, ok
}

// Left returns the guilds the fake was asked to leave.
func (f *Fake) Left() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.left...)
}
