package discord_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/config"
	"github.com/keshon/airlock/internal/discord"
	"github.com/keshon/airlock/internal/fatal"
	"github.com/keshon/airlock/internal/middleware"
	"github.com/keshon/airlock/internal/permission"
	"github.com/keshon/airlock/internal/platform/platformtest"
	"github.com/keshon/airlock/internal/plugin"
)

type probe struct {
	name    string
	runs    int
	rest    string
	roles   []string
	fail    error
	panics  bool
	fatalOn bool
}

func (p *probe) Name() string    { return p.name }
func (p *probe) Usage() []string { return []string{`...rest`} }
func (p *probe) Run(_ context.Context, inv *plugin.Invocation) error {
	p.runs++
	p.rest = inv.Args.String("rest")
	p.roles = inv.Roles
	if p.fatalOn {
		inv.App.Fatalf("stop")
	}
	if p.panics {
		panic("kaboom")
	}
	return p.fail
}

type harness struct {
	app    *plugin.Context
	fake   *platformtest.Fake
	exited *bool
	d      *discord.Dispatcher
}

func newHarness(t *testing.T, plugins ...*probe) harness {
	t.Helper()
	perms, err := permission.NewSet([]permission.Rule{
		{Roles: []string{"banned"}, Command: "*", Effect: permission.Deny},
		{Roles: []string{"g"}, Command: "*", Effect: permission.Allow},
	})
	if err != nil {
		t.Fatal(err)
	}
	exited := false
	fake := platformtest.New("g")
	app := &plugin.Context{
		Config:      &config.Config{CommandPrefix: "!", GuildID: "g"},
		Permissions: perms,
		Latch:       fatal.NewWith(&bytes.Buffer{}, func(int) { exited = true }),
		Platform:    fake,
		Events:      fake,
	}
	var sources []plugin.Source
	for _, p := range plugins {
		sources = append(sources, plugin.Source{Name: p.name, Plugin: p})
	}
	plugin.NewRegistry(nil, middleware.WithPermissionCheck(), middleware.WithArgumentBinding()).Load(app, sources)
	return harness{app: app, fake: fake, exited: &exited, d: discord.NewDispatcher(app)}
}

func message(content string, roles ...string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "msg",
		ChannelID: "c",
		GuildID:   "g",
		Content:   content,
		Author:    &discordgo.User{ID: "u", Username: "user"},
		Member:    &discordgo.Member{Roles: roles},
	}
}

func TestDispatch_Filters(t *testing.T) {
	p := &probe{name: "echo"}
	h := newHarness(t, p)

	bot := message("!echo hi")
	bot.Author.Bot = true
	other := message("!echo hi")
	other.GuildID = "elsewhere"

	for _, m := range []*discordgo.Message{
		bot,
		other,
		message("echo hi"),
		message("?echo hi"),
		message("!unknown hi"),
		message(""),
	} {
		h.d.Dispatch(context.Background(), m)
	}
	if p.runs != 0 {
		t.Errorf("plugin ran %d times for filtered messages", p.runs)
	}
	if sent := h.fake.Sent(); len(sent) != 0 {
		t.Errorf("filtered messages produced replies: %+v", sent)
	}
}

func TestDispatch_SplitsAndAddsEveryoneRole(t *testing.T) {
	p := &probe{name: "echo"}
	h := newHarness(t, p)

	h.d.Dispatch(context.Background(), message("!echo   hello  there \n friend", "r1"))
	if p.runs != 1 {
		t.Fatalf("runs: got %d, want 1", p.runs)
	}
	if got, want := p.rest, "hello  there \n friend"; got != want {
		t.Errorf("rest: got %q, want %q", got, want)
	}
	if len(p.roles) != 2 || p.roles[0] != "r1" || p.roles[1] != "g" {
		t.Errorf("roles: got %v, want [r1 g]", p.roles)
	}
}

func TestDispatch_PermissionDenied(t *testing.T) {
	p := &probe{name: "echo"}
	h := newHarness(t, p)

	h.d.Dispatch(context.Background(), message("!echo hi", "banned"))
	if p.runs != 0 {
		t.Error("denied caller reached the plugin")
	}
	if sent := h.fake.Sent(); len(sent) != 0 {
		t.Errorf("denied caller got replies: %+v", sent)
	}
}

func TestDispatch_ContainsFailures(t *testing.T) {
	tests := []struct {
		name  string
		probe *probe
	}{
		{"error", &probe{name: "fails", fail: errors.New("boom")}},
		{"panic", &probe{name: "panics", panics: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.probe)
			h.d.Dispatch(context.Background(), message("!"+tt.probe.name))

			replies := h.fake.Replies("msg")
			if len(replies) != 1 || replies[0] != discord.InternalErrorReply {
				t.Errorf("replies: got %q, want the internal error reply", replies)
			}

			// The dispatcher keeps serving.
			h.d.Dispatch(context.Background(), message("!"+tt.probe.name))
			if tt.probe.runs != 2 {
				t.Errorf("runs: got %d, want 2", tt.probe.runs)
			}
		})
	}
}

func TestDispatch_ChecksFatalLatch(t *testing.T) {
	p := &probe{name: "stopper", fatalOn: true}
	h := newHarness(t, p)

	h.d.Dispatch(context.Background(), message("!stopper"))
	if !*h.exited {
		t.Error("a fatal raised while handling a command must end the process")
	}
}
