package help_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/command/help"
	"github.com/keshon/airlock/internal/config"
	"github.com/keshon/airlock/internal/fatal"
	"github.com/keshon/airlock/internal/middleware"
	"github.com/keshon/airlock/internal/platform/platformtest"
	"github.com/keshon/airlock/internal/plugin"
)

type silent struct{}

func (silent) Name() string { return "silent" }

func (silent) Run(context.Context, *plugin.Invocation) error { return nil }

func run(t *testing.T, raw string) []string {
	t.Helper()
	fake := platformtest.New("g")
	app := &plugin.Context{
		Config:   &config.Config{CommandPrefix: "!", GuildID: "g"},
		Latch:    fatal.NewWith(&bytes.Buffer{}, func(int) {}),
		Platform: fake,
		Events:   fake,
	}
	plugin.NewRegistry(nil, middleware.WithArgumentBinding()).Load(app, []plugin.Source{
		{Name: "help", Plugin: &help.HelpCommand{}},
		{Name: "silent", Plugin: silent{}},
	})

	entry := app.Registry.Get("help")
	inv := &plugin.Invocation{
		ID:      "test",
		Message: &discordgo.Message{ID: "msg", ChannelID: "c", GuildID: "g"},
		Command: "help",
		RawArgs: raw,
		Entry:   entry,
		App:     app,
	}
	if err := entry.Handler.Run(context.Background(), inv); err != nil {
		t.Fatalf("Run(%q): %v", raw, err)
	}
	return fake.Replies("msg")
}

func TestHelp_List(t *testing.T) {
	got := run(t, "")
	want := "`!help` Show the available commands.\n`!silent` (no description)"
	if len(got) != 1 || got[0] != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHelp_Detail(t *testing.T) {
	got := run(t, "help")
	if len(got) != 1 {
		t.Fatalf("got %d replies, want 1", len(got))
	}
	for _, want := range []string{
		"**!help**: Show the available commands.",
		"Usage:\n    `!help`\n    `!help <name>`\n        where name is a word",
	} {
		if !strings.Contains(got[0], want) {
			t.Errorf("reply %q does not contain %q", got[0], want)
		}
	}

	got = run(t, "silent")
	if len(got) != 1 || !strings.HasSuffix(got[0], "(There is no command associated with this plugin.)") {
		t.Errorf("got %q", got)
	}
}

func TestHelp_Unknown(t *testing.T) {
	got := run(t, "nope")
	if want := "There is no command named `nope`."; len(got) != 1 || got[0] != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
