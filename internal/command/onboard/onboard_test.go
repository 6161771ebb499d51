package onboard_test

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/command/onboard"
	"github.com/keshon/airlock/internal/config"
	"github.com/keshon/airlock/internal/discord"
	"github.com/keshon/airlock/internal/fatal"
	"github.com/keshon/airlock/internal/middleware"
	"github.com/keshon/airlock/internal/permission"
	"github.com/keshon/airlock/internal/platform"
	"github.com/keshon/airlock/internal/platform/platformtest"
	"github.com/keshon/airlock/internal/plugin"
)

const (
	guildID = "100000000000000000"

	patron1  = "200000000000000001"
	patron2  = "200000000000000002"
	newbie1  = "300000000000000001"
	newbie2  = "300000000000000002"
	frozen   = "400000000000000001"
	full     = "500000000000000001"
	ticketed = "600000000000000001"
	botUser  = "700000000000000001"
)

const testConfig = `
commandPrefix: "!"
guildId: "100000000000000000"
onboarding:
  onboardingCategoryIds: ["tickets"]
  admissionChannelId: "admissions"
  admissionMessage: "Welcome in!"
  memberRoleId: "member"
  patronRoleIds: ["patron"]
  freezerRoleIds: ["frozen", "frozen-legacy"]
`

type world struct {
	app  *plugin.Context
	fake *platformtest.Fake
	d    *discord.Dispatcher
	n    int
}

func joined(minutes int) time.Time {
	return time.Date(2024, 1, 1, 0, minutes, 0, 0, time.UTC)
}

func newWorld(t *testing.T) *world {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	perms, err := permission.NewSet([]permission.Rule{
		{Roles: []string{"mod"}, Command: "onboard", Effect: permission.Allow},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	fake := platformtest.New(guildID)
	fake.GuildValue.Roles = []*discordgo.Role{
		{ID: guildID, Permissions: discordgo.PermissionViewChannel},
	}
	fake.ChannelList = []*discordgo.Channel{
		{ID: "general", ParentID: "text"},
		{
			ID:       "ticket-1",
			ParentID: "tickets",
			PermissionOverwrites: []*discordgo.PermissionOverwrite{
				{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
				{ID: ticketed, Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionViewChannel},
			},
		},
	}

	add := func(id string, minutes int, bot bool, roles ...string) {
		fake.AddMember(&discordgo.Member{
			User:     &discordgo.User{ID: id, Username: "user" + id[len(id)-1:], Bot: bot},
			JoinedAt: joined(minutes),
			Roles:    roles,
		})
	}
	add(ticketed, 0, false)
	add(patron1, 1, false, "patron")
	add(newbie1, 2, false)
	add(frozen, 3, false, "frozen")
	add(patron2, 4, false, "patron")
	add(full, 5, false, "member")
	add(newbie2, 6, false)
	add(botUser, 7, true)

	app := &plugin.Context{
		Config:      cfg,
		Permissions: perms,
		Latch:       fatal.NewWith(&bytes.Buffer{}, func(int) { t.Error("unexpected exit") }),
		Platform:    fake,
		Events:      fake,
		Members:     platform.NewMembersCache(fake, guildID, time.Hour),
	}
	app.Members.Refresh(context.Background())

	plugin.NewRegistry(nil, middleware.WithPermissionCheck(), middleware.WithArgumentBinding()).
		Load(app, []plugin.Source{{Name: "onboard", Plugin: &onboard.OnboardCommand{}}})
	if app.Latch.Requested() {
		t.Fatal("unexpected fatal while loading")
	}
	return &world{app: app, fake: fake, d: discord.NewDispatcher(app)}
}

func (w *world) message(content string) *discordgo.Message {
	w.n++
	return &discordgo.Message{
		ID:        fmt.Sprintf("cmd%d", w.n),
		ChannelID: "staff",
		GuildID:   guildID,
		Content:   content,
		Author:    &discordgo.User{ID: "900000000000000001", Username: "moderator"},
		Member:    &discordgo.Member{Roles: []string{"mod"}},
	}
}

// send dispatches content and returns the replies it produced.
func (w *world) send(t *testing.T, content string) []string {
	t.Helper()
	m := w.message(content)
	w.d.Dispatch(context.Background(), m)
	return w.fake.Replies(m.ID)
}

func (w *world) roles(userID string) []string {
	m, _ := w.fake.Member(context.Background(), guildID, userID)
	return m.Roles
}

func describe(id string, patron bool, minutes int) string {
	ts := joined(minutes).Unix()
	tag := ""
	if patron {
		tag = " (Patron)"
	}
	return fmt.Sprintf("<@%s>%s, joined at <t:%d:f> (<t:%d:R>)", id, tag, ts, ts)
}

func TestViewNext_InterleavesPatrons(t *testing.T) {
	w := newWorld(t)

	replies := w.send(t, "!onboard view next 3")
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1: %q", len(replies), replies)
	}
	want := strings.Join([]string{
		describe(patron1, true, 1),
		describe(newbie1, false, 2),
		describe(patron2, true, 4),
	}, "\n")
	if replies[0] != want {
		t.Errorf("got %q, want %q", replies[0], want)
	}
}

func TestViewNext_ExhaustsQueue(t *testing.T) {
	w := newWorld(t)

	replies := w.send(t, "!onboard view next 10")
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	lines := strings.Split(replies[0], "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d entries, want 4: %q", len(lines), lines)
	}
	for _, excluded := range []string{ticketed, frozen, full, botUser} {
		if strings.Contains(replies[0], excluded) {
			t.Errorf("%s must not be queued", excluded)
		}
	}
	if !strings.HasPrefix(lines[3], "<@"+newbie2+">") {
		t.Errorf("last entry: got %q, want %s", lines[3], newbie2)
	}

	if got := w.send(t, "!onboard view next 0"); len(got) != 1 || got[0] != "No results." {
		t.Errorf("got %q, want No results.", got)
	}
}

func TestInterleave(t *testing.T) {
	m := func(id string) *discordgo.Member { return &discordgo.Member{User: &discordgo.User{ID: id}} }
	ids := func(ms []*discordgo.Member) string {
		var out []string
		for _, x := range ms {
			out = append(out, x.User.ID)
		}
		return strings.Join(out, ",")
	}

	tests := []struct {
		name    string
		patrons []*discordgo.Member
		others  []*discordgo.Member
		amount  int
		want    string
	}{
		{"alternates", []*discordgo.Member{m("p1"), m("p2")}, []*discordgo.Member{m("n1"), m("n2")}, 4, "p1,n1,p2,n2"},
		{"no patrons", nil, []*discordgo.Member{m("n1"), m("n2")}, 2, "n1,n2"},
		{"patrons only", []*discordgo.Member{m("p1"), m("p2")}, nil, 3, "p1"},
		{"others run out", []*discordgo.Member{m("p1"), m("p2"), m("p3")}, []*discordgo.Member{m("n1")}, 5, "p1,n1,p2"},
		{"zero", []*discordgo.Member{m("p1")}, []*discordgo.Member{m("n1")}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(onboard.Interleave(tt.patrons, tt.others, tt.amount)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdmit_Direct(t *testing.T) {
	w := newWorld(t)

	replies := w.send(t, "!onboard admit <@"+newbie1+">")
	want := "🌈<@" + newbie1 + "> has been granted access to the server."
	if len(replies) != 1 || replies[0] != want {
		t.Errorf("replies: got %q, want [%q]", replies, want)
	}
	if !slices.Contains(w.roles(newbie1), "member") {
		t.Errorf("roles: got %v, want member", w.roles(newbie1))
	}
	if dms := w.fake.DMs(newbie1); len(dms) != 1 || dms[0] != "Welcome in!" {
		t.Errorf("DMs: got %q", dms)
	}

	var logged bool
	for _, s := range w.fake.Sent() {
		if s.ChannelID == "admissions" && s.Content == want {
			logged = true
		}
	}
	if !logged {
		t.Error("admission was not logged to the admission channel")
	}
}

func TestAdmit_DirectLiftsFreeze(t *testing.T) {
	w := newWorld(t)

	w.send(t, "!onboard admit <@"+frozen+">")
	roles := w.roles(frozen)
	if slices.Contains(roles, "frozen") || !slices.Contains(roles, "member") {
		t.Errorf("roles: got %v, want member without frozen", roles)
	}
}

func TestAdmitThem_SkipsFrozen(t *testing.T) {
	w := newWorld(t)
	w.fake.MessageList["listing"] = &discordgo.Message{
		ID:        "listing",
		ChannelID: "staff",
		Content:   "Ready: <@" + frozen + "> and <@!" + newbie1 + ">, also <@" + newbie1 + ">",
	}

	m := w.message("!onboard admit them")
	m.MessageReference = &discordgo.MessageReference{MessageID: "listing", ChannelID: "staff"}
	w.d.Dispatch(context.Background(), m)

	want := []string{
		"Very well. Proceeding with admissions.",
		"<@" + frozen + "> is frozen in the queue. If you wish to admit anyway, use `!onboard admit <@" + frozen + ">`.",
		"I have admitted the requested batch.",
	}
	if got := w.fake.Replies(m.ID); !slices.Equal(got, want) {
		t.Errorf("replies:\ngot  %q\nwant %q", got, want)
	}
	if !slices.Contains(w.roles(newbie1), "member") {
		t.Error("newbie was not admitted")
	}
	if slices.Contains(w.roles(frozen), "member") {
		t.Error("frozen user must not be batch-admitted")
	}
	if dms := w.fake.DMs(newbie1); len(dms) != 1 {
		t.Errorf("duplicate mentions must admit once, got %d DMs", len(dms))
	}
}

func TestAdmitThem_RequiresReply(t *testing.T) {
	w := newWorld(t)

	got := w.send(t, "!onboard admit them")
	if len(got) != 1 || got[0] != "Please reply to the message listing the users to admit." {
		t.Errorf("got %q", got)
	}
}

func TestAdmitNext(t *testing.T) {
	w := newWorld(t)

	got := w.send(t, fmt.Sprintf("!onboard admit next %d", onboard.BatchAdmissionCap+1))
	if len(got) != 1 || !strings.Contains(got[0], "there is a cap of 50") {
		t.Fatalf("cap reply: got %q", got)
	}
	if len(w.fake.RoleChanges()) != 0 {
		t.Fatal("no roles may change when the cap is exceeded")
	}

	w.send(t, "!onboard admit next 2")
	for _, id := range []string{patron1, newbie1} {
		if !slices.Contains(w.roles(id), "member") {
			t.Errorf("%s was not admitted", id)
		}
	}
	if slices.Contains(w.roles(patron2), "member") {
		t.Error("only two users may be admitted")
	}
}

func TestKick(t *testing.T) {
	w := newWorld(t)

	if got := w.send(t, "!onboard kick <@"+newbie1+">"); len(got) != 1 || got[0] != "You must provide a non-empty reason." {
		t.Errorf("empty reason: got %q", got)
	}

	w.fake.DMBlocked[newbie1] = true
	got := w.send(t, "!onboard kick <@"+newbie1+"> no intro given")
	want := "⛔<@" + newbie1 + "> has been kicked with this reason: no intro given"
	if len(got) != 1 || got[0] != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if reason, ok := w.fake.Kicked(newbie1); !ok || reason != "no intro given" {
		t.Errorf("kicked: got %q %v", reason, ok)
	}

	w.fake.FailKick = true
	if got := w.send(t, "!onboard kick <@"+newbie2+"> spam"); len(got) != 1 || got[0] != "I am unable to kick that user." {
		t.Errorf("failed kick: got %q", got)
	}
}

func TestBan(t *testing.T) {
	w := newWorld(t)

	got := w.send(t, "!onboard ban <@"+newbie2+"> spam bot")
	want := "⛔<@" + newbie2 + "> has been **banned** with this reason: spam bot"
	if len(got) != 1 || got[0] != want {
		t.Errorf("got %q, want %q", got, want)
	}
	dms := w.fake.DMs(newbie2)
	if len(dms) != 2 || dms[1] != "spam bot" {
		t.Errorf("DMs: got %q", dms)
	}
}

func TestFullMembersAreProtected(t *testing.T) {
	w := newWorld(t)

	want := "I am unable to perform that operation on someone who is a full member of the server."
	for _, cmd := range []string{
		"!onboard admit <@" + full + ">",
		"!onboard kick <@" + full + "> x",
		"!onboard ban <@" + full + "> x",
		"!onboard freeze <@" + full + "> x",
	} {
		if got := w.send(t, cmd); len(got) != 1 || got[0] != want {
			t.Errorf("%s: got %q, want %q", cmd, got, want)
		}
	}
	if _, kicked := w.fake.Kicked(full); kicked {
		t.Error("a full member was kicked")
	}
}

func TestFreeze(t *testing.T) {
	w := newWorld(t)

	if got := w.send(t, "!onboard freeze <@"+frozen+"> smile"); len(got) != 1 || got[0] != "That user is already frozen." {
		t.Errorf("already frozen: got %q", got)
	}
	if got := w.send(t, "!onboard freeze <@"+newbie1+">"); len(got) != 1 || got[0] != "You must give a request that will be DMed to the user." {
		t.Errorf("empty request: got %q", got)
	}

	got := w.send(t, "!onboard freeze <@"+newbie1+"> please change your picture")
	if len(got) != 1 || got[0] != "I have successfully frozen and DMed that user." {
		t.Errorf("freeze: got %q", got)
	}
	if !slices.Contains(w.roles(newbie1), "frozen") {
		t.Errorf("roles: got %v, want frozen", w.roles(newbie1))
	}

	w.fake.DMBlocked[newbie2] = true
	got = w.send(t, "!onboard freeze <@"+newbie2+"> please change your picture")
	if len(got) != 1 || got[0] != "I was unable to DM that user. I have frozen them anyway." {
		t.Errorf("freeze without DM: got %q", got)
	}
	if !slices.Contains(w.roles(newbie2), "frozen") {
		t.Error("user must be frozen even when the DM fails")
	}
}

func TestDeniedCallerGetsNoReply(t *testing.T) {
	w := newWorld(t)

	m := w.message("!onboard view next 3")
	m.Member.Roles = nil
	w.d.Dispatch(context.Background(), m)
	if got := w.fake.Replies(m.ID); len(got) != 0 {
		t.Errorf("got %q, want no reply", got)
	}
}
