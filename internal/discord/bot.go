// Package discord connects the plugin runtime to Discord.
package discord

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/platform"
	"github.com/keshon/airlock/internal/plugin"
	v "github.com/keshon/airlock/internal/version"
)

// Bot owns the Discord session for the managed guild.
type Bot struct {
	app        *plugin.Context
	dg         *discordgo.Session
	dispatcher *Dispatcher

	startOnce sync.Once
	errCh     chan error
}

// NewBot creates the session and fills in the platform fields of app.
// The registry must already be loaded so the intents are known.
func NewBot(app *plugin.Context) (*Bot, error) {
	dg, err := discordgo.New("Bot " + app.Config.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = app.Registry.Intents()

	adapter := NewAdapter(dg)
	app.Platform = adapter
	app.Events = adapter
	app.Members = platform.NewMembersCache(adapter, app.GuildID(), platform.MembersRefreshInterval)

	return &Bot{
		app:        app,
		dg:         dg,
		dispatcher: NewDispatcher(app),
		errCh:      make(chan error, 1),
	}, nil
}

// Run connects and serves until ctx is done or startup fails.
func (b *Bot) Run(ctx context.Context) error {
	b.dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) { b.onReady(ctx, s, r) })
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMemberAdd)
	b.dg.AddHandler(b.onMemberUpdate)
	b.dg.AddHandler(b.onMemberRemove)

	log.Println("[INFO] Connecting...")
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	select {
	case <-ctx.Done():
		log.Println("[INFO] Shutdown signal received. Cleaning up...")
		return nil
	case err := <-b.errCh:
		return err
	}
}

// onReady fires again after every reconnect; startup only runs once.
func (b *Bot) onReady(ctx context.Context, s *discordgo.Session, r *discordgo.Ready) {
	b.startOnce.Do(func() {
		if err := b.start(ctx, r); err != nil {
			b.errCh <- err
			return
		}
		b.dg.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			b.dispatcher.Dispatch(ctx, m.Message)
		})
		log.Printf("[INFO] %s is running as %s.", v.AppName, r.User.Username)
	})
}

func (b *Bot) start(ctx context.Context, r *discordgo.Ready) error {
	guild, err := b.app.Platform.Guild(ctx, b.app.GuildID())
	if err != nil {
		return fmt.Errorf("failed to fetch the configured guild %s: %w", b.app.GuildID(), err)
	}
	b.app.Guild = guild

	for _, g := range r.Guilds {
		b.checkGuild(ctx, g)
	}

	if err := b.app.Members.Load(ctx); err != nil {
		log.Printf("[WARN] Failed to load members: %v", err)
	}

	if err := b.app.Registry.Ready(ctx, b.app); err != nil {
		return err
	}
	log.Println("[DONE] Startup complete.")
	return nil
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	b.checkGuild(context.Background(), g.Guild)
}

// checkGuild leaves any guild other than the managed one.
func (b *Bot) checkGuild(ctx context.Context, g *discordgo.Guild) {
	if g.ID == b.app.GuildID() {
		return
	}
	log.Printf("[WARN] Leaving guild %s (%s) because it does not match the configured guild ID (%s).", g.Name, g.ID, b.app.GuildID())
	if err := b.app.Platform.LeaveGuild(ctx, g.ID); err != nil {
		log.Printf("[ERR] Failed to leave guild %s: %v", g.ID, err)
	}
}

func (b *Bot) onMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.GuildID == b.app.GuildID() {
		b.app.Members.Upsert(e.Member)
	}
}

func (b *Bot) onMemberUpdate(_ *discordgo.Session, e *discordgo.GuildMemberUpdate) {
	if e.GuildID == b.app.GuildID() {
		b.app.Members.Upsert(e.Member)
	}
}

func (b *Bot) onMemberRemove(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.GuildID == b.app.GuildID() && e.User != nil {
		b.app.Members.Remove(e.User.ID)
	}
}
