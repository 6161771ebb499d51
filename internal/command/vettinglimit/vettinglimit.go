// Package vettinglimit limits how many onboarding tickets can be opened
// during the next round of onboarding.
package vettinglimit

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/plugin"
)

type settings struct {
	PanelChannelID        string   `yaml:"panelChannelId"`
	PanelPosterID         string   `yaml:"panelPosterId"`
	OnboardingCategoryIDs []string `yaml:"onboardingCategoryIds"`
	PanelCommandReminder  string   `yaml:"panelCommandReminder"`
}

type VettingLimitCommand struct {
	cfg     settings
	machine Machine
}

func (c *VettingLimitCommand) Name() string { return "vettinglimit" }
func (c *VettingLimitCommand) Synopsis() string {
	return "Limit the number of tickets that can be opened during the next round of onboarding."
}
func (c *VettingLimitCommand) Description() string {
	return "Invoking without arguments reports the current onboarding status.\n" +
		"Invoking with a number either starts onboarding (if it was inactive) or changes the active ticket limit (if it was active).\n" +
		"Invoking with `cancel` removes the ticket limit. **You must manually delete the panel if you want it gone.** This will also be mentioned in the bot reply."
}
func (c *VettingLimitCommand) Usage() []string {
	return []string{``, `"cancel"`, `limit:wholeNumber`}
}
func (c *VettingLimitCommand) Capabilities() []string {
	return []string{"GUILD_MESSAGES", "MESSAGE_CONTENT"}
}

func (c *VettingLimitCommand) Initialize(app *plugin.Context) error {
	if _, err := app.Config.Section("onboarding", &c.cfg); err != nil {
		return err
	}
	if c.cfg.PanelChannelID == "" || c.cfg.PanelPosterID == "" || len(c.cfg.OnboardingCategoryIDs) == 0 {
		app.Fatalf(`Please provide onboarding configuration by editing the "onboarding" field to be an object with the following fields:
- "panelChannelId": a channel snowflake, the channel to look for panels in
- "panelPosterId": a user snowflake, the bot user that posts panels
- "onboardingCategoryIds": an array of category snowflakes, the categories to count tickets in`)
	}
	return nil
}

func (c *VettingLimitCommand) Run(ctx context.Context, inv *plugin.Invocation) error {
	if inv.Args.Has("cancel") {
		return c.cancel(ctx, inv)
	}
	if _, ok := inv.Args.Value("limit"); ok {
		return c.setLimit(ctx, inv, inv.Args.Int("limit"))
	}
	return inv.Reply(ctx, c.report())
}

// State returns a copy of the workflow state.
func (c *VettingLimitCommand) State() State { return c.machine.Snapshot() }

func (c *VettingLimitCommand) report() string {
	s := c.machine.Snapshot()
	switch s.Phase {
	case Waiting:
		return "Waiting for a panel to be posted."
	case Active:
		return fmt.Sprintf("Active. %d/%d tickets have been opened.", s.Current, s.Limit)
	}
	return "Inactive. No ticket limit is currently being tracked."
}

func (c *VettingLimitCommand) cancel(ctx context.Context, inv *plugin.Invocation) error {
	gen, ok := c.machine.Cancel()
	if !ok {
		return inv.Reply(ctx, "There is no ticket limit to cancel.")
	}
	c.stop(inv.App, gen)
	return inv.Reply(ctx, "Okay, the limit has been canceled. If there is a panel, you will need to delete it manually if you want to stop.")
}

func (c *VettingLimitCommand) setLimit(ctx context.Context, inv *plugin.Invocation, limit int) error {
	if limit < 1 {
		return inv.Reply(ctx, "The ticket limit must be at least 1.")
	}

	gen, started := c.machine.Limit(limit)
	if !started {
		return inv.Reply(ctx, fmt.Sprintf("Okay, the limit has been adjusted to %d.", limit))
	}

	if err := c.watch(inv, gen); err != nil {
		c.machine.Cancel()
		return err
	}

	msg := fmt.Sprintf("Okay, go ahead and post the panel in <#%s>", c.cfg.PanelChannelID)
	if c.cfg.PanelCommandReminder == "" {
		msg += "."
	} else {
		msg += fmt.Sprintf(" by sending `%s` in that channel.", c.cfg.PanelCommandReminder)
	}
	return inv.Reply(ctx, msg)
}

func jobName(gen uint64) string {
	return fmt.Sprintf("vettinglimit-%d", gen)
}

// watch subscribes to the events of run gen. The subscriptions live as long
// as the run's job.
func (c *VettingLimitCommand) watch(inv *plugin.Invocation, gen uint64) error {
	app := inv.App
	removeMsg := app.Events.OnMessageCreate(func(m *discordgo.Message) {
		c.onMessage(inv, gen, m)
	})
	removeCh := app.Events.OnChannelCreate(func(ch *discordgo.Channel) {
		c.onChannel(inv, gen, ch)
	})

	_, err := app.Jobs.StartAsync(jobName(gen), func(ctx context.Context) error {
		defer removeMsg()
		defer removeCh()
		<-ctx.Done()
		return nil
	})
	if err != nil {
		removeMsg()
		removeCh()
		return fmt.Errorf("failed to start ticket watch: %w", err)
	}
	return nil
}

func (c *VettingLimitCommand) stop(app *plugin.Context, gen uint64) {
	if err := app.Jobs.Stop(jobName(gen)); err != nil {
		log.Printf("[DEBUG] %v", err)
	}
}

func (c *VettingLimitCommand) onMessage(inv *plugin.Invocation, gen uint64, m *discordgo.Message) {
	if m.ChannelID != c.cfg.PanelChannelID || m.Author == nil || m.Author.ID != c.cfg.PanelPosterID {
		return
	}
	if !c.machine.PanelPosted(gen, m) {
		return
	}

	limit := c.machine.Snapshot().Limit
	ctx := context.Background()
	if err := inv.Reply(ctx, fmt.Sprintf("Okay, I found the panel. It will be deleted when the limit of %d is reached.", limit)); err != nil {
		log.Printf("[ERR] [%s] Failed to confirm the panel: %v", inv.ID, err)
	}
}

func (c *VettingLimitCommand) onChannel(inv *plugin.Invocation, gen uint64, ch *discordgo.Channel) {
	if !slices.Contains(c.cfg.OnboardingCategoryIDs, ch.ParentID) {
		return
	}
	out := c.machine.Count(gen)
	if !out.Reached {
		return
	}

	c.stop(inv.App, gen)
	ctx := context.Background()
	if err := inv.App.Platform.DeleteMessage(ctx, out.Panel.ChannelID, out.Panel.ID); err != nil {
		log.Printf("[ERR] [%s] Failed to delete the panel: %v", inv.ID, err)
		if err := inv.Reply(ctx, fmt.Sprintf("The limit of %d has been reached, but I could not delete the panel. Please delete it manually.", out.Limit)); err != nil {
			log.Printf("[ERR] [%s] Failed to report the limit: %v", inv.ID, err)
		}
		return
	}
	if err := inv.Reply(ctx, fmt.Sprintf("The limit of %d has been reached and the panel has been deleted.", out.Limit)); err != nil {
		log.Printf("[ERR] [%s] Failed to report the limit: %v", inv.ID, err)
	}
}

func init() {
	plugin.Register("vettinglimit", &VettingLimitCommand{})
}
