// Package onboard handles admission of new members waiting in the airlock.
package onboard

import (
	"context"
	"fmt"
	"log"
	"regexp"

	"github.com/keshon/airlock/internal/plugin"
	"github.com/keshon/airlock/pkg/retrylimit"
)

// BatchAdmissionCap bounds how many members one command may admit.
const BatchAdmissionCap = 50

const defaultAdmissionMessage = "You have been admitted to the server. Please make sure you have read the rules."

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

type settings struct {
	OnboardingCategoryIDs []string `yaml:"onboardingCategoryIds"`
	AdmissionChannelID    string   `yaml:"admissionChannelId"`
	AdmissionMessage      string   `yaml:"admissionMessage"`
	MemberRoleID          string   `yaml:"memberRoleId"`
	PatronRoleIDs         []string `yaml:"patronRoleIds"`
	FreezerRoleIDs        []string `yaml:"freezerRoleIds"`
}

type OnboardCommand struct {
	cfg     settings
	limiter *retrylimit.AdaptiveLimiter
}

func (c *OnboardCommand) Name() string     { return "onboard" }
func (c *OnboardCommand) Synopsis() string { return "Handle onboarding of new members." }
func (c *OnboardCommand) Description() string {
	return "This plugin is responsible for several different related functions:\n" +
		"- `onboard view next` shows the next `amount` users who will be let in.\n" +
		"- `onboard admit next` lets in the next `amount` users.\n" +
		"- `onboard admit them` lets in all users mentioned in the message you're replying to.\n" +
		"The following user-related commands only work on users who are not full members:\n" +
		"- `onboard admit` grants full entry to the server to the specified user.\n" +
		"- `onboard kick` kicks the user. The reason is required and will be DMed to them.\n" +
		"- `onboard ban` bans the user. The reason is required and will be DMed to them.\n" +
		"- `onboard freeze` freezes the user in the queue, for sending them a request to follow before being admitted, such as changing their profile picture. " +
		"They will also be DMed instructions on what to do, so just writing a request such as \"please change your picture\" is fine.\n" +
		"Whenever a user is admitted, they are also DMed to let them know."
}
func (c *OnboardCommand) Usage() []string {
	return []string{
		`"view" "next" amount:wholeNumber`,
		`"admit" "next" amount:wholeNumber`,
		`"admit" "them"`,
		`"admit" who:member`,
		`"kick" who:member ...reason`,
		`"ban" who:member ...reason`,
		`"freeze" who:member ...request`,
	}
}
func (c *OnboardCommand) Capabilities() []string {
	return []string{"GUILD_MEMBERS", "DIRECT_MESSAGES"}
}

func (c *OnboardCommand) Initialize(app *plugin.Context) error {
	if _, err := app.Config.Section("onboarding", &c.cfg); err != nil {
		return err
	}
	c.limiter = retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5)

	required := []struct {
		missing bool
		field   string
		what    string
	}{
		{c.cfg.OnboardingCategoryIDs == nil, "onboardingCategoryIds", "list out onboarding categories"},
		{c.cfg.AdmissionChannelID == "", "admissionChannelId", "specify an admission logging channel"},
		{c.cfg.MemberRoleID == "", "memberRoleId", "specify a member role"},
		{c.cfg.PatronRoleIDs == nil, "patronRoleIds", "list out patron roles"},
		{c.cfg.FreezerRoleIDs == nil, "freezerRoleIds", "list out freezer roles"},
	}
	for _, r := range required {
		if r.missing {
			app.Fatalf(`Please %s by editing the %q field under "onboarding".`, r.what, r.field)
		}
	}
	if c.cfg.AdmissionMessage == "" {
		c.cfg.AdmissionMessage = defaultAdmissionMessage
	}
	return nil
}

func (c *OnboardCommand) Run(ctx context.Context, inv *plugin.Invocation) error {
	args := inv.Args

	switch {
	case args.Has("next"):
		amount := args.Int("amount")
		if args.Has("admit") && amount > BatchAdmissionCap {
			return inv.Reply(ctx, fmt.Sprintf("To avoid accidents, there is a cap of %d on how many users may be batch-admitted at once. Please request at most that many.", BatchAdmissionCap))
		}
		selected, err := c.next(ctx, inv, amount)
		if err != nil {
			return err
		}
		if args.Has("view") {
			return inv.ReplyLines(ctx, c.describe(selected), "No results.")
		}
		return c.batchAdmit(ctx, inv, selected)

	case args.Has("them"):
		return c.admitThem(ctx, inv)
	}

	who := args.Member("who")
	if c.isMember(who) {
		return inv.Reply(ctx, "I am unable to perform that operation on someone who is a full member of the server.")
	}

	switch {
	case args.Has("admit"):
		return c.admit(ctx, inv, who, true)
	case args.Has("kick"):
		return c.kick(ctx, inv, who, args.String("reason"))
	case args.Has("ban"):
		return c.ban(ctx, inv, who, args.String("reason"))
	case args.Has("freeze"):
		return c.freeze(ctx, inv, who, args.String("request"))
	}
	return inv.Reply(ctx, "Hmm, this message was supposed to be impossible.")
}

// retry runs a role mutation through the shared adaptive limiter.
func (c *OnboardCommand) retry(ctx context.Context, fn func() error) error {
	return retrylimit.WithRetryMax(ctx, fn, c.limiter, 5)
}

// dm sends a direct message, logging instead of failing.
func (c *OnboardCommand) dm(ctx context.Context, inv *plugin.Invocation, userID string, parts ...string) bool {
	for _, p := range parts {
		if err := inv.App.Platform.DirectMessage(ctx, userID, p); err != nil {
			log.Printf("[INFO] [%s] I was unable to DM <@%s>: %v", inv.ID, userID, err)
			return false
		}
	}
	return true
}

func init() {
	plugin.Register("onboard", &OnboardCommand{})
}
