package onboard

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/platform"
	"github.com/keshon/airlock/internal/plugin"
)

func hasAnyRole(m *discordgo.Member, roles []string) bool {
	for _, r := range roles {
		if slices.Contains(m.Roles, r) {
			return true
		}
	}
	return false
}

func (c *OnboardCommand) isMember(m *discordgo.Member) bool {
	return slices.Contains(m.Roles, c.cfg.MemberRoleID)
}

func (c *OnboardCommand) isFrozen(m *discordgo.Member) bool {
	return hasAnyRole(m, c.cfg.FreezerRoleIDs)
}

func (c *OnboardCommand) isPatron(m *discordgo.Member) bool {
	return hasAnyRole(m, c.cfg.PatronRoleIDs)
}

// ticketChannels returns the channels inside the onboarding categories.
func (c *OnboardCommand) ticketChannels(ctx context.Context, inv *plugin.Invocation) ([]*discordgo.Channel, error) {
	all, err := inv.App.Platform.Channels(ctx, inv.GuildID())
	if err != nil {
		return nil, err
	}
	var tickets []*discordgo.Channel
	for _, ch := range all {
		if slices.Contains(c.cfg.OnboardingCategoryIDs, ch.ParentID) {
			tickets = append(tickets, ch)
		}
	}
	return tickets, nil
}

// queue returns the members waiting for admission, oldest join first: not
// bots, not members, not frozen and not already able to see a ticket.
func (c *OnboardCommand) queue(ctx context.Context, inv *plugin.Invocation) ([]*discordgo.Member, error) {
	guild, err := inv.App.Platform.Guild(ctx, inv.GuildID())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild: %w", err)
	}
	tickets, err := c.ticketChannels(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket channels: %w", err)
	}

	var queue []*discordgo.Member
	for _, m := range inv.App.Members.Snapshot() {
		if m.User == nil || m.User.Bot || c.isMember(m) || c.isFrozen(m) {
			continue
		}
		inTicket := slices.ContainsFunc(tickets, func(ch *discordgo.Channel) bool {
			return platform.CanView(guild, ch, m)
		})
		if !inTicket {
			queue = append(queue, m)
		}
	}

	slices.SortStableFunc(queue, func(a, b *discordgo.Member) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	return queue, nil
}

// Interleave picks up to amount members, alternating patron and non-patron
// starting with a patron. When one side runs out the other fills the rest.
func Interleave(patrons, others []*discordgo.Member, amount int) []*discordgo.Member {
	var selected []*discordgo.Member
	for n := 0; n < amount; n++ {
		switch {
		case n%2 == 0 && len(patrons) > 0:
			selected = append(selected, patrons[0])
			patrons = patrons[1:]
		case len(others) > 0:
			selected = append(selected, others[0])
			others = others[1:]
		default:
			return selected
		}
	}
	return selected
}

func (c *OnboardCommand) next(ctx context.Context, inv *plugin.Invocation, amount int) ([]*discordgo.Member, error) {
	queue, err := c.queue(ctx, inv)
	if err != nil {
		return nil, err
	}
	var patrons, others []*discordgo.Member
	for _, m := range queue {
		if c.isPatron(m) {
			patrons = append(patrons, m)
		} else {
			others = append(others, m)
		}
	}
	return Interleave(patrons, others, amount), nil
}

func (c *OnboardCommand) describe(members []*discordgo.Member) []string {
	lines := make([]string, 0, len(members))
	for _, m := range members {
		patron := ""
		if c.isPatron(m) {
			patron = " (Patron)"
		}
		ts := m.JoinedAt.Unix()
		lines = append(lines, fmt.Sprintf("<@%s>%s, joined at <t:%d:f> (<t:%d:R>)", m.User.ID, patron, ts, ts))
	}
	return lines
}
