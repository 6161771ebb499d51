package onboard

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/airlock/internal/plugin"
	"github.com/keshon/airlock/pkg/util"
)

const resolveWorkers = 4

// admit grants the member role. direct admissions also lift a freeze.
func (c *OnboardCommand) admit(ctx context.Context, inv *plugin.Invocation, m *discordgo.Member, direct bool) error {
	p := inv.App.Platform
	guildID := inv.GuildID()
	userID := m.User.ID

	if c.isMember(m) {
		return inv.Reply(ctx, fmt.Sprintf("<@%s> is already a member.", userID))
	}

	if c.isFrozen(m) {
		if !direct {
			return inv.Reply(ctx, fmt.Sprintf("<@%s> is frozen in the queue. If you wish to admit anyway, use `%sonboard admit <@%s>`.", userID, inv.App.Prefix(), userID))
		}
		for _, roleID := range c.cfg.FreezerRoleIDs {
			err := c.retry(ctx, func() error { return p.RemoveRole(ctx, guildID, userID, roleID) })
			if err != nil {
				return fmt.Errorf("failed to unfreeze %s: %w", userID, err)
			}
		}
	}

	if err := c.retry(ctx, func() error { return p.AddRole(ctx, guildID, userID, c.cfg.MemberRoleID) }); err != nil {
		return fmt.Errorf("failed to admit %s: %w", userID, err)
	}

	content := fmt.Sprintf("🌈<@%s> has been granted access to the server.", userID)
	if direct {
		if err := inv.Reply(ctx, content); err != nil {
			return err
		}
	}
	if _, err := p.Send(ctx, c.cfg.AdmissionChannelID, content); err != nil {
		log.Printf("[WARN] [%s] Failed to log admission of %s: %v", inv.ID, userID, err)
	}
	c.dm(ctx, inv, userID, c.cfg.AdmissionMessage)
	return nil
}

func (c *OnboardCommand) batchAdmit(ctx context.Context, inv *plugin.Invocation, members []*discordgo.Member) error {
	if len(members) > BatchAdmissionCap {
		return inv.Reply(ctx, fmt.Sprintf("To avoid accidents, there is a cap of %d on how many users may be batch-admitted at once. Please admit in smaller batches.", BatchAdmissionCap))
	}

	if err := inv.Reply(ctx, "Very well. Proceeding with admissions."); err != nil {
		return err
	}
	for _, m := range members {
		if err := c.admit(ctx, inv, m, false); err != nil {
			return err
		}
	}
	return inv.Reply(ctx, "I have admitted the requested batch.")
}

// admitThem admits everyone mentioned in the message being replied to.
func (c *OnboardCommand) admitThem(ctx context.Context, inv *plugin.Invocation) error {
	ref := inv.Message.MessageReference
	if ref == nil {
		return inv.Reply(ctx, "Please reply to the message listing the users to admit.")
	}
	channelID := ref.ChannelID
	if channelID == "" {
		channelID = inv.Message.ChannelID
	}
	listing, err := inv.App.Platform.Message(ctx, channelID, ref.MessageID)
	if err != nil {
		return fmt.Errorf("failed to fetch the replied message: %w", err)
	}

	members := c.resolveMentions(ctx, inv, listing.Content)
	return c.batchAdmit(ctx, inv, members)
}

// resolveMentions looks up every mentioned user, in mention order. Users that
// cannot be resolved are skipped.
func (c *OnboardCommand) resolveMentions(ctx context.Context, inv *plugin.Invocation, content string) []*discordgo.Member {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	resolved := make([]*discordgo.Member, len(matches))

	indexes := make([]int, len(matches))
	for i := range indexes {
		indexes[i] = i
	}
	_ = util.Parallel(ctx, indexes, resolveWorkers, func(ctx context.Context, i int) error {
		m, err := inv.App.Members.Member(ctx, inv.GuildID(), matches[i][1])
		if err != nil {
			log.Printf("[INFO] [%s] Skipping <@%s>: %v", inv.ID, matches[i][1], err)
			return nil
		}
		resolved[i] = m
		return nil
	})

	var out []*discordgo.Member
	seen := make(map[string]bool)
	for _, m := range resolved {
		if m != nil && !seen[m.User.ID] {
			seen[m.User.ID] = true
			out = append(out, m)
		}
	}
	return out
}

func (c *OnboardCommand) kick(ctx context.Context, inv *plugin.Invocation, m *discordgo.Member, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return inv.Reply(ctx, "You must provide a non-empty reason.")
	}
	userID := m.User.ID

	// The member may have DMs closed; they are kicked regardless.
	c.dm(ctx, inv, userID,
		"You have been removed from the server onboarding queue. You may rejoin in order to requeue. The following reason was given:",
		reason)

	if err := inv.App.Platform.Kick(ctx, inv.GuildID(), userID, reason); err != nil {
		log.Printf("[WARN] [%s] Failed to kick %s: %v", inv.ID, userID, err)
		return inv.Reply(ctx, "I am unable to kick that user.")
	}
	return inv.Reply(ctx, fmt.Sprintf("⛔<@%s> has been kicked with this reason: %s", userID, reason))
}

func (c *OnboardCommand) ban(ctx context.Context, inv *plugin.Invocation, m *discordgo.Member, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return inv.Reply(ctx, "You must provide a non-empty reason.")
	}
	userID := m.User.ID

	c.dm(ctx, inv, userID,
		"You have been denied entry to the server, with the following reason given:",
		reason)

	if err := inv.App.Platform.Ban(ctx, inv.GuildID(), userID, reason); err != nil {
		log.Printf("[WARN] [%s] Failed to ban %s: %v", inv.ID, userID, err)
		return inv.Reply(ctx, "I am unable to ban that user.")
	}
	return inv.Reply(ctx, fmt.Sprintf("⛔<@%s> has been **banned** with this reason: %s", userID, reason))
}

func (c *OnboardCommand) freeze(ctx context.Context, inv *plugin.Invocation, m *discordgo.Member, request string) error {
	if c.isFrozen(m) {
		return inv.Reply(ctx, "That user is already frozen.")
	}
	if strings.TrimSpace(request) == "" {
		return inv.Reply(ctx, "You must give a request that will be DMed to the user.")
	}
	if len(c.cfg.FreezerRoleIDs) == 0 {
		return inv.Reply(ctx, "No freezer role is configured.")
	}
	userID := m.User.ID

	// The first freezer role is the main one.
	err := c.retry(ctx, func() error {
		return inv.App.Platform.AddRole(ctx, inv.GuildID(), userID, c.cfg.FreezerRoleIDs[0])
	})
	if err != nil {
		return fmt.Errorf("failed to freeze %s: %w", userID, err)
	}

	if c.dm(ctx, inv, userID,
		"The onboarding team has a request before you may enter. Once you have done it or if you have any questions, please DM a moderator. Here is the request:",
		request) {
		return inv.Reply(ctx, "I have successfully frozen and DMed that user.")
	}
	return inv.Reply(ctx, "I was unable to DM that user. I have frozen them anyway.")
}
