// Package history shows the recently dispatched commands.
package history

import (
	"context"
	"fmt"

	"github.com/keshon/airlock/internal/platform"
	"github.com/keshon/airlock/internal/plugin"
)

const (
	codeLeftBlockWrapper  = "```md"
	codeRightBlockWrapper = "```"
)

type HistoryCommand struct{}

func (c *HistoryCommand) Name() string     { return "history" }
func (c *HistoryCommand) Synopsis() string { return "Review recently used commands." }
func (c *HistoryCommand) Description() string {
	return "Lists the most recent commands, newest first, with who ran them, where, and how it went."
}
func (c *HistoryCommand) Usage() []string { return []string{``} }

func (c *HistoryCommand) Run(ctx context.Context, inv *plugin.Invocation) error {
	store := inv.App.Storage
	if store == nil {
		return inv.Reply(ctx, "Command history is not available.")
	}

	records, err := store.CommandHistory(inv.GuildID())
	if err != nil {
		return fmt.Errorf("failed to fetch command history: %w", err)
	}
	if len(records) == 0 {
		return inv.Reply(ctx, "No commands have been recorded yet.")
	}

	var lines []string
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		lines = append(lines, fmt.Sprintf(
			"%-19s\t%-15s\t#%-12s\t%s%s\t[%s]",
			r.Datetime.Format("2006-01-02 15:04:05"),
			r.Username,
			r.ChannelID,
			inv.App.Prefix(),
			r.Command,
			r.Outcome,
		))
	}

	for _, chunk := range platform.Chunk(lines, platform.MaxLinesPerMessage) {
		if err := inv.Reply(ctx, codeLeftBlockWrapper+"\n"+chunk+"\n"+codeRightBlockWrapper); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	plugin.Register("history", &HistoryCommand{})
}
