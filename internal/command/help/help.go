// Package help lists the loaded plugins and shows their usage.
package help

import (
	"context"
	"fmt"

	"github.com/keshon/airlock/internal/plugin"
)

type HelpCommand struct{}

func (c *HelpCommand) Name() string     { return "help" }
func (c *HelpCommand) Synopsis() string { return "Show the available commands." }
func (c *HelpCommand) Description() string {
	return "Without arguments, lists every command with a short summary. " +
		"Given a command name, shows what it does and how to use it."
}
func (c *HelpCommand) Usage() []string {
	return []string{``, `name:word`}
}

func (c *HelpCommand) Run(ctx context.Context, inv *plugin.Invocation) error {
	reg := inv.App.Registry
	prefix := inv.App.Prefix()

	if _, ok := inv.Args.Value("name"); !ok {
		var lines []string
		for _, e := range reg.Entries() {
			lines = append(lines, fmt.Sprintf("`%s%s` %s", prefix, e.Name(), synopsis(e)))
		}
		return inv.ReplyLines(ctx, lines, "No commands are loaded.")
	}

	name := inv.Args.String("name")
	e := reg.Get(name)
	if e == nil {
		return inv.Reply(ctx, fmt.Sprintf("There is no command named `%s`.", name))
	}

	out := fmt.Sprintf("**%s%s**: %s", prefix, e.Name(), synopsis(e))
	if d, ok := e.Plugin.(plugin.Describer); ok && d.Description() != "" {
		out += "\n" + d.Description()
	}
	out += "\n" + reg.FormatUsage(prefix, e)
	return inv.Reply(ctx, out)
}

func synopsis(e *plugin.Entry) string {
	if d, ok := e.Plugin.(plugin.Describer); ok {
		return d.Synopsis()
	}
	return "(no description)"
}

func init() {
	plugin.Register("help", &HelpCommand{})
}
