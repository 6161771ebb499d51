package middleware

import (
	"context"
	"log"
	"time"

	"github.com/keshon/airlock/internal/plugin"
	"github.com/keshon/airlock/internal/storage"
)

// WithCommandLog records every dispatched command and its outcome.
// A panicking plugin is recorded as an error before the panic continues.
func WithCommandLog(store *storage.Storage) plugin.Middleware {
	return func(p plugin.Plugin) plugin.Plugin {
		return plugin.Wrap(p, func(ctx context.Context, inv *plugin.Invocation) error {
			defer func() {
				if r := recover(); r != nil {
					record(store, p.Name(), inv, storage.OutcomeError)
					panic(r)
				}
			}()

			err := p.Run(ctx, inv)

			outcome := inv.Outcome
			switch {
			case err != nil:
				outcome = storage.OutcomeError
			case outcome == "":
				outcome = storage.OutcomeOK
			}
			record(store, p.Name(), inv, outcome)
			return err
		})
	}
}

func record(store *storage.Storage, name string, inv *plugin.Invocation, outcome string) {
	if store == nil {
		return
	}
	rec := storage.CommandRecord{
		ChannelID: inv.Message.ChannelID,
		Command:   name,
		Args:      inv.RawArgs,
		Outcome:   outcome,
		Datetime:  time.Now(),
	}
	if inv.Message.Author != nil {
		rec.UserID = inv.Message.Author.ID
		rec.Username = inv.Message.Author.Username
	}
	if err := store.AppendCommand(inv.GuildID(), rec); err != nil {
		log.Printf("[WARN] Failed to log command %s: %v", name, err)
	}
}
