// Command cli checks the configuration and the plugin set offline, then lists
// what the bot would load and which gateway intents it would request.
package main

import (
	"fmt"
	"log"

	_ "github.com/keshon/airlock/internal/command/help"
	_ "github.com/keshon/airlock/internal/command/history"
	_ "github.com/keshon/airlock/internal/command/onboard"
	_ "github.com/keshon/airlock/internal/command/vettinglimit"

	"github.com/keshon/airlock/internal/config"
	"github.com/keshon/airlock/internal/fatal"
	"github.com/keshon/airlock/internal/permission"
	"github.com/keshon/airlock/internal/plugin"
	"github.com/keshon/airlock/internal/storage"
)

func main() {
	latch := fatal.New()

	e, err := config.ReadEnv()
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load(e, latch)
	if err != nil {
		log.Fatal(err)
	}

	perms, err := permission.NewSet(cfg.Permissions)
	if err != nil {
		latch.Fatalf("Invalid permissions in %s: %v", cfg.Path, err)
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	sources, err := plugin.Select(cfg.DiscoverPlugins, cfg.Plugins)
	if err != nil {
		latch.Fatalf("%v", err)
	}

	app := &plugin.Context{Config: cfg, Permissions: perms, Storage: store, Latch: latch}
	reg := plugin.NewRegistry(nil)
	reg.Load(app, sources)
	latch.Check()

	fmt.Printf("Configuration %s is valid.\n", cfg.Path)
	fmt.Printf("Guild %s, prefix %q, %d permission rules.\n", cfg.GuildID, cfg.CommandPrefix, perms.Len())
	for _, entry := range reg.Entries() {
		fmt.Printf("  %-14s (from %s)\n", entry.Name(), entry.Source)
	}
	fmt.Printf("Gateway intents: %d\n", reg.Intents())
}
