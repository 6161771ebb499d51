// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/keshon/airlock/internal/command/help"
	_ "github.com/keshon/airlock/internal/command/history"
	_ "github.com/keshon/airlock/internal/command/onboard"
	_ "github.com/keshon/airlock/internal/command/vettinglimit"

	"github.com/keshon/airlock/internal/config"
	"github.com/keshon/airlock/internal/discord"
	"github.com/keshon/airlock/internal/fatal"
	"github.com/keshon/airlock/internal/middleware"
	"github.com/keshon/airlock/internal/permission"
	"github.com/keshon/airlock/internal/plugin"
	"github.com/keshon/airlock/internal/storage"
	"github.com/keshon/airlock/internal/usage"
	v "github.com/keshon/airlock/internal/version"
	"github.com/keshon/airlock/pkg/jobmgr"
)

func main() {
	log.Printf("[INFO] Starting %v %v...", v.AppName, v.AppVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	latch := fatal.New()

	e, err := config.ReadEnv()
	if err != nil {
		latch.Fatalf("%v", err)
		latch.Check()
	}
	cfg, err := config.Load(e, latch)
	if err != nil {
		latch.Fatalf("Failed to load configuration: %v", err)
		latch.Check()
	}

	perms, err := permission.NewSet(cfg.Permissions)
	if err != nil {
		latch.Fatalf("Invalid permissions in %s: %v", cfg.Path, err)
	}
	latch.Check()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	jobs := jobmgr.NewManager(func(s string) { log.Printf("[DEBUG] job %s", s) })

	app := &plugin.Context{
		Config:      cfg,
		Permissions: perms,
		Storage:     store,
		Jobs:        jobs,
		Latch:       latch,
	}

	sources, err := plugin.Select(cfg.DiscoverPlugins, cfg.Plugins)
	if err != nil {
		latch.Fatalf("%v", err)
		latch.Check()
	}

	plugin.NewRegistry(usage.DefaultCatalogue(),
		middleware.WithCommandLog(store),
		middleware.WithPermissionCheck(),
		middleware.WithArgumentBinding(),
	).Load(app, sources)
	latch.Check()
	log.Printf("[INFO] Loaded %d plugins", len(app.Registry.Entries()))

	bot, err := discord.NewBot(app)
	if err != nil {
		log.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	for _, name := range jobs.List() {
		if err := jobs.Stop(name); err != nil {
			log.Printf("[WARN] Failed to stop job %s: %v", name, err)
		}
	}

	log.Println("[INFO] Discord bot exited cleanly")
}
