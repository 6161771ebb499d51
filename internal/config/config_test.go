package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keshon/airlock/internal/config"
	"github.com/keshon/airlock/internal/fatal"
	"github.com/keshon/airlock/internal/permission"
)

const sample = `
token: file-token
commandPrefix: "!"
guildId: "123456789012345678"
discoverPlugins: true
plugins:
  history: false
permissions:
  - roles: ["111"]
    command: onboard
    effect: allow
  - roles: ["*"]
    command: "*"
    channel: "222"
    effect: deny
onboarding:
  memberRoleId: "333"
  patronRoleIds: ["444", "555"]
`

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.CommandPrefix != "!" {
		t.Errorf("CommandPrefix: got %q, want %q", cfg.CommandPrefix, "!")
	}
	if !cfg.DiscoverPlugins {
		t.Error("DiscoverPlugins: got false, want true")
	}
	if enabled, ok := cfg.Plugins["history"]; !ok || enabled {
		t.Errorf("Plugins[history]: got %v %v, want false true", enabled, ok)
	}
	if len(cfg.Permissions) != 2 {
		t.Fatalf("got %d permission rules, want 2", len(cfg.Permissions))
	}
	if cfg.Permissions[1].Effect != permission.Deny || cfg.Permissions[1].Channel != "222" {
		t.Errorf("rule 2: got %+v", cfg.Permissions[1])
	}
}

func TestSection(t *testing.T) {
	cfg, err := config.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var onboarding struct {
		MemberRoleID  string   `yaml:"memberRoleId"`
		PatronRoleIDs []string `yaml:"patronRoleIds"`
	}
	found, err := cfg.Section("onboarding", &onboarding)
	if err != nil || !found {
		t.Fatalf("Section: got %v %v, want true nil", found, err)
	}
	if onboarding.MemberRoleID != "333" {
		t.Errorf("memberRoleId: got %q, want %q", onboarding.MemberRoleID, "333")
	}
	if len(onboarding.PatronRoleIDs) != 2 {
		t.Errorf("patronRoleIds: got %v", onboarding.PatronRoleIDs)
	}

	found, err = cfg.Section("absent", &onboarding)
	if found || err != nil {
		t.Errorf("absent section: got %v %v, want false nil", found, err)
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"numeric guild", "guildId: 123"},
		{"plugin flag not bool", "plugins:\n  help: yes please"},
		{"bad effect", "permissions:\n  - roles: [\"*\"]\n    command: x\n    effect: maybe"},
		{"rule without roles", "permissions:\n  - command: x\n    effect: allow"},
		{"unknown rule field", "permissions:\n  - roles: [\"*\"]\n    command: x\n    effect: allow\n    when: never"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.Parse([]byte(tt.doc)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoad_BootstrapsFromDefault(t *testing.T) {
	dir := t.TempDir()
	defaultPath := filepath.Join(dir, "config.default.yaml")
	if err := os.WriteFile(defaultPath, []byte("commandPrefix: \"!\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	env := config.Env{
		DiscordToken:      "env-token",
		ConfigPath:        filepath.Join(dir, "config.yaml"),
		DefaultConfigPath: defaultPath,
		StoragePath:       filepath.Join(dir, "datastore.json"),
	}

	var out bytes.Buffer
	exited := false
	latch := fatal.NewWith(&out, func(int) { exited = true })

	cfg, err := config.Load(env, latch)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(env.ConfigPath); err != nil {
		t.Errorf("config file was not created: %v", err)
	}
	if cfg.Token != "env-token" {
		t.Errorf("Token: got %q, want %q", cfg.Token, "env-token")
	}

	if !latch.Requested() {
		t.Fatal("missing guildId must be fatal")
	}
	if !strings.Contains(out.String(), "guildId") {
		t.Errorf("fatal output %q should name guildId", out.String())
	}
	if exited {
		t.Error("Load must not exit by itself")
	}
}

func TestLoad_EnvTokenOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	latch := fatal.NewWith(&bytes.Buffer{}, func(int) {})

	cfg, err := config.Load(config.Env{ConfigPath: path}, latch)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "file-token" {
		t.Errorf("Token: got %q, want %q", cfg.Token, "file-token")
	}
	if latch.Requested() {
		t.Error("a complete config must not be fatal")
	}

	cfg, err = config.Load(config.Env{ConfigPath: path, DiscordToken: "env"}, latch)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "env" {
		t.Errorf("Token: got %q, want %q", cfg.Token, "env")
	}
}

func TestLoad_NoConfigNoDefault(t *testing.T) {
	dir := t.TempDir()
	env := config.Env{
		ConfigPath:        filepath.Join(dir, "config.yaml"),
		DefaultConfigPath: filepath.Join(dir, "missing.yaml"),
	}
	if _, err := config.Load(env, fatal.NewWith(&bytes.Buffer{}, func(int) {})); err == nil {
		t.Error("expected an error when neither file exists")
	}
}
