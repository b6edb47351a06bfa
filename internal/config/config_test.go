package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Odds.APIKey = "k"
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Scan.NotifyThreshold() != cfg.Scan.MinROIPct {
		t.Errorf("notify threshold should fall back to min_roi_pct")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Stake.Bankroll = -1
	cfg.Commission = map[string]float64{"betfair": 1.2}
	cfg.State.Backend = "redis"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		`unknown mode "trade"`,
		"odds: api_key is required",
		"stake: bankroll",
		`commission: "betfair"`,
		"state: backend redis requires redis.enabled",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateNotifyTest(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "notify-test"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "notify-test requires") {
		t.Fatalf("err = %v", err)
	}
	cfg.Notify.TelegramToken = "t"
	cfg.Notify.TelegramChatID = "c"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("notify-test without odds key should validate: %v", err)
	}
}

func TestValidateRapidWindowPair(t *testing.T) {
	cfg := validConfig()
	cfg.Schedule.RapidWindowStart = "2026-10-17T12:00:00"
	if err := cfg.Validate(); err == nil {
		t.Fatal("half-open rapid window should fail")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "daemon"

[odds]
api_key = "from-file"
regions = ["uk"]

[[competitions]]
name = "EPL"
sport_key = "soccer_epl"

[scan]
min_roi_pct = 1.0
min_roi_notify_pct = 2.5

[commission]
betfair = 0.05
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ODDS_API_KEY", "legacy")
	t.Setenv("ARBFINDER_ODDS_API_KEY", "prefixed")
	t.Setenv("BANKROLL", "250")
	t.Setenv("REQUIRE_BETFAIR_PAIR", "yes")
	t.Setenv("ARBFINDER_COMMISSION", "smarkets=0.02, bad")
	t.Setenv("TEST_MODE", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "daemon" {
		t.Errorf("mode = %q", cfg.Mode)
	}
	if cfg.Odds.APIKey != "prefixed" {
		t.Errorf("api key = %q, want prefixed override", cfg.Odds.APIKey)
	}
	if len(cfg.Competitions) != 1 || cfg.Competitions[0].SportKey != "soccer_epl" {
		t.Errorf("competitions = %+v", cfg.Competitions)
	}
	if got := cfg.Scan.NotifyThreshold(); got != 2.5 {
		t.Errorf("notify threshold = %v", got)
	}
	if cfg.Stake.Bankroll != 250 {
		t.Errorf("bankroll = %v", cfg.Stake.Bankroll)
	}
	if !cfg.Filters.RequireExchangePartner {
		t.Error("REQUIRE_BETFAIR_PAIR=yes not applied")
	}
	if cfg.Commission["betfair"] != 0.05 || cfg.Commission["smarkets"] != 0.02 || len(cfg.Commission) != 2 {
		t.Errorf("commission = %v", cfg.Commission)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TEST_MODE", "1")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "notify-test" {
		t.Errorf("TEST_MODE should select notify-test, got %q", cfg.Mode)
	}
	if len(cfg.Competitions) != len(DefaultCompetitions()) {
		t.Errorf("competitions = %d", len(cfg.Competitions))
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Notify.TelegramToken = "secret"
	cfg.Commission["betfair"] = 0.05

	out := RedactedConfig(&cfg)
	if out.Odds.APIKey != redacted || out.Notify.TelegramToken != redacted {
		t.Errorf("secrets not redacted: %+v", out.Odds)
	}
	if cfg.Odds.APIKey != "k" {
		t.Error("original mutated")
	}
	out.Commission["betfair"] = 0.5
	if cfg.Commission["betfair"] != 0.05 {
		t.Error("commission map shared with original")
	}
}
