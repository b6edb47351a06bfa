package config

import "github.com/Domadoni/Epl-arb-finder/internal/domain"

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.Odds.APIKey)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.Odds.Regions = cloneStrings(cfg.Odds.Regions)
	out.Odds.Markets = cloneStrings(cfg.Odds.Markets)
	out.Notify.Events = cloneStrings(cfg.Notify.Events)
	out.Server.CORSOrigins = cloneStrings(cfg.Server.CORSOrigins)
	out.Filters.Allowed = cloneStrings(cfg.Filters.Allowed)
	if cfg.Competitions != nil {
		out.Competitions = make([]domain.Competition, len(cfg.Competitions))
		copy(out.Competitions, cfg.Competitions)
	}

	// Copy maps so mutations to the redacted copy do not affect the original.
	if cfg.Commission != nil {
		out.Commission = make(map[string]float64, len(cfg.Commission))
		for k, v := range cfg.Commission {
			out.Commission[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
