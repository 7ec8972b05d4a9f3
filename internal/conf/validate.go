package conf

import (
	"fmt"
	"time"
)

// ValidateSettings checks the loaded configuration for problems that should
// stop startup. Provider credentials are checked here so a missing API key
// fails fast instead of on the first pipeline call.
func ValidateSettings(settings *Settings) error {
	if !settings.Database.SQLite.Enabled && !settings.Database.MySQL.Enabled {
		return fmt.Errorf("no database backend enabled, enable sqlite or mysql")
	}
	if settings.Database.SQLite.Enabled && settings.Database.MySQL.Enabled {
		return fmt.Errorf("both sqlite and mysql enabled, pick one")
	}

	if settings.Database.SQLite.Enabled && settings.Database.SQLite.Path == "" {
		return fmt.Errorf("sqlite enabled but no database path configured")
	}
	if settings.Database.MySQL.Enabled {
		if settings.Database.MySQL.Username == "" || settings.Database.MySQL.Database == "" {
			return fmt.Errorf("mysql enabled but username or database name missing")
		}
	}

	if settings.ChatGPT.APIKey == "" {
		return fmt.Errorf("chatgpt.apikey not configured")
	}
	if settings.ChatGPT.BaseURL == "" {
		return fmt.Errorf("chatgpt.baseurl not configured")
	}
	if settings.Perplexity.BaseURL == "" {
		return fmt.Errorf("perplexity.baseurl not configured")
	}

	if settings.WhatsApp.Enabled {
		if settings.WhatsApp.AccessToken == "" || settings.WhatsApp.PhoneNumberID == "" {
			return fmt.Errorf("whatsapp enabled but accesstoken or phonenumberid missing")
		}
	}

	if settings.Quota.FreeDailyLimit < 0 {
		return fmt.Errorf("quota.freedailylimit must not be negative")
	}
	if _, err := QuotaLocation(settings); err != nil {
		return err
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry enabled but no DSN configured")
	}

	return nil
}

// QuotaLocation resolves the configured quota timezone to a *time.Location.
func QuotaLocation(settings *Settings) (*time.Location, error) {
	name := settings.Quota.Timezone
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid quota.timezone %q: %w", name, err)
	}
	return loc, nil
}
