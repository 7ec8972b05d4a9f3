// config.go: This file contains the configuration for the Notara application.
// It defines the settings struct and functions to load and save the settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MainSettings contains top-level application settings.
type MainSettings struct {
	Name  string // name of the instance, used in log and notification prefixes
	Debug bool   // true to enable debug output
	Log   LogConfig
}

// LogConfig defines file logging settings.
type LogConfig struct {
	Enabled bool   // true to enable file logging
	Path    string // path to log file directory
}

// DatabaseSettings selects and configures the persistence backend.
type DatabaseSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// SQLiteSettings contains SQLite database settings.
type SQLiteSettings struct {
	Enabled bool
	Path    string // path to the SQLite database file
}

// MySQLSettings contains MySQL database settings.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// ServerSettings contains HTTP API server settings.
type ServerSettings struct {
	Host string
	Port string
}

// ChatGPTSettings configures the analysis provider client.
type ChatGPTSettings struct {
	APIKey    string `yaml:"apikey"`
	BaseURL   string `yaml:"baseurl"`
	Model     string
	MaxTokens int `yaml:"maxtokens"`
}

// PerplexitySettings configures the web search provider client.
type PerplexitySettings struct {
	APIKey  string `yaml:"apikey"`
	BaseURL string `yaml:"baseurl"`
	Model   string
}

// WhatsAppSettings configures the WhatsApp Business integration.
type WhatsAppSettings struct {
	Enabled            bool
	AccessToken        string `yaml:"accesstoken"`
	PhoneNumberID      string `yaml:"phonenumberid"`
	WebhookVerifyToken string `yaml:"webhookverifytoken"`
	AppSecret          string `yaml:"appsecret"`
	BaseURL            string `yaml:"baseurl"`
}

// QuotaSettings controls the free-tier daily limit on AI provider calls.
// Timezone decides which calendar day a usage row belongs to.
type QuotaSettings struct {
	FreeDailyLimit int    `yaml:"freedailylimit"`
	Timezone       string // IANA zone name or "UTC"
}

// NotificationSettings configures optional push delivery of daily summaries.
type NotificationSettings struct {
	Enabled bool
	URLs    []string // shoutrrr service URLs
}

// SentrySettings configures optional error telemetry.
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// Settings is the root configuration structure.
type Settings struct {
	Main         MainSettings
	Database     DatabaseSettings
	Server       ServerSettings
	ChatGPT      ChatGPTSettings
	Perplexity   PerplexitySettings
	WhatsApp     WhatsAppSettings
	Quota        QuotaSettings
	Notification NotificationSettings
	Sentry       SentrySettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the current settings instance, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Environment overrides for secrets, e.g. NOTARA_CHATGPT_APIKEY
	viper.SetEnvPrefix("notara")
	viper.AutomaticEnv()

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}

	if err := SaveYAMLConfig(configPath, settings); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// SaveYAMLConfig saves the given settings as YAML to the provided path.
func SaveYAMLConfig(path string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the list of directories searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	var paths []string

	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "notara"))
	}
	home, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(home, ".config", "notara"))
	}
	paths = append(paths, ".")

	if len(paths) == 0 {
		return nil, fmt.Errorf("no config paths available")
	}
	return paths, nil
}
