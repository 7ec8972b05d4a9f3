// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("main.name", "Notara")
	viper.SetDefault("main.debug", false)
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/")

	viper.SetDefault("database.sqlite.enabled", true)
	viper.SetDefault("database.sqlite.path", "notara.db")
	viper.SetDefault("database.mysql.enabled", false)
	viper.SetDefault("database.mysql.username", "notara")
	viper.SetDefault("database.mysql.database", "notara")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("chatgpt.baseurl", "https://api.openai.com/v1")
	viper.SetDefault("chatgpt.model", "gpt-4o-mini")
	viper.SetDefault("chatgpt.maxtokens", 1000)

	viper.SetDefault("perplexity.baseurl", "https://api.perplexity.ai")
	viper.SetDefault("perplexity.model", "llama-3.1-sonar-small-128k-online")

	viper.SetDefault("whatsapp.enabled", false)
	viper.SetDefault("whatsapp.baseurl", "https://graph.facebook.com/v18.0")

	viper.SetDefault("quota.freedailylimit", 5)
	viper.SetDefault("quota.timezone", "UTC")

	viper.SetDefault("notification.enabled", false)

	viper.SetDefault("sentry.enabled", false)
}
