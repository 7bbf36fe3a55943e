// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "AquaTrace")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "aquatrace.log")
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.port", "8080")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "aquatrace.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "aquatrace")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "aquatrace")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("identify.threshold", 0.85)
	viper.SetDefault("identify.uploadpath", "uploads/")
	viper.SetDefault("identify.maxuploadsizemb", 16)
	viper.SetDefault("identify.allowedextensions", []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"})
	viper.SetDefault("identify.vision.enabled", false)
	viper.SetDefault("identify.vision.apikey", "")
	viper.SetDefault("identify.vision.endpoint", "")
	viper.SetDefault("identify.vision.maxresults", 10)

	viper.SetDefault("security.debug", false)
	viper.SetDefault("security.sessionsecret", "")
	viper.SetDefault("security.sessionttl", 24*time.Hour)
	viper.SetDefault("security.jwtsecret", "")
	viper.SetDefault("security.jwtexpiry", 24*time.Hour)
	viper.SetDefault("security.bcryptcost", 12)
	viper.SetDefault("security.loginratelimit", 1.0)
	viper.SetDefault("security.loginrateburst", 5)
	viper.SetDefault("security.googleoauth.enabled", false)
	viper.SetDefault("security.googleoauth.clientid", "")
	viper.SetDefault("security.googleoauth.clientsecret", "")
	viper.SetDefault("security.googleoauth.redirecturi", "")

	viper.SetDefault("species.catalogpath", "")
}
