package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string
		Build    string
		AppName  string
		Debug    bool
		TestMode bool

		Server   ServerConfig
		Storage  StorageConfig
		Database DatabaseConfig
		Notify   NotifyConfig
		Email    EmailConfig
		Sendgrid SendgridConfig
		AWS      AWSConfig
		Twilio   TwilioConfig

		RollbarToken string
	}

	ServerConfig struct {
		Address         string
		DebugAddress    string
		Host            string
		ShutdownTimeout time.Duration
		AllowedOrigins  []string
	}

	StorageConfig struct {
		Driver  string // jsonfile | database
		DataDir string
	}

	DatabaseConfig struct {
		Engine string // postgres | sqlite
		DSN    string
	}

	NotifyConfig struct {
		Timeout    time.Duration
		Timezone   string
		TimeLayout string
		DateLayout string
	}

	EmailConfig struct {
		Provider    string // sendgrid | ses
		FromAddress string
		FromName    string
	}

	SendgridConfig struct {
		APIKey string
	}

	AWSConfig struct {
		Region string
	}

	TwilioConfig struct {
		AccountSID         string
		AuthToken          string
		FromNumber         string
		WhatsappFromNumber string
	}
)

// Location returns the time zone used to render times in notifications.
func (c NotifyConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the upper-cased env name, eg. `DEV_TWILIO_AUTHTOKEN`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "StudyTrack")
	v.SetDefault("build", "develop")
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.debugAddress", "localhost:4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("storage.driver", "jsonfile")
	v.SetDefault("storage.dataDir", "data")
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.dsn", "studytrack.db")
	v.SetDefault("notify.timeout", 30*time.Second)
	v.SetDefault("notify.timezone", "UTC")
	v.SetDefault("notify.timeLayout", "Jan 2, 2006 3:04 PM")
	v.SetDefault("notify.dateLayout", "Jan 2, 2006")
	v.SetDefault("email.provider", "sendgrid")
	v.SetDefault("email.fromAddress", "noreply@localhost")
	v.SetDefault("email.fromName", "StudyTrack")
	v.SetDefault("sendgrid.apiKey", "")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("twilio.accountSid", "")
	v.SetDefault("twilio.authToken", "")
	v.SetDefault("twilio.fromNumber", "")
	v.SetDefault("twilio.whatsappFromNumber", "whatsapp:+14155238886")
	v.SetDefault("rollbar.token", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:      env,
		Build:    v.GetString("build"),
		AppName:  v.GetString("appName"),
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			Host:            v.GetString("server.host"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			AllowedOrigins:  v.GetStringSlice("server.allowedOrigins"),
		},
		Storage: StorageConfig{
			Driver:  v.GetString("storage.driver"),
			DataDir: v.GetString("storage.dataDir"),
		},
		Database: DatabaseConfig{
			Engine: v.GetString("database.engine"),
			DSN:    v.GetString("database.dsn"),
		},
		Notify: NotifyConfig{
			Timeout:    v.GetDuration("notify.timeout"),
			Timezone:   v.GetString("notify.timezone"),
			TimeLayout: v.GetString("notify.timeLayout"),
			DateLayout: v.GetString("notify.dateLayout"),
		},
		Email: EmailConfig{
			Provider:    v.GetString("email.provider"),
			FromAddress: v.GetString("email.fromAddress"),
			FromName:    v.GetString("email.fromName"),
		},
		Sendgrid: SendgridConfig{APIKey: v.GetString("sendgrid.apiKey")},
		AWS:      AWSConfig{Region: v.GetString("aws.region")},
		Twilio: TwilioConfig{
			AccountSID:         v.GetString("twilio.accountSid"),
			AuthToken:          v.GetString("twilio.authToken"),
			FromNumber:         v.GetString("twilio.fromNumber"),
			WhatsappFromNumber: v.GetString("twilio.whatsappFromNumber"),
		},
		RollbarToken: v.GetString("rollbar.token"),
	}
}
