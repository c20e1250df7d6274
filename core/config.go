package core

import (
	"log"
	"net"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite3"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	// IdentityConfig describes the external identity provider whose tokens the API trusts.
	IdentityConfig struct {
		SigningKey string
		Issuer     string
		Audience   string
		TokenTTL   time.Duration // only used to mint development tokens
	}

	DatabaseConfig struct {
		Engine     string
		Host       string
		Port       string
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	EditorConfig struct {
		SavedFlash time.Duration
	}

	Config struct {
		AppName         string
		Env             string
		Build           string
		Debug           bool
		TestMode        bool
		WorkDir         string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string

		Server   ServerConfig
		Identity IdentityConfig
		Database DatabaseConfig
		Editor   EditorConfig

		defaultFromEmail string
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// DSN returns the data source name of the database for the configured engine.
func (db DatabaseConfig) DSN() string {
	if db.Engine == EngineSQLite {
		return "file:" + db.Name + "?_foreign_keys=1"
	}

	sslMode := "require"
	if db.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   db.Engine,
		User:     url.UserPassword(db.User, db.Password),
		Host:     db.Address(),
		Path:     db.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Kamusi")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Kamusi <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("identity.signingKey", "kp3$0d!q+vna-7tx^2hl*yw9zr4)eu(c")
	v.SetDefault("identity.issuer", "")
	v.SetDefault("identity.audience", "")
	v.SetDefault("identity.tokenTTL", 24*time.Hour)

	v.SetDefault("database.engine", EnginePostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "kamusi")
	v.SetDefault("database.user", "kamusi")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("editor.savedFlash", time.Second)

	env := strings.ToLower(os.Getenv("ENV")) // dev (local; default), test, qa, prod
	if env == "" {
		env = "dev"
	}
	if env == "test" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+env)
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix("kamusi")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          wd,
		FrontendBaseURL:  v.GetString("frontendBaseUrl"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Identity: IdentityConfig{
			SigningKey: v.GetString("identity.signingKey"),
			Issuer:     v.GetString("identity.issuer"),
			Audience:   v.GetString("identity.audience"),
			TokenTTL:   v.GetDuration("identity.tokenTTL"),
		},
		Database: DatabaseConfig{
			Engine:     v.GetString("database.engine"),
			Host:       v.GetString("database.host"),
			Port:       v.GetString("database.port"),
			Name:       v.GetString("database.name"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
		Editor: EditorConfig{
			SavedFlash: v.GetDuration("editor.savedFlash"),
		},
	}
}

// NewTestConfig returns a Config suited for tests: in-memory sqlite database, no remote services.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Kamusi",
		Env:              "test",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		FrontendBaseURL:  "http://localhost:3000",
		defaultFromEmail: "Kamusi <noreply@localhost>",
		Server: ServerConfig{
			DisableReqLogs:  true,
			ShutdownTimeout: time.Second,
		},
		Identity: IdentityConfig{
			SigningKey: "test-secret",
			TokenTTL:   time.Hour,
		},
		Database: DatabaseConfig{
			Engine: EngineSQLite,
			Name:   ":memory:",
		},
		Editor: EditorConfig{
			SavedFlash: time.Second,
		},
	}
}
