// Package config loads server and CLI settings from defaults, an optional
// dotenv file and EVAL_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/soaringjerry/teacheval/internal/utils"
)

const EnvPrefix = "EVAL"

type Config struct {
	Addr      string
	Env       string
	Commit    string
	BuildTime string

	SheetsURL     string
	SheetsTimeout time.Duration
	CacheTTL      time.Duration

	AdminUsername   string
	AdminPassword   string
	JWTSecret       string
	AdminSessionTTL time.Duration

	SQLitePath         string
	MigrationsDir      string
	LegacySnapshotPath string
	RedisAddr          string

	PublicBaseURL string
	ShortenerURL  string
	QRBaseURL     string
	QRSize        int

	Timezone    string
	FormPath    string
	StaticDir   string
	CORSOrigins []string

	RollbarToken string
	Debug        bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("env", "dev")
	v.SetDefault("commit", "dev")
	v.SetDefault("build_time", "")
	v.SetDefault("sheets_url", "")
	v.SetDefault("sheets_timeout", 10*time.Second)
	v.SetDefault("cache_ttl", 30*time.Second)
	v.SetDefault("admin_username", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("admin_session_ttl", time.Duration(0))
	v.SetDefault("sqlite_path", filepath.Join("data", "evaluation.db"))
	v.SetDefault("migrations_dir", "")
	v.SetDefault("legacy_snapshot_path", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("public_base_url", "http://localhost:8080/")
	v.SetDefault("shortener_url", "https://is.gd/create.php")
	v.SetDefault("qr_base_url", "https://api.qrserver.com/v1/create-qr-code/")
	v.SetDefault("qr_size", 200)
	v.SetDefault("timezone", "Asia/Phnom_Penh")
	v.SetDefault("form_path", "")
	v.SetDefault("static_dir", "")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("debug", false)
}

// Load reads configuration. dir is where config/.env.<env> and .env are
// looked up; dotenv values never override variables already set.
func Load(dir string) (*Config, error) {
	env := utils.EnvName(EnvPrefix+"_ENV", "dev")
	for _, p := range []string{
		filepath.Join(dir, "config", ".env."+env),
		filepath.Join(dir, ".env"),
	} {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", p, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", p, err)
		}
	}

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	c := &Config{
		Addr:               v.GetString("addr"),
		Env:                v.GetString("env"),
		Commit:             v.GetString("commit"),
		BuildTime:          v.GetString("build_time"),
		SheetsURL:          strings.TrimSpace(v.GetString("sheets_url")),
		SheetsTimeout:      v.GetDuration("sheets_timeout"),
		CacheTTL:           v.GetDuration("cache_ttl"),
		AdminUsername:      v.GetString("admin_username"),
		AdminPassword:      v.GetString("admin_password"),
		JWTSecret:          v.GetString("jwt_secret"),
		AdminSessionTTL:    v.GetDuration("admin_session_ttl"),
		SQLitePath:         v.GetString("sqlite_path"),
		MigrationsDir:      v.GetString("migrations_dir"),
		LegacySnapshotPath: v.GetString("legacy_snapshot_path"),
		RedisAddr:          v.GetString("redis_addr"),
		PublicBaseURL:      v.GetString("public_base_url"),
		ShortenerURL:       v.GetString("shortener_url"),
		QRBaseURL:          v.GetString("qr_base_url"),
		QRSize:             v.GetInt("qr_size"),
		Timezone:           v.GetString("timezone"),
		FormPath:           v.GetString("form_path"),
		StaticDir:          v.GetString("static_dir"),
		CORSOrigins:        splitList(v.GetString("cors_origins")),
		RollbarToken:       v.GetString("rollbar_token"),
		Debug:              v.GetBool("debug"),
	}
	return c, nil
}

// Validate checks what the server needs to start. The CLI only needs the
// sheets URL and calls ValidateStore instead.
func (c *Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.AdminUsername == "" || c.AdminPassword == "" {
		return errors.New("config: EVAL_ADMIN_USERNAME and EVAL_ADMIN_PASSWORD are required")
	}
	if c.QRSize <= 0 {
		return fmt.Errorf("config: qr_size must be positive, got %d", c.QRSize)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) ValidateStore() error {
	if c.SheetsURL == "" {
		return errors.New("config: EVAL_SHEETS_URL is required")
	}
	return nil
}

// Location is the time zone used for sheet names, month filters and exports.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
