// Package config loads the settings of the soa commands.
//
// Settings come from SOA_* environment variables, then from a .env file, then
// from built-in defaults. Command line flags override them.
package config

import (
	"fmt"
	"strings"

	"github.com/etnz/soa/date"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings of a batch run and of the server.
type Config struct {
	Subsidiary string    // subsidiary line printed on every statement
	AsOf       date.Date // statement date
	Profile    string    // built-in profile name or YAML file
	Mapping    string    // YAML column mapping file, optional
	Output     string    // bundle file, directory or gs:// URI
	Format     string    // pdf, md, html or json
	Workers    int
	LogLevel   string

	Addr           string   // server listen address
	AllowedOrigins []string // CORS origins of the server
	MaxUploadMB    int64

	GeminiModel  string
	GeminiAPIKey string
}

// DefaultOutput is the bundle written when no output is configured.
const DefaultOutput = "SOA_PDFs.zip"

// AsOfLayouts are the accepted layouts of SOA_AS_OF and of the -as-of flags.
var AsOfLayouts = []string{"2006-01-02", "02-Jan-2006", "2/1/2006"}

// Load reads the configuration, files are .env files and default to ".env".
//
// A missing .env file is not an error.
func Load(files ...string) (*Config, error) {
	return load(date.Today(), files...)
}

func load(today date.Date, files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	v := viper.New()
	v.SetEnvPrefix("SOA")
	v.AutomaticEnv()

	v.SetDefault("subsidiary", "")
	v.SetDefault("as_of", "")
	v.SetDefault("profile", "au")
	v.SetDefault("mapping", "")
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("format", "pdf")
	v.SetDefault("workers", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("addr", ":8080")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	if err := v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, err
	}

	// .env values replace the defaults, the environment still wins.
	for _, file := range files {
		env, err := godotenv.Read(file)
		if err != nil {
			continue
		}
		for k, val := range env {
			v.SetDefault(strings.ToLower(strings.TrimPrefix(k, "SOA_")), val)
		}
	}

	cfg := &Config{
		Subsidiary:   v.GetString("subsidiary"),
		Profile:      v.GetString("profile"),
		Mapping:      v.GetString("mapping"),
		Output:       v.GetString("output"),
		Format:       v.GetString("format"),
		Workers:      v.GetInt("workers"),
		LogLevel:     v.GetString("log_level"),
		Addr:         v.GetString("addr"),
		MaxUploadMB:  v.GetInt64("max_upload_mb"),
		GeminiModel:  v.GetString("gemini_model"),
		GeminiAPIKey: v.GetString("gemini_api_key"),
	}
	for _, o := range strings.Split(v.GetString("allowed_origins"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	cfg.AsOf = EndOfPreviousMonth(today)
	if s := v.GetString("as_of"); s != "" {
		on, err := date.ParseAny(s, AsOfLayouts...)
		if err != nil {
			return nil, fmt.Errorf("invalid SOA_AS_OF: %w", err)
		}
		cfg.AsOf = on
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// EndOfPreviousMonth returns the last day of the month before the one of d,
// statements are usually issued for the month just closed.
func EndOfPreviousMonth(d date.Date) date.Date {
	first := date.New(d.Year(), d.Month(), 1)
	return date.FromTime(first.Time().AddDate(0, 0, -1))
}
