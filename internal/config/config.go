package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY is not set")

type Config struct {
	HTTPAddr        string
	HTTP2Cleartext  bool
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration

	GoogleAPIKey  string
	GeminiBaseURL string

	ExtractModel   string
	CoachModel     string
	DecomposeModel string

	MaskPII     bool
	PromptsFile string

	LogLevel  string
	LogFormat string

	AppVersion string
}

// NewViper returns a viper instance with defaults and environment binding.
// Keys are flat snake_case so GOOGLE_API_KEY maps to google_api_key.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("extract_model", "gemini-2.5-flash")
	v.SetDefault("coach_model", "gemini-1.5-flash")
	v.SetDefault("decompose_model", "gemini-1.5-flash")
	v.SetDefault("mask_pii", true)
	v.SetDefault("max_body_bytes", 10<<20)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("app_version", "1.0.0")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// MergeDotEnv layers KEY=value pairs from path under everything else.
// A missing file is not an error.
func MergeDotEnv(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return v.MergeConfigMap(dv.AllSettings())
}

// Load reads the optional config file and resolves the final Config.
// A missing API key is fatal.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	key := strings.TrimSpace(v.GetString("google_api_key"))
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	// PORT is what most PaaS hosts hand us
	addr := v.GetString("http_addr")
	if addr == "" {
		addr = ":8000"
		if port := v.GetString("port"); port != "" {
			addr = ":" + port
		}
	}

	maxBody := v.GetInt64("max_body_bytes")
	if maxBody <= 0 {
		maxBody = 10 << 20
	}

	return &Config{
		HTTPAddr:        addr,
		HTTP2Cleartext:  v.GetBool("http2_cleartext"),
		MaxBodyBytes:    maxBody,
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),

		GoogleAPIKey:  key,
		GeminiBaseURL: strings.TrimRight(v.GetString("gemini_base_url"), "/"),

		ExtractModel:   v.GetString("extract_model"),
		CoachModel:     v.GetString("coach_model"),
		DecomposeModel: v.GetString("decompose_model"),

		MaskPII:     v.GetBool("mask_pii"),
		PromptsFile: v.GetString("prompts_file"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),

		AppVersion: v.GetString("app_version"),
	}, nil
}
