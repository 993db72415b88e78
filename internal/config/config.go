// Package config loads the client configuration. Sources are applied in the
// order defaults < JSON file < environment (.env included) < command-line flags,
// and the result is validated before use.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/patric-chuzhbe/gobarber/internal/logger"
)

const (
	StorageTypeFile   = "file"
	StorageTypeMemory = "memory"
)

// Config holds every tunable of the client.
type Config struct {
	APIBaseURL          string        `env:"API_BASE_URL" validate:"required,url"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	StorageType         string        `env:"STORAGE" validate:"storagetype"`
	SessionFile         string        `env:"SESSION_FILE" validate:"required_if=StorageType file,sessionpath"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" validate:"gt=0"`
	ToastTimeout        time.Duration `env:"TOAST_TIMEOUT" validate:"gte=0"`
	ErrorToastTimeout   time.Duration `env:"ERROR_TOAST_TIMEOUT" validate:"gte=0"`
	SubmitInterval      time.Duration `env:"SUBMIT_INTERVAL" validate:"gte=0"`
	RevalidateOnRestore bool          `env:"REVALIDATE_ON_RESTORE"`
	UserAgent           string        `env:"USER_AGENT"`
	ConfigFile          string        `env:"CONFIG"`
}

// jsonConfig mirrors Config for the JSON file; durations are strings like "3s".
type jsonConfig struct {
	APIBaseURL          *string `json:"api_base_url"`
	LogLevel            *string `json:"log_level"`
	StorageType         *string `json:"storage"`
	SessionFile         *string `json:"session_file"`
	RequestTimeout      *string `json:"request_timeout"`
	ToastTimeout        *string `json:"toast_timeout"`
	ErrorToastTimeout   *string `json:"error_toast_timeout"`
	SubmitInterval      *string `json:"submit_interval"`
	RevalidateOnRestore *bool   `json:"revalidate_on_restore"`
	UserAgent           *string `json:"user_agent"`
}

var defaultConfig = Config{
	APIBaseURL:          "http://localhost:3333",
	LogLevel:            "info",
	StorageType:         StorageTypeFile,
	SessionFile:         defaultSessionFile(),
	RequestTimeout:      10 * time.Second,
	ToastTimeout:        3 * time.Second,
	ErrorToastTimeout:   0,
	SubmitInterval:      500 * time.Millisecond,
	RevalidateOnRestore: false,
	UserAgent:           "gobarber-cli",
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "gobarber-session.json"
	}

	return filepath.Join(dir, "gobarber", "session.json")
}

func validateSessionPath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return os.IsNotExist(err)
	}

	return !info.IsDir()
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func validateStorageType(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	return value == StorageTypeFile || value == StorageTypeMemory
}

func (cfg *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("sessionpath", validateSessionPath)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("storagetype", validateStorageType)
	if err != nil {
		return err
	}

	return validate.Struct(cfg)
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command-line flags, which tests need because
// the test binary owns os.Args.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses args instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func parseDuration(target *time.Duration, value *string, name string) error {
	if value == nil {
		return nil
	}
	parsed, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid %s in JSON config: %w", name, err)
	}
	*target = parsed

	return nil
}

func (cfg *Config) applyJSON(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var values jsonConfig
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	if values.APIBaseURL != nil {
		cfg.APIBaseURL = *values.APIBaseURL
	}
	if values.LogLevel != nil {
		cfg.LogLevel = *values.LogLevel
	}
	if values.StorageType != nil {
		cfg.StorageType = *values.StorageType
	}
	if values.SessionFile != nil {
		cfg.SessionFile = *values.SessionFile
	}
	if values.RevalidateOnRestore != nil {
		cfg.RevalidateOnRestore = *values.RevalidateOnRestore
	}
	if values.UserAgent != nil {
		cfg.UserAgent = *values.UserAgent
	}

	return errors.Join(
		parseDuration(&cfg.RequestTimeout, values.RequestTimeout, "request_timeout"),
		parseDuration(&cfg.ToastTimeout, values.ToastTimeout, "toast_timeout"),
		parseDuration(&cfg.ErrorToastTimeout, values.ErrorToastTimeout, "error_toast_timeout"),
		parseDuration(&cfg.SubmitInterval, values.SubmitInterval, "submit_interval"),
	)
}

// parseFlags reads the command line without touching cfg; the returned apply
// function overrides only the flags the user actually set.
func parseFlags(args []string) (configFile string, apply func(cfg *Config), err error) {
	flags := flag.NewFlagSet("gobarber", flag.ContinueOnError)

	var fromFlags Config
	flags.StringVar(&fromFlags.APIBaseURL, "a", defaultConfig.APIBaseURL, "base URL of the GoBarber API")
	flags.StringVar(&fromFlags.LogLevel, "l", defaultConfig.LogLevel, "logger level")
	flags.StringVar(&fromFlags.StorageType, "s", defaultConfig.StorageType, "session storage: file or memory")
	flags.StringVar(&fromFlags.SessionFile, "f", defaultConfig.SessionFile, "JSON file keeping the session")
	flags.DurationVar(&fromFlags.RequestTimeout, "t", defaultConfig.RequestTimeout, "API request timeout")
	flags.StringVar(&fromFlags.ConfigFile, "c", "", "JSON configuration file")

	if err := flags.Parse(args); err != nil {
		return "", nil, err
	}

	apply = func(cfg *Config) {
		flags.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "a":
				cfg.APIBaseURL = fromFlags.APIBaseURL
			case "l":
				cfg.LogLevel = fromFlags.LogLevel
			case "s":
				cfg.StorageType = fromFlags.StorageType
			case "f":
				cfg.SessionFile = fromFlags.SessionFile
			case "t":
				cfg.RequestTimeout = fromFlags.RequestTimeout
			}
		})
	}

	return fromFlags.ConfigFile, apply, nil
}

// New builds the configuration from all sources and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		logger.Log.Debugln("Unable to load .env file", "error", err)
	}

	configFile := os.Getenv("CONFIG")
	applyFlags := func(*Config) {}
	if !options.disableFlagsParsing {
		fromFlag, apply, err := parseFlags(options.args)
		if err != nil {
			return nil, err
		}
		if fromFlag != "" {
			configFile = fromFlag
		}
		applyFlags = apply
	}

	cfg := &Config{}
	applyDefaults(cfg, defaultConfig)

	if configFile != "" {
		if err := cfg.applyJSON(configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFile = configFile

	applyFlags(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
