package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Security modes for the SMTP connection
const (
	SecurityNone     = "none"
	SecurityStartTLS = "starttls"
	SecuritySSL      = "ssl"
)

// Environment variables that override secrets from the file
const (
	EnvSMTPUser  = "DISKMON_SMTP_USER"
	EnvSMTPPass  = "DISKMON_SMTP_PASS"
	EnvEmailFrom = "DISKMON_EMAIL_FROM"
	EnvEmailTo   = "DISKMON_EMAIL_TO"
)

// ErrNotFound is returned when no configuration file exists at any candidate path
var ErrNotFound = errors.New("configuration file not found")

// Config is the settings object consumed by a monitoring run
type Config struct {
	MailEnabled  bool   `yaml:"mail_enabled"`
	SMTPServer   string `yaml:"smtp_server"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPass     string `yaml:"smtp_pass"`
	SMTPSecurity string `yaml:"smtp_security"`
	EmailFrom    string `yaml:"email_from"`
	// EmailTo is a comma separated recipient list
	EmailTo string `yaml:"email_to"`

	ThresholdPercent float64 `yaml:"threshold_percent" validate:"gte=1,lte=100"`
	AlertOnUnknown   bool    `yaml:"send_mail_on_unknown_status"`
	Debug            bool    `yaml:"debug"`

	// Pointers so an explicit false is distinguishable from "not set"
	HealthCheckEnabled *bool `yaml:"health_check_enabled"`
	SmartEnabled       *bool `yaml:"smart_enabled"`

	FriendlyName   string   `yaml:"friendly_name"`
	ExcludedDisks  []string `yaml:"excluded_disks"`
	SmartTimeout   int      `yaml:"smart_timeout" validate:"gte=1"`
	MaxConcurrency int      `yaml:"max_concurrency" validate:"gte=0"`
	HistoryPath    string   `yaml:"history_path"`
	// 0 keeps every run
	HistoryRetentionDays int `yaml:"history_retention_days" validate:"gte=0"`
}

// smtpSettings is validated only when mail delivery is enabled
type smtpSettings struct {
	Server     string   `validate:"required"`
	Port       int      `validate:"min=1,max=65535"`
	Security   string   `validate:"oneof=none starttls ssl"`
	From       string   `validate:"required,email"`
	Recipients []string `validate:"min=1,dive,email"`
}

var validate = validator.New()

// defaultConfig provides baseline settings applied before the file is decoded
var defaultConfig = Config{
	SMTPPort:             587,
	SMTPSecurity:         SecurityStartTLS,
	ThresholdPercent:     10,
	SmartTimeout:         30,
	HistoryRetentionDays: 90,
}

// Candidates returns the file locations tried when no explicit path is given
func Candidates() []string {
	return []string{
		"/etc/diskmon/config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/diskmon/config.yaml"),
		"config.yaml",
	}
}

// Load reads, overrides and validates the configuration for the goos
// platform. Non-fatal findings are returned as warnings for the caller to log.
func Load(path, goos string) (*Config, []string, error) {
	if path == "" {
		for _, c := range Candidates() {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}
	if path == "" {
		return nil, nil, fmt.Errorf("%w (tried %s)", ErrNotFound, strings.Join(Candidates(), ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	var warnings []string
	if goos != "windows" && info.Mode().Perm()&0o044 != 0 {
		warnings = append(warnings, fmt.Sprintf(
			"configuration file %s is readable by group/others, consider: chmod 600 %s", path, path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}

	// A missing .env is the common case
	_ = godotenv.Load()
	cfg.applyEnv(os.Getenv)

	more, err := cfg.Validate(goos)
	if err != nil {
		return nil, nil, err
	}
	return cfg, append(warnings, more...), nil
}

// Parse decodes YAML on top of the defaults
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	// Apply defaults for fields explicitly zeroed in the file
	if cfg.ThresholdPercent == 0 {
		cfg.ThresholdPercent = defaultConfig.ThresholdPercent
	}
	if cfg.SmartTimeout == 0 {
		cfg.SmartTimeout = defaultConfig.SmartTimeout
	}
	if cfg.SMTPSecurity == "" {
		cfg.SMTPSecurity = defaultConfig.SMTPSecurity
	}
	cfg.SMTPSecurity = strings.ToLower(strings.TrimSpace(cfg.SMTPSecurity))

	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	override := func(dst *string, key string) {
		if v := getenv(key); strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	override(&c.SMTPUser, EnvSMTPUser)
	override(&c.SMTPPass, EnvSMTPPass)
	override(&c.EmailFrom, EnvEmailFrom)
	override(&c.EmailTo, EnvEmailTo)
}

// Validate checks the settings. Errors are fatal; warnings are advisory.
// Excluded disk names are checked against the conventions of goos.
func (c *Config) Validate(goos string) ([]string, error) {
	var problems []string

	if err := validate.Struct(c); err != nil {
		problems = append(problems, describe(err)...)
	}

	if c.MailEnabled {
		smtp := smtpSettings{
			Server:     strings.TrimSpace(c.SMTPServer),
			Port:       c.SMTPPort,
			Security:   c.SMTPSecurity,
			From:       strings.TrimSpace(c.EmailFrom),
			Recipients: c.Recipients(),
		}
		if err := validate.Struct(smtp); err != nil {
			problems = append(problems, describe(err)...)
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("missing or invalid configuration keys: %s", strings.Join(problems, ", "))
	}

	var warnings []string
	if c.MailEnabled && c.SMTPSecurity == SecurityNone {
		warnings = append(warnings, "SMTP security is set to 'none', credentials are sent in clear text")
	}
	if c.Debug {
		warnings = append(warnings, "debug mode is enabled, every run sends a report and logs may expose sensitive information")
	}
	if !c.HealthChecks() {
		warnings = append(warnings, "disk health checks are disabled, only free space will be monitored")
	}
	if c.AlertOnUnknown {
		warnings = append(warnings, "send_mail_on_unknown_status is enabled, reports are sent when health status is unknown")
	}
	warnings = append(warnings, c.exclusionWarnings(goos)...)

	return warnings, nil
}

func (c *Config) exclusionWarnings(goos string) []string {
	var warnings []string
	for _, disk := range c.ExcludedDisks {
		disk = strings.TrimSpace(disk)
		if disk == "" {
			continue
		}
		if goos == "windows" {
			if len(disk) != 2 || disk[1] != ':' {
				warnings = append(warnings, fmt.Sprintf("invalid excluded disk %q: must be a drive letter like 'C:'", disk))
			}
			continue
		}
		if strings.Contains(disk, "/") && !strings.HasPrefix(disk, "/dev/") {
			warnings = append(warnings, fmt.Sprintf("invalid excluded disk %q: must be a device name like 'sda' or 'nvme0n1'", disk))
		}
	}
	return warnings
}

func describe(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field, _, _ := strings.Cut(fe.StructField(), "[")
		name := fieldKeys[field]
		if name == "" {
			name = strings.ToLower(fe.Field())
		}
		switch fe.Tag() {
		case "required":
			out = append(out, name)
		case "email":
			out = append(out, name+" (must be a valid email address)")
		case "oneof":
			out = append(out, fmt.Sprintf("%s (must be one of: %s)", name, strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "min", "max", "gte", "lte":
			out = append(out, fmt.Sprintf("%s (%s %s)", name, fe.Tag(), fe.Param()))
		default:
			out = append(out, name+" (invalid)")
		}
	}
	return out
}

// fieldKeys maps struct fields back to their YAML keys for error messages
var fieldKeys = map[string]string{
	"ThresholdPercent": "threshold_percent",
	"SmartTimeout":     "smart_timeout",
	"MaxConcurrency":   "max_concurrency",
	"Server":           "smtp_server",
	"Port":             "smtp_port",
	"Security":         "smtp_security",
	"From":             "email_from",
	"Recipients":       "email_to",
}

// Recipients splits EmailTo into trimmed, non-empty addresses
func (c *Config) Recipients() []string {
	var out []string
	for _, addr := range strings.Split(c.EmailTo, ",") {
		if a := strings.TrimSpace(addr); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// HealthChecks reports whether per-volume health probing runs (default true)
func (c *Config) HealthChecks() bool {
	return c.HealthCheckEnabled == nil || *c.HealthCheckEnabled
}

// SmartAlerts reports whether health status contributes to the alert decision (default true)
func (c *Config) SmartAlerts() bool {
	return c.SmartEnabled == nil || *c.SmartEnabled
}

// ProbeTimeout is the per-volume collection timeout
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.SmartTimeout) * time.Second
}
