// Package config loads and persists the engine's configuration as an
// immutable record (spec.md §6 "Environment/configuration", SPEC_FULL §9
// Design Notes: "Configuration is an immutable record; modifications yield
// a new record and persist it atomically"), grounded on notifuse's
// server/config/config.go viper-based Load.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mailcadence/sequencer/internal/domain"
	"github.com/mailcadence/sequencer/internal/service"
)

// MailProvider selects which gateway.MailGateway implementation the
// composition root wires up (SPEC_FULL §2 domain stack).
type MailProvider string

const (
	MailProviderGmail MailProvider = "gmail"
	MailProviderSMTP  MailProvider = "smtp"
)

// DatabaseConfig holds the Postgres connection parameters consumed by the
// C7 repository adapters (spec.md §6 relational schema).
type DatabaseConfig struct {
	Host     string `yaml:"host" mapstructure:"DB_HOST"`
	Port     int    `yaml:"port" mapstructure:"DB_PORT"`
	User     string `yaml:"user" mapstructure:"DB_USER"`
	Password string `yaml:"password" mapstructure:"DB_PASSWORD"`
	DBName   string `yaml:"db_name" mapstructure:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"DB_SSLMODE"`
}

// DSN renders the libpq connection string lib/pq expects.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// SpreadsheetConfig names the operator's workbook and sheet tabs (spec.md
// §6 "spreadsheet id").
type SpreadsheetConfig struct {
	SpreadsheetID       string `yaml:"spreadsheet_id" mapstructure:"SPREADSHEET_ID"`
	RecipientSheetTitle string `yaml:"recipient_sheet_title" mapstructure:"RECIPIENT_SHEET_TITLE"`
	HistorySheetTitle   string `yaml:"history_sheet_title" mapstructure:"HISTORY_SHEET_TITLE"`
}

// RecipientColumnMapping locates the recipient sheet's columns by
// zero-based index (spec.md §6: "domain, emailAddress, name, salutation,
// phoneNumber, initialEmailDate").
type RecipientColumnMapping struct {
	DomainColumn             int `yaml:"domain_column" mapstructure:"DOMAIN_COLUMN"`
	EmailColumn              int `yaml:"email_column" mapstructure:"EMAIL_COLUMN"`
	NameColumn               int `yaml:"name_column" mapstructure:"NAME_COLUMN"`
	SalutationColumn         int `yaml:"salutation_column" mapstructure:"SALUTATION_COLUMN"`
	PhoneNumberColumn        int `yaml:"phone_number_column" mapstructure:"PHONE_NUMBER_COLUMN"`
	InitialContactDateColumn int `yaml:"initial_contact_date_column" mapstructure:"INITIAL_CONTACT_DATE_COLUMN"`
}

// ToService converts the config-level mapping to the shape
// service.Ingestor consumes.
func (m RecipientColumnMapping) ToService() service.RecipientColumnMapping {
	return service.RecipientColumnMapping{
		DomainColumn:             m.DomainColumn,
		EmailColumn:              m.EmailColumn,
		NameColumn:               m.NameColumn,
		SalutationColumn:         m.SalutationColumn,
		PhoneNumberColumn:        m.PhoneNumberColumn,
		InitialContactDateColumn: m.InitialContactDateColumn,
	}
}

// SendingCriteriaConfig is the persisted form of domain.SendingCriteria
// (spec.md §6 "sending-criteria column").
type SendingCriteriaConfig struct {
	Kind    string `yaml:"kind" mapstructure:"SENDING_CRITERIA_KIND"`
	Column  int    `yaml:"column" mapstructure:"SENDING_CRITERIA_COLUMN"`
	Value   string `yaml:"value" mapstructure:"SENDING_CRITERIA_VALUE"`
	Pattern string `yaml:"pattern" mapstructure:"SENDING_CRITERIA_PATTERN"`
}

// ToDomain validates and converts to domain.SendingCriteria.
func (c SendingCriteriaConfig) ToDomain() (domain.SendingCriteria, error) {
	return domain.NewSendingCriteria(domain.SendingCriteriaKind(c.Kind), c.Column, c.Value, c.Pattern)
}

// MailConfig selects and configures the mail transport (SPEC_FULL §2).
type MailConfig struct {
	Provider       MailProvider `yaml:"provider" mapstructure:"MAIL_PROVIDER"`
	GmailTokenPath string       `yaml:"gmail_token_path" mapstructure:"GMAIL_TOKEN_PATH"`
	SMTPHost       string       `yaml:"smtp_host" mapstructure:"SMTP_HOST"`
	SMTPPort       int          `yaml:"smtp_port" mapstructure:"SMTP_PORT"`
	SMTPUsername   string       `yaml:"smtp_username" mapstructure:"SMTP_USERNAME"`
	SMTPPassword   string       `yaml:"smtp_password" mapstructure:"SMTP_PASSWORD"`
}

// PlanConfig records the per-plan follow-up count and cadence an operator
// configured through `init`/`configure modify` (spec.md §6: "per-plan
// follow-up count", "follow-up interval list").
type PlanConfig struct {
	DefaultPlanID        string         `yaml:"default_plan_id" mapstructure:"DEFAULT_PLAN_ID"`
	FollowUpCounts       map[string]int `yaml:"follow_up_counts" mapstructure:"-"`
	FollowUpIntervalDays []int          `yaml:"follow_up_interval_days" mapstructure:"-"`
}

// Config is the engine's full, immutable configuration record. Every field
// a subcommand needs is resolved once at process start by the composition
// root (SPEC_FULL §9 Design Notes: "explicit dependency passing through a
// composition root").
type Config struct {
	Environment           string                 `yaml:"environment" mapstructure:"ENVIRONMENT"`
	Database              DatabaseConfig         `yaml:"database"`
	Spreadsheet           SpreadsheetConfig      `yaml:"spreadsheet"`
	RecipientColumns      RecipientColumnMapping `yaml:"recipient_columns"`
	SendingCriteria       SendingCriteriaConfig  `yaml:"sending_criteria"`
	Sender                string                 `yaml:"sender" mapstructure:"SENDER_ADDRESS"`
	SaveAsDraft           bool                   `yaml:"save_as_draft" mapstructure:"SAVE_AS_DRAFT"`
	Plan                  PlanConfig             `yaml:"plan"`
	Mail                  MailConfig             `yaml:"mail"`
	GatewayTimeoutSeconds int                    `yaml:"gateway_timeout_seconds" mapstructure:"GATEWAY_TIMEOUT_SECONDS"`
}

// IsDevelopment mirrors the teacher's Config.IsDevelopment convenience.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// defaultConfigPath is where init/configure modify persist the config
// record when no explicit path is given.
const defaultConfigPath = "sequencer.yaml"

// LoadOptions mirrors the teacher's LoadOptions shape.
type LoadOptions struct {
	ConfigPath string
}

// Load loads the configuration from defaultConfigPath with environment
// variable overrides.
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{ConfigPath: defaultConfigPath})
}

// LoadWithOptions reads opts.ConfigPath (if present) as a YAML base, then
// lets environment variables named per each field's mapstructure tag
// override individual scalars, matching the teacher's viper.AutomaticEnv
// layering.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	cfg := &Config{}

	if opts.ConfigPath != "" {
		if raw, err := os.ReadFile(opts.ConfigPath); err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", opts.ConfigPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", opts.ConfigPath, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	applyEnvOverride(v, "ENVIRONMENT", &cfg.Environment)
	applyEnvOverride(v, "SENDER_ADDRESS", &cfg.Sender)
	applyEnvOverrideInt(v, "GATEWAY_TIMEOUT_SECONDS", &cfg.GatewayTimeoutSeconds)
	applyEnvOverrideBool(v, "SAVE_AS_DRAFT", &cfg.SaveAsDraft)

	applyEnvOverride(v, "DB_HOST", &cfg.Database.Host)
	applyEnvOverrideInt(v, "DB_PORT", &cfg.Database.Port)
	applyEnvOverride(v, "DB_USER", &cfg.Database.User)
	applyEnvOverride(v, "DB_PASSWORD", &cfg.Database.Password)
	applyEnvOverride(v, "DB_NAME", &cfg.Database.DBName)
	applyEnvOverride(v, "DB_SSLMODE", &cfg.Database.SSLMode)

	applyEnvOverride(v, "SPREADSHEET_ID", &cfg.Spreadsheet.SpreadsheetID)
	applyEnvOverride(v, "RECIPIENT_SHEET_TITLE", &cfg.Spreadsheet.RecipientSheetTitle)
	applyEnvOverride(v, "HISTORY_SHEET_TITLE", &cfg.Spreadsheet.HistorySheetTitle)

	applyEnvOverride(v, "MAIL_PROVIDER", (*string)(&cfg.Mail.Provider))
	applyEnvOverride(v, "GMAIL_TOKEN_PATH", &cfg.Mail.GmailTokenPath)
	applyEnvOverride(v, "SMTP_HOST", &cfg.Mail.SMTPHost)
	applyEnvOverrideInt(v, "SMTP_PORT", &cfg.Mail.SMTPPort)
	applyEnvOverride(v, "SMTP_USERNAME", &cfg.Mail.SMTPUsername)
	applyEnvOverride(v, "SMTP_PASSWORD", &cfg.Mail.SMTPPassword)

	if cfg.GatewayTimeoutSeconds == 0 {
		cfg.GatewayTimeoutSeconds = 30
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = MailProviderGmail
	}
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}

	if cfg.Spreadsheet.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required: set spreadsheet.spreadsheet_id or SPREADSHEET_ID")
	}
	if cfg.Sender == "" {
		return nil, fmt.Errorf("default sender address is required: set sender or SENDER_ADDRESS")
	}
	if _, err := domain.NewEmailAddress(cfg.Sender); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if _, err := cfg.SendingCriteria.ToDomain(); err != nil {
		return nil, fmt.Errorf("invalid sending criteria: %w", err)
	}

	return cfg, nil
}

func applyEnvOverride(v *viper.Viper, key string, dst *string) {
	if raw := v.GetString(key); raw != "" {
		*dst = raw
	}
}

func applyEnvOverrideInt(v *viper.Viper, key string, dst *int) {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			*dst = n
		}
	}
}

func applyEnvOverrideBool(v *viper.Viper, key string, dst *bool) {
	if raw := os.Getenv(key); raw != "" {
		*dst = v.GetBool(key)
	}
}

// Save persists cfg to path as the new configuration record, writing a
// temp file and renaming it into place so a concurrent Load never observes
// a half-written file (spec.md §9 "modifications yield a new record and
// persist it atomically").
func Save(cfg *Config, path string) error {
	if path == "" {
		path = defaultConfigPath
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".sequencer-config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config file into place: %w", err)
	}
	return nil
}
