// Package cliwizard implements the interactive `init` and `configure
// modify` subcommands (spec.md §6 "CLI surface ... excluded as thin
// collaborators": "the interactive CLI configuration wizard"). It is
// specified only at its interface in the core but implemented here for a
// working CLI, grounded on skaffold's survey.AskOne-driven init wizard
// (pkg/skaffold/initializer/prompt).
package cliwizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/mailcadence/sequencer/config"
)

// RunInit interactively builds a fresh Config from scratch. It prompts for
// the spreadsheet id, the recipient and history sheet titles, the sender,
// the mail provider, draft mode and the recipient email, name, salutation
// and initial-contact-date columns, then for either the Gmail token path or
// the SMTP host, port, username and password. No other Config field is
// prompted for; those stay at their zero values.
func RunInit() (*config.Config, error) {
	cfg := &config.Config{}

	questions := []struct {
		prompt survey.Prompt
		apply  func(string) error
	}{
		{&survey.Input{Message: "Spreadsheet ID:"}, func(v string) error { cfg.Spreadsheet.SpreadsheetID = v; return nil }},
		{&survey.Input{Message: "Recipient sheet title:", Default: "Recipients"}, func(v string) error {
			cfg.Spreadsheet.RecipientSheetTitle = v
			return nil
		}},
		{&survey.Input{Message: "External-history sheet title:", Default: "History"}, func(v string) error {
			cfg.Spreadsheet.HistorySheetTitle = v
			return nil
		}},
		{&survey.Input{Message: "Default sender address:"}, func(v string) error { cfg.Sender = v; return nil }},
		{&survey.Select{Message: "Mail provider:", Options: []string{string(config.MailProviderGmail), string(config.MailProviderSMTP)}, Default: string(config.MailProviderGmail)}, func(v string) error {
			cfg.Mail.Provider = config.MailProvider(v)
			return nil
		}},
		{&survey.Confirm{Message: "Save outgoing messages as drafts instead of sending?", Default: false}, func(v string) error {
			cfg.SaveAsDraft = v == "true"
			return nil
		}},
		{&survey.Input{Message: "Recipient sheet email column (0-based index):", Default: "1"}, intSetter(&cfg.RecipientColumns.EmailColumn)},
		{&survey.Input{Message: "Recipient sheet name column (0-based index, -1 if absent):", Default: "2"}, intSetter(&cfg.RecipientColumns.NameColumn)},
		{&survey.Input{Message: "Recipient sheet salutation column (0-based index, -1 if absent):", Default: "3"}, intSetter(&cfg.RecipientColumns.SalutationColumn)},
		{&survey.Input{Message: "Recipient sheet initial-contact-date column (0-based index, -1 if absent):", Default: "4"}, intSetter(&cfg.RecipientColumns.InitialContactDateColumn)},
	}

	for _, q := range questions {
		var answer string
		if _, ok := q.prompt.(*survey.Confirm); ok {
			var b bool
			if err := survey.AskOne(q.prompt, &b); err != nil {
				return nil, fmt.Errorf("init wizard: %w", err)
			}
			answer = strconv.FormatBool(b)
		} else {
			if err := survey.AskOne(q.prompt, &answer, survey.WithValidator(survey.Required)); err != nil {
				return nil, fmt.Errorf("init wizard: %w", err)
			}
		}
		if err := q.apply(answer); err != nil {
			return nil, err
		}
	}

	if cfg.Mail.Provider == config.MailProviderGmail {
		if err := survey.AskOne(&survey.Input{Message: "Gmail OAuth token cache path:", Default: "~/.sequencer/gmail-token.json"}, &cfg.Mail.GmailTokenPath); err != nil {
			return nil, fmt.Errorf("init wizard: %w", err)
		}
	} else {
		smtpQuestions := []struct {
			prompt survey.Prompt
			apply  func(string) error
		}{
			{&survey.Input{Message: "SMTP host:"}, func(v string) error { cfg.Mail.SMTPHost = v; return nil }},
			{&survey.Input{Message: "SMTP port:", Default: "587"}, intSetter(&cfg.Mail.SMTPPort)},
			{&survey.Input{Message: "SMTP username:"}, func(v string) error { cfg.Mail.SMTPUsername = v; return nil }},
			{&survey.Password{Message: "SMTP password:"}, func(v string) error { cfg.Mail.SMTPPassword = v; return nil }},
		}
		for _, q := range smtpQuestions {
			var answer string
			if err := survey.AskOne(q.prompt, &answer); err != nil {
				return nil, fmt.Errorf("init wizard: %w", err)
			}
			if err := q.apply(answer); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

func intSetter(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("expected an integer, got %q: %w", v, err)
		}
		*dst = n
		return nil
	}
}

// modifiableFields names every field `configure modify` may change, and how
// to read/write it on a Config value (spec.md §6 "configure modify").
var modifiableFields = []string{
	"sender",
	"save_as_draft",
	"spreadsheet_id",
	"recipient_sheet_title",
	"history_sheet_title",
	"mail_provider",
}

func getField(cfg *config.Config, field string) string {
	switch field {
	case "sender":
		return cfg.Sender
	case "save_as_draft":
		return strconv.FormatBool(cfg.SaveAsDraft)
	case "spreadsheet_id":
		return cfg.Spreadsheet.SpreadsheetID
	case "recipient_sheet_title":
		return cfg.Spreadsheet.RecipientSheetTitle
	case "history_sheet_title":
		return cfg.Spreadsheet.HistorySheetTitle
	case "mail_provider":
		return string(cfg.Mail.Provider)
	default:
		return ""
	}
}

func setField(cfg *config.Config, field, value string) error {
	switch field {
	case "sender":
		cfg.Sender = value
	case "save_as_draft":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("save_as_draft must be true or false: %w", err)
		}
		cfg.SaveAsDraft = b
	case "spreadsheet_id":
		cfg.Spreadsheet.SpreadsheetID = value
	case "recipient_sheet_title":
		cfg.Spreadsheet.RecipientSheetTitle = value
	case "history_sheet_title":
		cfg.Spreadsheet.HistorySheetTitle = value
	case "mail_provider":
		cfg.Mail.Provider = config.MailProvider(value)
	default:
		return fmt.Errorf("unknown configuration field %q", field)
	}
	return nil
}

// RunConfigureModify changes one field of cfg and returns the new record
// (spec.md §9 Design Notes: "modifications yield a new record"). field/value
// given as empty strings are prompted for interactively.
func RunConfigureModify(cfg *config.Config, field, value string) (*config.Config, error) {
	updated := *cfg

	if field == "" {
		if err := survey.AskOne(&survey.Select{Message: "Field to modify:", Options: modifiableFields}, &field); err != nil {
			return nil, fmt.Errorf("configure modify: %w", err)
		}
	}
	if value == "" {
		if err := survey.AskOne(&survey.Input{Message: fmt.Sprintf("New value for %s (current: %q):", field, getField(cfg, field))}, &value, survey.WithValidator(survey.Required)); err != nil {
			return nil, fmt.Errorf("configure modify: %w", err)
		}
	}

	if err := setField(&updated, field, value); err != nil {
		return nil, err
	}
	return &updated, nil
}
