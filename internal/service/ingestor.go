package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mailcadence/sequencer/internal/domain"
	"github.com/mailcadence/sequencer/internal/gateway"
	"github.com/mailcadence/sequencer/pkg/logger"
)

// maxIngestRows bounds how many data rows a single sync scans below the
// header. Ingestion stops earlier at the first row whose lead column is
// blank, whichever comes first.
const maxIngestRows = 5000

// maxFollowUpColumns is the spreadsheet's fixed number of follow-up
// (date, status) column pairs (spec.md §4.8).
const maxFollowUpColumns = 8

// externalEmailSubject and externalEmailBody fill the Email aggregate's
// required non-blank fields for a record reconstructed from history; the
// ingestor never sends these, it only records that they were sent
// elsewhere.
const (
	externalEmailSubject = "(imported from external history)"
	externalEmailBody    = "(imported from external history)"
)

// RecipientColumnMapping locates a recipient sheet's columns by zero-based
// index (spec.md §6 `Config.RecipientColumnMapping`: domain, emailAddress,
// name, salutation, phoneNumber, initialEmailDate). A column set to -1 is
// absent from the sheet and left blank on the ingested record.
type RecipientColumnMapping struct {
	DomainColumn              int
	EmailColumn               int
	NameColumn                int
	SalutationColumn          int
	PhoneNumberColumn         int
	InitialContactDateColumn  int
}

// Ingestor reconciles the engine's persisted state against an operator's
// spreadsheet: `sync-recipients` upserts Contact/Recipient rows from a
// human-maintained sheet, and `sync-history` replays externally-sent
// history into EXTERNALLY_INITIAL/EXTERNALLY_FOLLOW_UP emails (spec.md
// §4.8, C12).
type Ingestor struct {
	spreadsheetID       string
	historySheetTitle   string
	recipientSheetTitle string
	columnMapping       RecipientColumnMapping
	defaultPlanID       *string
	sender              domain.EmailAddress
	criteria            domain.SendingCriteria

	sheets     gateway.SpreadsheetGateway
	contacts   domain.ContactRepository
	recipients domain.RecipientRepository
	emails     domain.EmailRepository
	logger     logger.Logger
}

// NewIngestor builds an Ingestor. criteria gates which recipient-sheet rows
// sync-recipients admits (spec.md §6 "sending-criteria column"); its zero
// value admits every row with a non-blank email address.
func NewIngestor(
	spreadsheetID, historySheetTitle, recipientSheetTitle string,
	columnMapping RecipientColumnMapping,
	defaultPlanID *string,
	sender domain.EmailAddress,
	sheets gateway.SpreadsheetGateway,
	contacts domain.ContactRepository,
	recipients domain.RecipientRepository,
	emails domain.EmailRepository,
	log logger.Logger,
	criteria domain.SendingCriteria,
) *Ingestor {
	return &Ingestor{
		spreadsheetID:       spreadsheetID,
		historySheetTitle:   historySheetTitle,
		recipientSheetTitle: recipientSheetTitle,
		columnMapping:       columnMapping,
		defaultPlanID:       defaultPlanID,
		sender:              sender,
		criteria:            criteria,
		sheets:              sheets,
		contacts:            contacts,
		recipients:          recipients,
		emails:              emails,
		logger:              log,
	}
}

// SyncRecipients reads the recipient sheet and upserts a Contact+Recipient
// pair for every row whose email address is new, matching the teacher's
// upsert-by-email pattern. Existing recipients are left untouched. It
// returns the number of recipients created.
func (ing *Ingestor) SyncRecipients(ctx context.Context) (int, error) {
	rows, err := ing.sheets.ReadRows(ctx, ing.spreadsheetID, ing.recipientSheetTitle, 2, 2+maxIngestRows-1)
	if err != nil {
		return 0, domain.NewGatewayError("read recipient sheet", err)
	}

	created := 0
	for i, row := range rows {
		rowNumber := i + 2
		emailCol := ing.columnMapping.EmailColumn
		if emailCol >= len(row) || strings.TrimSpace(row[emailCol]) == "" {
			break
		}

		if !ing.criteria.Eligible(row) {
			ing.logger.WithField("row", rowNumber).Debug("skipping recipient row: sending criteria not met")
			continue
		}

		addr, err := domain.NewEmailAddress(row[emailCol])
		if err != nil {
			ing.logger.WithField("row", rowNumber).WithField("error", err.Error()).Warn("skipping recipient row: invalid email")
			continue
		}

		if _, err := ing.recipients.FindByEmail(ctx, addr); err == nil {
			continue
		}

		salutation := cellOrBlank(row, ing.columnMapping.SalutationColumn)
		name := cellOrBlank(row, ing.columnMapping.NameColumn)
		website := cellOrBlank(row, ing.columnMapping.DomainColumn)
		phone := cellOrBlank(row, ing.columnMapping.PhoneNumberColumn)

		rowRef, err := domain.NewRowReference(rowNumber)
		if err != nil {
			return created, err
		}
		contact, err := domain.NewContact(uuid.New().String(), ing.recipientSheetTitle, rowRef, name, website, phone)
		if err != nil {
			return created, err
		}
		if err := ing.contacts.Save(ctx, contact); err != nil {
			return created, domain.NewPersistenceError("save ingested contact", err)
		}

		recipient, err := domain.NewRecipient(uuid.New().String(), addr, salutation)
		if err != nil {
			return created, err
		}
		if raw := cellOrBlank(row, ing.columnMapping.InitialContactDateColumn); strings.TrimSpace(raw) != "" {
			if date, err := parseSheetDate(raw); err == nil {
				if err := recipient.SetInitialContactDate(date); err != nil {
					return created, err
				}
			} else {
				ing.logger.WithField("row", rowNumber).Warn("ingested recipient has an unparseable initial contact date, leaving unset")
			}
		}

		metadata, err := domain.NewRecipientMetadata(contact.ID, ing.defaultPlanID, nil)
		if err != nil {
			return created, err
		}
		if err := ing.recipients.Save(ctx, recipient, metadata); err != nil {
			return created, domain.NewPersistenceError("save ingested recipient", err)
		}
		created++
	}
	return created, nil
}

// SyncHistory replays the external-history sheet into EXTERNALLY_INITIAL
// and EXTERNALLY_FOLLOW_UP emails (spec.md §4.8). It returns the number of
// emails ingested.
func (ing *Ingestor) SyncHistory(ctx context.Context) (int, error) {
	rows, err := ing.sheets.ReadRows(ctx, ing.spreadsheetID, ing.historySheetTitle, 2, 2+maxIngestRows-1)
	if err != nil {
		return 0, domain.NewGatewayError("read external history sheet", err)
	}

	ingested := 0
	for i, row := range rows {
		rowNumber := i + 2
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			break
		}

		addrs := ing.parseRecipientEmails(row[0], rowNumber)
		initialDate, err := parseSheetDate(row[1])
		if err != nil {
			ing.logger.WithField("row", rowNumber).Warn("skipping row: initial contact date missing or unparseable")
			continue
		}

		for _, addr := range addrs {
			n, err := ing.ingestRecipientHistory(ctx, addr, initialDate, row, rowNumber)
			if err != nil {
				ing.logger.WithField("row", rowNumber).WithField("recipient_email", addr.String()).
					WithField("error", err.Error()).Error("failed to ingest recipient history")
				continue
			}
			ingested += n
		}
	}
	return ingested, nil
}

func (ing *Ingestor) parseRecipientEmails(raw string, rowNumber int) []domain.EmailAddress {
	var addrs []domain.EmailAddress
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := domain.NewEmailAddress(part)
		if err != nil {
			ing.logger.WithField("row", rowNumber).WithField("error", err.Error()).Warn("dropping invalid recipient email address")
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

func (ing *Ingestor) ingestRecipientHistory(ctx context.Context, addr domain.EmailAddress, initialDate time.Time, row []string, rowNumber int) (int, error) {
	rwm, err := ing.recipients.FindByEmail(ctx, addr)
	if err != nil {
		ing.logger.WithField("row", rowNumber).WithField("recipient_email", addr.String()).
			Warn("no matching recipient for external history row; run sync-recipients first")
		return 0, nil
	}

	existing, err := ing.emails.FindByRecipient(ctx, rwm.Recipient.ID)
	if err != nil {
		return 0, domain.NewPersistenceError("load recipient email history", err)
	}
	internalHighest := highestInternalFollowup(existing)

	ingested := 0
	initialEmailID := findInitialEmailID(existing)

	if internalHighest < 0 {
		id := uuid.New().String()
		email, err := domain.NewEmail(id, ing.sender, rwm.Recipient.EmailAddress, externalEmailSubject, externalEmailBody, domain.TemplateTypeExternallyInitial)
		if err != nil {
			return ingested, err
		}
		metadata, err := domain.NewEmailMetadata(rwm.Recipient.ID, 0, domain.EmailStatusSent, initialDate, nil, nil, &initialDate)
		if err != nil {
			return ingested, err
		}
		if err := ing.emails.SaveWithMetadata(ctx, email, metadata); err != nil {
			return ingested, domain.NewPersistenceError("save ingested initial email", err)
		}
		if err := ing.emails.SaveWithMetadata(ctx, email, metadata.WithSelfInitialLink(id)); err != nil {
			return ingested, domain.NewPersistenceError("self-link ingested initial email", err)
		}
		initialEmailID = id
		ingested++
	} else {
		ing.logger.WithField("recipient_id", rwm.Recipient.ID).
			Warn("discarding external initial email: internal history already represents this recipient")
	}

	for k := 1; k <= maxFollowUpColumns; k++ {
		dateCol, statusCol := 2*k, 2*k+1
		if dateCol >= len(row) || strings.TrimSpace(row[dateCol]) == "" {
			break
		}

		if internalHighest >= k {
			ing.logger.WithField("recipient_id", rwm.Recipient.ID).WithField("followup_number", k).
				Warn("discarding external follow-up: internal history already covers this step")
			continue
		}
		if initialEmailID == "" {
			ing.logger.WithField("recipient_id", rwm.Recipient.ID).WithField("followup_number", k).
				Warn("dropping external follow-up: recipient has no initial email to link to")
			continue
		}

		scheduledDate, err := parseSheetDate(row[dateCol])
		if err != nil {
			ing.logger.WithField("row", rowNumber).WithField("followup_number", k).
				Warn("dropping external follow-up: unparseable scheduled date")
			continue
		}

		status, statusErr := domain.ParseExternalStatus(cellOrBlank(row, statusCol))
		if statusErr != nil {
			ing.logger.WithField("row", rowNumber).WithField("followup_number", k).
				WithField("error", statusErr.Error()).Warn("unrecognized external status, recording as FAILED")
		}

		var sentDate *time.Time
		var failureReason *string
		switch status {
		case domain.EmailStatusSent:
			sentDate = &scheduledDate
		case domain.EmailStatusFailed:
			reason := "imported from external history"
			failureReason = &reason
		}

		id := uuid.New().String()
		email, err := domain.NewEmail(id, ing.sender, rwm.Recipient.EmailAddress, externalEmailSubject, externalEmailBody, domain.TemplateTypeExternallyFollowUp)
		if err != nil {
			return ingested, err
		}
		metadata, err := domain.NewEmailMetadata(rwm.Recipient.ID, k, status, scheduledDate, &initialEmailID, failureReason, sentDate)
		if err != nil {
			return ingested, err
		}
		if err := ing.emails.SaveWithMetadata(ctx, email, metadata); err != nil {
			return ingested, domain.NewPersistenceError("save ingested follow-up email", err)
		}
		ingested++
	}

	return ingested, nil
}

// cellOrBlank returns row[col], or "" if col is out of bounds or negative
// (meaning the mapped column is absent from this sheet).
func cellOrBlank(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// highestInternalFollowup is HighestScheduledFollowupNumber restricted to
// emails the engine itself scheduled, ignoring any already-ingested
// external records, so the skip rule compares against genuine internal
// history (spec.md §4.8).
func highestInternalFollowup(existing []*domain.EmailWithMetadata) int {
	highest := -1
	for _, e := range existing {
		if e.Email.Type != domain.TemplateTypeInitial && e.Email.Type != domain.TemplateTypeFollowUp {
			continue
		}
		if e.Metadata.FollowupNumber > highest {
			highest = e.Metadata.FollowupNumber
		}
	}
	return highest
}

var sheetDateLayouts = []string{
	"02.01.2006",
	time.RFC3339,
	"2006-01-02",
}

// parseSheetDate parses a spreadsheet date cell, trying the German
// dd.mm.yyyy layout first since the history sheet's status vocabulary is
// itself German (spec.md §4.8), then ISO layouts as a fallback.
func parseSheetDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, domain.NewValidationError("date cell is blank")
	}
	for _, layout := range sheetDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return sheetsSerialToTime(serial), nil
	}
	return time.Time{}, domain.NewValidationError("unparseable date: %q", raw)
}

// sheetsEpoch is Google Sheets' day-zero (December 30th, 1899) for its
// serial date format, used when a cell comes back as a bare number instead
// of formatted text.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func sheetsSerialToTime(serial float64) time.Time {
	return sheetsEpoch.Add(time.Duration(serial*24*float64(time.Hour)))
}
