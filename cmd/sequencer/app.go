package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/lib/pq"
	"golang.org/x/oauth2"
	oauth2google "golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mailcadence/sequencer/config"
	"github.com/mailcadence/sequencer/internal/domain"
	"github.com/mailcadence/sequencer/internal/gateway"
	"github.com/mailcadence/sequencer/internal/repository"
	"github.com/mailcadence/sequencer/internal/service"
	"github.com/mailcadence/sequencer/pkg/logger"
	"github.com/mailcadence/sequencer/pkg/tokenstore"
)

// app is the composition root every subcommand's RunE closes over, built
// once from a fully-loaded Config (SPEC_FULL §9 Design Notes: "explicit
// dependency passing through a composition root at process start"),
// grounded on notifuse's cmd/api/app.go App struct.
type app struct {
	cfg    *config.Config
	log    logger.Logger
	db     *sql.DB
	sender domain.EmailAddress

	recipients domain.RecipientRepository
	contacts   domain.ContactRepository
	emails     domain.EmailRepository
	templates  domain.TemplateRepository
	plans      domain.PlanRepository

	sheets gateway.SpreadsheetGateway
	mail   gateway.MailGateway

	resolver *service.PlaceholderResolver
	ingestor *service.Ingestor
}

// newApp opens the database connection and the configured mail/spreadsheet
// gateways, and wires every repository and service the CLI subcommands
// need.
func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	sender, err := domain.NewEmailAddress(cfg.Sender)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}

	sheetsGateway, mailGateway, err := buildGateways(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	recipients := repository.NewRecipientRepository(db)
	contacts := repository.NewContactRepository(db)
	emails := repository.NewEmailRepository(db)
	templates := repository.NewTemplateRepository(db)
	plans := repository.NewPlanRepository(db)

	criteria, err := cfg.SendingCriteria.ToDomain()
	if err != nil {
		db.Close()
		return nil, err
	}

	var defaultPlanID *string
	if cfg.Plan.DefaultPlanID != "" {
		defaultPlanID = &cfg.Plan.DefaultPlanID
	}

	ingestor := service.NewIngestor(
		cfg.Spreadsheet.SpreadsheetID,
		cfg.Spreadsheet.HistorySheetTitle,
		cfg.Spreadsheet.RecipientSheetTitle,
		cfg.RecipientColumns.ToService(),
		defaultPlanID,
		sender,
		sheetsGateway,
		contacts,
		recipients,
		emails,
		log,
		criteria,
	)

	resolver := service.NewPlaceholderResolver(cfg.Spreadsheet.SpreadsheetID, recipients, contacts, sheetsGateway)

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		sender:     sender,
		recipients: recipients,
		contacts:   contacts,
		emails:     emails,
		templates:  templates,
		plans:      plans,
		sheets:     sheetsGateway,
		mail:       mailGateway,
		resolver:   resolver,
		ingestor:   ingestor,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) scheduler() *service.Scheduler {
	return service.NewScheduler(a.recipients, a.emails, a.plans, a.templates, a.sender, a.resolver, a.log)
}

func (a *app) dispatcher(draft bool) *service.DispatchPipeline {
	return service.NewDispatchPipeline(a.emails, a.recipients, a.mail, a.log, draft)
}

// buildGateways constructs the SpreadsheetGateway (always Sheets v4) and the
// configured MailGateway implementation (Gmail v1 or SMTP, SPEC_FULL §2).
func buildGateways(ctx context.Context, cfg *config.Config) (gateway.SpreadsheetGateway, gateway.MailGateway, error) {
	httpClient, err := googleHTTPClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	sheetsSvc, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, nil, fmt.Errorf("build sheets client: %w", err)
	}
	sheetsGateway := gateway.NewSheetsGateway(sheetsSvc)

	var mailGateway gateway.MailGateway
	switch cfg.Mail.Provider {
	case config.MailProviderSMTP:
		mailGateway = gateway.NewSMTPGateway(gateway.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
		})
	default:
		gmailSvc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
		if err != nil {
			return nil, nil, fmt.Errorf("build gmail client: %w", err)
		}
		mailGateway = gateway.NewGmailGateway(gmailSvc)
	}

	return sheetsGateway, mailGateway, nil
}

// googleOAuthScopes are requested during `init`; both APIs share one token
// (SPEC_FULL §2: "builds the authed http.Client the two Google services
// share").
var googleOAuthScopes = []string{sheets.SpreadsheetsScope, gmail.MailGoogleComScope}

// googleHTTPClient builds an oauth2-authenticated http.Client from the
// cached token, refreshing and re-persisting it through a persisting token
// source so a refreshed token is never silently dropped on process exit. A
// blank token path (no Google credentials configured, e.g. SMTP-only
// operation with a local Sheets emulator) falls back to http.DefaultClient.
func googleHTTPClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	if cfg.Mail.GmailTokenPath == "" {
		return http.DefaultClient, nil
	}

	store := tokenstore.New(cfg.Mail.GmailTokenPath)
	tok, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load cached OAuth token (run `sequencer init` first): %w", err)
	}

	oauthCfg := &oauth2.Config{Scopes: googleOAuthScopes, Endpoint: oauth2google.Endpoint}
	src := &persistingTokenSource{inner: oauthCfg.TokenSource(ctx, tok), store: store}
	return oauth2.NewClient(ctx, src), nil
}

// persistingTokenSource saves every refreshed token back to disk so a long
// refresh token chain survives process restarts.
type persistingTokenSource struct {
	inner oauth2.TokenSource
	store *tokenstore.Store
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.inner.Token()
	if err != nil {
		return nil, err
	}
	_ = p.store.Save(tok)
	return tok, nil
}
