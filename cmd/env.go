package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/leadlist-cli/internal/classify"
	"github.com/scoutline/leadlist-cli/internal/export"
	"github.com/scoutline/leadlist-cli/internal/orchestrator"
	"github.com/scoutline/leadlist-cli/internal/store"
	"github.com/scoutline/leadlist-cli/pkg/airtable"
	"github.com/scoutline/leadlist-cli/pkg/anthropic"
	"github.com/scoutline/leadlist-cli/pkg/apollo"
	"github.com/scoutline/leadlist-cli/pkg/bettercontact"
	sfpkg "github.com/scoutline/leadlist-cli/pkg/salesforce"
)

// jobRunner is what the serve and work commands need from the orchestrator.
type jobRunner interface {
	Run(ctx context.Context, jobID string) (*orchestrator.Result, error)
}

// Env holds the wired collaborators for a command invocation.
type Env struct {
	Store  store.Store
	Runner jobRunner
}

// Close releases the environment's resources.
func (e *Env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initStore opens and migrates the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// initEnv wires the store, providers, and orchestrator from config.
func initEnv(ctx context.Context) (*Env, error) {
	if cfg.Apollo.Key == "" {
		return nil, eris.New("apollo API key is required (LEADLIST_APOLLO_KEY)")
	}
	if cfg.BetterContact.Key == "" {
		return nil, eris.New("bettercontact API key is required (LEADLIST_BETTERCONTACT_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	ap := apollo.NewClient(cfg.Apollo.Key,
		apollo.WithBaseURL(cfg.Apollo.BaseURL),
		apollo.WithRateLimit(cfg.Apollo.RateLimit),
	)
	bc := bettercontact.NewClient(cfg.BetterContact.Key,
		bettercontact.WithBaseURL(cfg.BetterContact.BaseURL),
		bettercontact.WithRateLimit(cfg.BetterContact.RateLimit),
	)

	opts := []orchestrator.Option{
		orchestrator.WithBatchSize(cfg.Jobs.EnrichBatchSize),
		orchestrator.WithResultLimit(cfg.Jobs.DefaultLimit),
		orchestrator.WithPollOptions(
			bettercontact.WithPollInterval(time.Duration(cfg.BetterContact.PollSecs)*time.Second),
			bettercontact.WithPollCap(time.Duration(cfg.BetterContact.PollCapSecs)*time.Second),
			bettercontact.WithPollTimeout(time.Duration(cfg.BetterContact.PollTimeoutSecs)*time.Second),
		),
	}

	if cfg.Airtable.Key != "" && cfg.Airtable.BaseID != "" {
		at := airtable.NewClient(cfg.Airtable.Key, cfg.Airtable.BaseID)
		opts = append(opts, orchestrator.WithSink(export.NewAirtableSink(at, cfg.Airtable.LeadsTable)))
	}

	if cfg.Anthropic.Key != "" {
		ai := anthropic.NewClient(cfg.Anthropic.Key)
		opts = append(opts, orchestrator.WithScorer(classify.NewScorer(ai, cfg.Anthropic.Model)))
	}

	return &Env{
		Store:  st,
		Runner: orchestrator.New(st, ap, bc, opts...),
	}, nil
}

// initSalesforce builds the CRM client for the export command.
func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (LEADLIST_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}
