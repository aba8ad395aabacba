package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/campaign-dispatcher/internal/config"
	"github.com/example/campaign-dispatcher/internal/dispatch"
	"github.com/example/campaign-dispatcher/internal/events"
	"github.com/example/campaign-dispatcher/internal/ingest"
	"github.com/example/campaign-dispatcher/internal/logger"
	"github.com/example/campaign-dispatcher/internal/models"
	"github.com/example/campaign-dispatcher/internal/phone"
	waprovider "github.com/example/campaign-dispatcher/internal/providers/whatsapp"
	"github.com/example/campaign-dispatcher/internal/report"
	"github.com/example/campaign-dispatcher/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "campaign-dispatcher").Logger()

	normalizer := phone.New(phone.Rules{
		CountryCode:    cfg.Phone.CountryCode,
		NationalLength: cfg.Phone.NationalLength,
		MobilePrefix:   cfg.Phone.MobilePrefix,
	})

	loader, err := ingest.NewLoader(normalizer, log.With().Str("component", "ingest").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise loader")
	}
	recipients, err := loader.LoadCSV(cfg.Ingestion.CSVPath, cfg.Ingestion.PhoneColumn)
	if err != nil {
		// Ingestion problems degrade to an empty run; the report still lands.
		log.Error().Err(err).Msg("recipient ingestion failed")
		recipients = nil
	}

	provider, err := waprovider.NewCloudProvider(waprovider.CloudConfig{
		BaseURL:       cfg.Provider.BaseURL,
		AccessToken:   cfg.Provider.AccessToken,
		PhoneNumberID: cfg.Provider.PhoneNumberID,
		Timeout:       time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
	}, log.With().Str("component", "whatsapp-provider").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise whatsapp provider")
	}

	preflightCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := provider.CheckConnection(preflightCtx); err != nil {
		log.Warn().Err(err).Msg("provider connection check failed; continuing anyway")
	} else {
		log.Info().Msg("provider connection check passed")
	}
	cancel()

	dispatcher, err := dispatch.New(provider, normalizer, dispatch.Options{
		Template: models.TemplateRef{
			Name:     cfg.Campaign.TemplateName,
			Language: cfg.Campaign.TemplateLanguage,
		},
		Buttons: buttonsFromConfig(cfg.Campaign),
	}, log.With().Str("component", "dispatcher").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise dispatcher")
	}

	var schedOpts []scheduler.Option
	if cfg.Events.Enabled() {
		producer, err := events.NewKafkaProducer(cfg.Events.Brokers, log.With().Str("component", "kafka").Logger())
		if err != nil {
			log.Error().Err(err).Msg("failed to connect kafka producer; outcome events disabled")
		} else {
			defer func() {
				if err := producer.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close kafka producer")
				}
			}()
			publisher := events.NewPublisher(producer, cfg.Events.StatusTopic, log.With().Str("component", "events").Logger())
			schedOpts = append(schedOpts, scheduler.WithObserver(publisher))
			log.Info().Str("run_id", publisher.RunID()).Msg("outcome event stream enabled")
		}
	}

	sched, err := scheduler.New(scheduler.Config{
		MaxMessagesPerSecond: cfg.Pacing.MaxMessagesPerSecond,
		BatchSize:            cfg.Pacing.BatchSize,
		BatchPause:           time.Duration(cfg.Pacing.BatchPauseMs) * time.Millisecond,
		MaxInFlight:          cfg.Pacing.MaxInFlight,
	}, dispatcher, binderFromConfig(cfg.Campaign), log.With().Str("component", "scheduler").Logger(), schedOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise scheduler")
	}

	outcomes, stats := sched.Run(ctx, recipients)

	rep := report.Build(stats, outcomes)
	if err := report.Write(rep, cfg.Report.Path); err != nil {
		log.Error().Err(err).Msg("failed to persist report")
	} else {
		log.Info().Str("path", cfg.Report.Path).Msg("report written")
	}

	fmt.Print(report.Summary(stats))
}

// binderFromConfig builds the campaign's parameter binding strategy: an
// optional document header followed by attribute-backed body parameters.
func binderFromConfig(c config.CampaignConfig) dispatch.ParamBinder {
	body := dispatch.AttributeBinder(c.BodyParams...)
	if c.HeaderDocumentURL == "" {
		return body
	}
	header := models.TemplateParameter{
		Placement: models.PlacementHeader,
		Type:      models.ParamTypeDocument,
		Document: &models.DocumentRef{
			Link:     c.HeaderDocumentURL,
			Filename: c.HeaderDocumentName,
		},
	}
	return dispatch.BinderFunc(func(r models.Recipient) []models.TemplateParameter {
		return append([]models.TemplateParameter{header}, body.Bind(r)...)
	})
}

func buttonsFromConfig(c config.CampaignConfig) []models.Button {
	buttons := make([]models.Button, 0, len(c.ButtonTitles))
	for _, title := range c.ButtonTitles {
		buttons = append(buttons, models.Button{Title: title})
	}
	return buttons
}

func fail(stage string, err error) {
	fmt.Fprintf(os.Stderr, "campaign-dispatcher: %s: %v\n", stage, err)
	os.Exit(1)
}
