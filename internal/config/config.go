package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the campaign dispatcher.
type Config struct {
	App       AppConfig
	Provider  ProviderConfig
	Campaign  CampaignConfig
	Pacing    PacingConfig
	Ingestion IngestionConfig
	Phone     PhoneConfig
	Report    ReportConfig
	Events    EventsConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// ProviderConfig stores WhatsApp Cloud API connection settings.
type ProviderConfig struct {
	BaseURL        string
	AccessToken    string
	PhoneNumberID  string
	TimeoutSeconds int
}

// CampaignConfig identifies the template used for the run and how recipient
// attributes bind to it.
type CampaignConfig struct {
	TemplateName     string
	TemplateLanguage string
	// BodyParams names the recipient attributes bound, in order, as body
	// text parameters.
	BodyParams []string
	// HeaderDocumentURL, when set, becomes a document header parameter.
	HeaderDocumentURL  string
	HeaderDocumentName string
	// ButtonTitles attach interactive buttons to every message.
	ButtonTitles []string
}

// PacingConfig controls the scheduler's throughput ceiling.
type PacingConfig struct {
	MaxMessagesPerSecond int
	BatchSize            int
	BatchPauseMs         int
	MaxInFlight          int
}

// IngestionConfig locates the recipient source.
type IngestionConfig struct {
	CSVPath     string
	PhoneColumn string
}

// PhoneConfig holds the numbering rules used for normalization.
type PhoneConfig struct {
	CountryCode    string
	NationalLength int
	MobilePrefix   string
}

// ReportConfig controls report persistence.
type ReportConfig struct {
	Path string
}

// EventsConfig enables optional per-outcome Kafka events. An empty broker
// list means the event stream is disabled.
type EventsConfig struct {
	Brokers     []string
	StatusTopic string
}

// Enabled reports whether outcome events should be published.
func (e EventsConfig) Enabled() bool { return len(e.Brokers) > 0 }

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Provider.BaseURL = ldr.getString("WA_API_BASE_URL", "https://graph.facebook.com/v18.0", false)
	cfg.Provider.AccessToken = ldr.getString("WA_ACCESS_TOKEN", "", true)
	cfg.Provider.PhoneNumberID = ldr.getString("WA_PHONE_NUMBER_ID", "", true)
	cfg.Provider.TimeoutSeconds = ldr.getInt("PROVIDER_TIMEOUT_SECONDS", 30, false)

	cfg.Campaign.TemplateName = ldr.getString("TEMPLATE_NAME", "", true)
	cfg.Campaign.TemplateLanguage = ldr.getString("TEMPLATE_LANGUAGE", "es", false)
	cfg.Campaign.BodyParams = ldr.getStringSlice("TEMPLATE_BODY_PARAMS", false)
	cfg.Campaign.HeaderDocumentURL = ldr.getString("TEMPLATE_HEADER_DOCUMENT_URL", "", false)
	cfg.Campaign.HeaderDocumentName = ldr.getString("TEMPLATE_HEADER_DOCUMENT_NAME", "", false)
	cfg.Campaign.ButtonTitles = ldr.getStringSlice("TEMPLATE_BUTTON_TITLES", false)

	cfg.Pacing.MaxMessagesPerSecond = ldr.getInt("MAX_MESSAGES_PER_SECOND", 80, false)
	cfg.Pacing.BatchSize = ldr.getInt("BATCH_SIZE", 50, false)
	cfg.Pacing.BatchPauseMs = ldr.getInt("BATCH_PAUSE_MS", 1000, false)
	cfg.Pacing.MaxInFlight = ldr.getInt("MAX_IN_FLIGHT", 0, false)

	cfg.Ingestion.CSVPath = ldr.getString("RECIPIENTS_CSV", "./recipients.csv", false)
	cfg.Ingestion.PhoneColumn = ldr.getString("CSV_PHONE_COLUMN", "phone", false)

	cfg.Phone.CountryCode = ldr.getString("COUNTRY_CODE", "57", false)
	cfg.Phone.NationalLength = ldr.getInt("NATIONAL_NUMBER_LENGTH", 10, false)
	cfg.Phone.MobilePrefix = ldr.getString("MOBILE_PREFIX", "3", false)

	cfg.Report.Path = ldr.getString("REPORT_PATH", "./report.json", false)

	cfg.Events.Brokers = ldr.getStringSlice("KAFKA_BROKERS", false)
	cfg.Events.StatusTopic = ldr.getString("KAFKA_STATUS_TOPIC", "campaign.dispatch.status", false)

	if cfg.Pacing.MaxMessagesPerSecond <= 0 {
		ldr.addError("MAX_MESSAGES_PER_SECOND must be positive")
	}
	if cfg.Pacing.BatchSize <= 0 {
		ldr.addError("BATCH_SIZE must be positive")
	}
	if cfg.Events.Enabled() && strings.TrimSpace(cfg.Events.StatusTopic) == "" {
		ldr.addError("KAFKA_STATUS_TOPIC is required when KAFKA_BROKERS is set")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
