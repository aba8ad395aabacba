package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/campaign-dispatcher/internal/models"
)

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CloudOption customises the behaviour of the Cloud API provider.
type CloudOption func(*CloudProvider)

// WithHTTPClient overrides the HTTP client used to talk to the Cloud API.
func WithHTTPClient(client HTTPClient) CloudOption {
	return func(p *CloudProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithClock overrides the clock used for result timestamps.
func WithClock(now func() time.Time) CloudOption {
	return func(p *CloudProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithBodyLimit adjusts how many bytes are retained from response bodies.
func WithBodyLimit(limit int64) CloudOption {
	return func(p *CloudProvider) {
		if limit > 0 {
			p.maxBodyBytes = limit
		}
	}
}

// CloudConfig carries the Cloud API connection settings.
type CloudConfig struct {
	BaseURL       string
	AccessToken   string
	PhoneNumberID string
	Timeout       time.Duration
}

// CloudProvider implements Provider against the WhatsApp Cloud API.
type CloudProvider struct {
	logger        zerolog.Logger
	baseURL       string
	accessToken   string
	phoneNumberID string
	httpClient    HTTPClient
	now           func() time.Time
	maxBodyBytes  int64
}

// NewCloudProvider constructs a Cloud API backed provider.
func NewCloudProvider(cfg CloudConfig, logger zerolog.Logger, opts ...CloudOption) (*CloudProvider, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("whatsapp provider: access token is required")
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("whatsapp provider: phone number id is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v18.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := &CloudProvider{
		logger:        logger,
		baseURL:       baseURL,
		accessToken:   strings.TrimSpace(cfg.AccessToken),
		phoneNumberID: strings.TrimSpace(cfg.PhoneNumberID),
		httpClient:    &http.Client{Timeout: timeout},
		now:           time.Now,
		maxBodyBytes:  16 * 1024,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// SendTemplate submits one templated message to the messages endpoint.
func (p *CloudProvider) SendTemplate(ctx context.Context, payload *TemplatePayload) (*SendResult, error) {
	if payload == nil {
		return nil, errors.New("whatsapp provider: payload is required")
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("whatsapp provider: recipient is required")
	}

	body, err := json.Marshal(buildWireMessage(payload))
	if err != nil {
		return nil, fmt.Errorf("whatsapp provider: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", p.baseURL, p.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("whatsapp provider: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp provider: http do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := p.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	parsed := parseCloudBody(raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			HTTPStatus: resp.StatusCode,
			Code:       parsed.errorCode,
			Type:       parsed.errorType,
			Message:    parsed.errorMessage,
			Raw:        raw,
		}
	}
	if parsed.messageID == "" {
		return nil, &ProviderError{
			HTTPStatus: resp.StatusCode,
			Message:    "response carried no message id",
			Raw:        raw,
		}
	}

	return &SendResult{
		MessageID:  parsed.messageID,
		HTTPStatus: resp.StatusCode,
		Raw:        raw,
		Timestamp:  p.now(),
	}, nil
}

// CheckConnection probes the account-identity endpoint with the same bearer
// token. A nil return means the credentials reached the provider.
func (p *CloudProvider) CheckConnection(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/%s", p.baseURL, p.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("whatsapp provider: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp provider: http do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := p.readBody(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		parsed := parseCloudBody(raw)
		perr := &ProviderError{
			HTTPStatus: resp.StatusCode,
			Code:       parsed.errorCode,
			Type:       parsed.errorType,
			Message:    parsed.errorMessage,
			Raw:        raw,
		}
		p.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", raw).
			Msg("whatsapp provider: connection check failed")
		return perr
	}
	return nil
}

func (p *CloudProvider) readBody(rc io.ReadCloser) (string, error) {
	if rc == nil {
		return "", nil
	}
	limit := p.maxBodyBytes
	if limit <= 0 {
		limit = 16 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return "", fmt.Errorf("whatsapp provider: read body: %w", err)
	}
	return string(data), nil
}

// Wire types mirror the Cloud API message schema.

type wireMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         wireTemplate `json:"template"`
}

type wireTemplate struct {
	Name       string          `json:"name"`
	Language   wireLanguage    `json:"language"`
	Components []wireComponent `json:"components,omitempty"`
}

type wireLanguage struct {
	Code string `json:"code"`
}

type wireComponent struct {
	Type       string          `json:"type"`
	Parameters []wireParameter `json:"parameters,omitempty"`
	Buttons    []wireButton    `json:"buttons,omitempty"`
}

type wireParameter struct {
	Type          string     `json:"type"`
	ParameterName string     `json:"parameter_name,omitempty"`
	Text          string     `json:"text,omitempty"`
	Document      *wireMedia `json:"document,omitempty"`
	Image         *wireMedia `json:"image,omitempty"`
}

type wireMedia struct {
	Link     string `json:"link"`
	Filename string `json:"filename,omitempty"`
}

type wireButton struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

func buildWireMessage(payload *TemplatePayload) wireMessage {
	msg := wireMessage{
		MessagingProduct: "whatsapp",
		To:               payload.To,
		Type:             "template",
		Template: wireTemplate{
			Name:     payload.Template.Name,
			Language: wireLanguage{Code: payload.Template.Language},
		},
	}
	for _, comp := range payload.Components {
		wc := wireComponent{Type: comp.Type}
		for _, param := range comp.Parameters {
			wp := wireParameter{Type: param.Type, ParameterName: param.Name}
			switch {
			case param.Document != nil && param.Type == models.ParamTypeDocument:
				wp.Document = &wireMedia{Link: param.Document.Link, Filename: param.Document.Filename}
			case param.Document != nil && param.Type == models.ParamTypeImage:
				wp.Image = &wireMedia{Link: param.Document.Link}
			default:
				wp.Text = param.Text
			}
			wc.Parameters = append(wc.Parameters, wp)
		}
		for _, btn := range comp.Buttons {
			wc.Buttons = append(wc.Buttons, wireButton{Type: "quick_reply", ID: btn.ID, Title: btn.Title})
		}
		msg.Template.Components = append(msg.Template.Components, wc)
	}
	return msg
}

type cloudBody struct {
	messageID    string
	errorCode    int
	errorType    string
	errorMessage string
}

func parseCloudBody(raw string) cloudBody {
	if strings.TrimSpace(raw) == "" {
		return cloudBody{}
	}

	var parsed struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return cloudBody{}
	}

	out := cloudBody{}
	if len(parsed.Messages) > 0 {
		out.messageID = parsed.Messages[0].ID
	}
	if parsed.Error != nil {
		out.errorCode = parsed.Error.Code
		out.errorType = parsed.Error.Type
		out.errorMessage = parsed.Error.Message
	}
	return out
}
