package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/campaign-dispatcher/internal/models"
)

type stubHTTPClient struct {
	status   int
	body     string
	err      error
	lastReq  *http.Request
	lastBody []byte
}

func (c *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.lastReq = req
	if req.Body != nil {
		c.lastBody, _ = io.ReadAll(req.Body)
	}
	if c.err != nil {
		return nil, c.err
	}
	return &http.Response{
		StatusCode: c.status,
		Body:       io.NopCloser(strings.NewReader(c.body)),
	}, nil
}

func newCloud(t *testing.T, client HTTPClient) *CloudProvider {
	t.Helper()
	p, err := NewCloudProvider(CloudConfig{
		BaseURL:       "https://graph.example.com/v18.0",
		AccessToken:   "token-123",
		PhoneNumberID: "111222333",
	}, zerolog.Nop(), WithHTTPClient(client))
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return p
}

func samplePayload() *TemplatePayload {
	return &TemplatePayload{
		To:       "573001234567",
		Template: models.TemplateRef{Name: "promo_october", Language: "es"},
		Components: []Component{
			{Type: ComponentBody, Parameters: []ComponentParameter{
				{Type: "text", Name: "customer_name", Text: "Ana"},
			}},
			{Type: ComponentButtons, Buttons: []ButtonSpec{{ID: "btn_0", Title: "Button 1"}}},
		},
	}
}

func TestSendTemplateSuccess(t *testing.T) {
	client := &stubHTTPClient{status: 200, body: `{"messaging_product":"whatsapp","messages":[{"id":"wamid.ABC123"}]}`}
	p := newCloud(t, client)

	result, err := p.SendTemplate(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MessageID != "wamid.ABC123" {
		t.Fatalf("expected provider message id, got %q", result.MessageID)
	}

	if got := client.lastReq.URL.String(); got != "https://graph.example.com/v18.0/111222333/messages" {
		t.Fatalf("unexpected endpoint: %s", got)
	}
	if auth := client.lastReq.Header.Get("Authorization"); auth != "Bearer token-123" {
		t.Fatalf("unexpected authorization header: %q", auth)
	}

	var wire map[string]any
	if err := json.Unmarshal(client.lastBody, &wire); err != nil {
		t.Fatalf("request body is not json: %v", err)
	}
	if wire["messaging_product"] != "whatsapp" || wire["to"] != "573001234567" {
		t.Fatalf("unexpected wire message: %v", wire)
	}
}

func TestSendTemplateProviderError(t *testing.T) {
	client := &stubHTTPClient{status: 400, body: `{"error":{"message":"template not found","type":"GraphMethodException","code":132001}}`}
	p := newCloud(t, client)

	_, err := p.SendTemplate(context.Background(), samplePayload())
	if err == nil {
		t.Fatalf("expected error for 400 response")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if perr.Code != 132001 || perr.Message != "template not found" {
		t.Fatalf("provider error body not parsed: %+v", perr)
	}
}

func TestSendTemplateMalformedSuccessBody(t *testing.T) {
	client := &stubHTTPClient{status: 200, body: `{"messaging_product":"whatsapp"}`}
	p := newCloud(t, client)

	_, err := p.SendTemplate(context.Background(), samplePayload())
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError for missing message id, got %v", err)
	}
}

func TestSendTemplateNetworkError(t *testing.T) {
	client := &stubHTTPClient{err: errors.New("connection refused")}
	p := newCloud(t, client)

	if _, err := p.SendTemplate(context.Background(), samplePayload()); err == nil {
		t.Fatalf("expected network error to surface")
	}
}

func TestCheckConnection(t *testing.T) {
	client := &stubHTTPClient{status: 200, body: `{"id":"111222333","display_phone_number":"+57 300 0000000"}`}
	p := newCloud(t, client)

	if err := p.CheckConnection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := client.lastReq.URL.String(); got != "https://graph.example.com/v18.0/111222333" {
		t.Fatalf("unexpected identity endpoint: %s", got)
	}

	client.status = 401
	client.body = `{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`
	err := p.CheckConnection(context.Background())
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Code != 190 {
		t.Fatalf("expected parsed provider error, got %v", err)
	}
}

func TestNewCloudProviderRequiresCredentials(t *testing.T) {
	if _, err := NewCloudProvider(CloudConfig{PhoneNumberID: "1"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing token")
	}
	if _, err := NewCloudProvider(CloudConfig{AccessToken: "t"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing phone number id")
	}
}
