package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/example/campaign-dispatcher/internal/models"
)

// Component type constants used when assembling a template payload.
const (
	ComponentHeader  = "header"
	ComponentBody    = "body"
	ComponentButtons = "buttons"
)

// ComponentParameter is one typed value inside a template component.
type ComponentParameter struct {
	Type     string
	Name     string
	Text     string
	Document *models.DocumentRef
}

// ButtonSpec is a fully resolved interactive button: a stable synthetic id
// plus a display title.
type ButtonSpec struct {
	ID    string
	Title string
}

// Component is one ordered slice of a template message: header parameters,
// body parameters, or the trailing button block.
type Component struct {
	Type       string
	Parameters []ComponentParameter
	Buttons    []ButtonSpec
}

// TemplatePayload is the structured outbound message request handed to a
// provider. The target address is expected to be normalized already.
type TemplatePayload struct {
	To         string
	Template   models.TemplateRef
	Components []Component
}

// SendResult captures a successful provider response.
type SendResult struct {
	MessageID  string
	HTTPStatus int
	Raw        string
	Timestamp  time.Time
}

// ProviderError is the structured failure a provider surfaces: the provider
// error body when one was present, otherwise a generic description plus the
// HTTP status. It is the tagged counterpart of SendResult.
type ProviderError struct {
	HTTPStatus int
	Code       int
	Type       string
	Message    string
	Raw        string
}

// Error renders the most specific detail available.
func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("whatsapp provider: error %d (%s): %s", e.Code, e.Type, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("whatsapp provider: http %d: %s", e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("whatsapp provider: http %d", e.HTTPStatus)
}

// Provider represents the outbound WhatsApp transport boundary.
type Provider interface {
	// SendTemplate submits one templated message. On success the result
	// carries the provider-assigned message id; on failure the error carries
	// whatever payload the transport surfaced.
	SendTemplate(ctx context.Context, payload *TemplatePayload) (*SendResult, error)
	// CheckConnection performs a preflight call against the provider's
	// account-identity endpoint using the configured credentials.
	CheckConnection(ctx context.Context) error
}
