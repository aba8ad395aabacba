// Package dispatch builds one outbound request per recipient and submits it
// through the provider boundary, returning a per-recipient outcome. A
// dispatch never raises past its own boundary: every failure mode is folded
// into the Failure variant of the outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/campaign-dispatcher/internal/models"
	"github.com/example/campaign-dispatcher/internal/phone"
	waprovider "github.com/example/campaign-dispatcher/internal/providers/whatsapp"
)

// Dispatcher converts bound template parameters into a provider payload and
// records the terminal outcome for each recipient.
type Dispatcher struct {
	provider   waprovider.Provider
	normalizer *phone.Normalizer
	template   models.TemplateRef
	buttons    []models.Button
	logger     zerolog.Logger
	now        func() time.Time
}

// Options configures a Dispatcher.
type Options struct {
	Template models.TemplateRef
	Buttons  []models.Button
	Now      func() time.Time
}

// New constructs a Dispatcher.
func New(provider waprovider.Provider, normalizer *phone.Normalizer, opts Options, logger zerolog.Logger) (*Dispatcher, error) {
	if provider == nil {
		return nil, errors.New("dispatch: provider dependency is required")
	}
	if normalizer == nil {
		return nil, errors.New("dispatch: normalizer dependency is required")
	}
	if opts.Template.Name == "" {
		return nil, errors.New("dispatch: template name is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		provider:   provider,
		normalizer: normalizer,
		template:   opts.Template,
		buttons:    append([]models.Button(nil), opts.Buttons...),
		logger:     logger,
		now:        now,
	}, nil
}

// Dispatch sends one templated message. The recipient address is
// re-normalized defensively; when even the lenient pass rejects it, the
// cleaned value is sent as-is and the provider verdict decides.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient models.Recipient, params []models.TemplateParameter) models.DispatchOutcome {
	target, err := d.normalizer.Normalize(recipient.Phone)
	if err != nil {
		target = phone.Clean(recipient.Phone)
		d.logger.Debug().
			Str("phone", recipient.Phone).
			Err(err).
			Msg("dispatch: send-time normalization rejected value, passing through cleaned")
	}

	payload := &waprovider.TemplatePayload{
		To:         target,
		Template:   d.template,
		Components: buildComponents(params, d.buttons),
	}

	result, err := d.provider.SendTemplate(ctx, payload)
	if err != nil {
		detail := errorDetail(err)
		d.logger.Warn().
			Str("phone", target).
			Str("template", d.template.Name).
			Str("error", detail).
			Msg("dispatch: send failed")
		return models.DispatchOutcome{
			Phone:     target,
			Status:    models.OutcomeFailed,
			Error:     detail,
			Timestamp: d.now(),
		}
	}

	d.logger.Debug().
		Str("phone", target).
		Str("message_id", result.MessageID).
		Msg("dispatch: send succeeded")
	return models.DispatchOutcome{
		Phone:     target,
		Status:    models.OutcomeSent,
		MessageID: result.MessageID,
		Timestamp: d.now(),
	}
}

// buildComponents groups the ordered parameter sequence into provider
// components: header parameters first, then body parameters, then the
// optional trailing button block.
func buildComponents(params []models.TemplateParameter, buttons []models.Button) []waprovider.Component {
	var header, body []waprovider.ComponentParameter
	for _, p := range params {
		cp := waprovider.ComponentParameter{
			Type:     p.Type,
			Name:     p.Name,
			Text:     p.Value,
			Document: p.Document,
		}
		if p.Placement == models.PlacementHeader {
			header = append(header, cp)
		} else {
			body = append(body, cp)
		}
	}

	var components []waprovider.Component
	if len(header) > 0 {
		components = append(components, waprovider.Component{Type: waprovider.ComponentHeader, Parameters: header})
	}
	if len(body) > 0 {
		components = append(components, waprovider.Component{Type: waprovider.ComponentBody, Parameters: body})
	}
	if len(buttons) > 0 {
		specs := make([]waprovider.ButtonSpec, 0, len(buttons))
		for i, btn := range buttons {
			title := btn.Title
			if title == "" {
				title = fmt.Sprintf("Button %d", i+1)
			}
			specs = append(specs, waprovider.ButtonSpec{
				ID:    fmt.Sprintf("btn_%d", i),
				Title: title,
			})
		}
		components = append(components, waprovider.Component{Type: waprovider.ComponentButtons, Buttons: specs})
	}
	return components
}

func errorDetail(err error) string {
	var perr *waprovider.ProviderError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	return err.Error()
}
