package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/campaign-dispatcher/internal/dispatch"
	"github.com/example/campaign-dispatcher/internal/models"
	"github.com/example/campaign-dispatcher/internal/phone"
	waprovider "github.com/example/campaign-dispatcher/internal/providers/whatsapp"
	"github.com/example/campaign-dispatcher/internal/scheduler"
)

// End-to-end over the real dispatcher and the mock provider: one recipient
// fails at the provider, the run completes and the books balance.
func TestRunThroughDispatcher(t *testing.T) {
	provider := waprovider.NewMockProvider(zerolog.Nop(),
		waprovider.WithFailingNumbers("573000000002"))

	dispatcher, err := dispatch.New(provider, phone.New(phone.DefaultRules()), dispatch.Options{
		Template: models.TemplateRef{Name: "promo_october", Language: "es"},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected dispatcher error: %v", err)
	}

	binder := dispatch.AttributeBinder("name")
	sched, err := scheduler.New(scheduler.Config{
		MaxMessagesPerSecond: 10000,
		BatchSize:            2,
		BatchPause:           time.Millisecond,
	}, dispatcher, binder, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected scheduler error: %v", err)
	}

	list := []models.Recipient{
		{Phone: "3000000001", Attributes: map[string]string{"name": "Ana"}},
		{Phone: "3000000002", Attributes: map[string]string{"name": "Luis"}},
		{Phone: "3000000003", Attributes: map[string]string{"name": "Mia"}},
	}

	outcomes, stats := sched.Run(context.Background(), list)
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if stats.Sent != 2 || stats.Failed != 1 || stats.Total != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.Errors) != 1 || stats.Errors[0].Phone != "573000000002" {
		t.Fatalf("error log missing failing recipient: %+v", stats.Errors)
	}

	for _, o := range outcomes {
		if o.Sent() && o.MessageID == "" {
			t.Fatalf("success outcome without message id: %+v", o)
		}
		if !o.Sent() && o.Error == "" {
			t.Fatalf("failure outcome without detail: %+v", o)
		}
	}

	// Successful payloads carried the bound body parameter.
	for _, payload := range provider.Sent() {
		if len(payload.Components) != 1 || payload.Components[0].Type != waprovider.ComponentBody {
			t.Fatalf("expected body component on payload, got %+v", payload.Components)
		}
	}
}
