package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/campaign-dispatcher/internal/phone"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipients.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func newLoader(t *testing.T) *Loader {
	t.Helper()
	loader, err := NewLoader(phone.New(phone.DefaultRules()), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return loader
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, "phone,name,city\n3001234567,Ana,Bogota\n573002223344,Luis,Cali\n")
	loader := newLoader(t)

	recipients, err := loader.LoadCSV(path, "phone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(recipients))
	}
	if recipients[0].Phone != "573001234567" {
		t.Fatalf("expected normalized phone, got %q", recipients[0].Phone)
	}
	if recipients[0].Attribute("name") != "Ana" || recipients[0].Attribute("city") != "Bogota" {
		t.Fatalf("unexpected attributes: %+v", recipients[0].Attributes)
	}
	if recipients[1].Phone != "573002223344" {
		t.Fatalf("expected pass-through phone, got %q", recipients[1].Phone)
	}
}

func TestLoadCSVExcludesInvalidRows(t *testing.T) {
	path := writeCSV(t, "phone,name\n3001234567,Ana\n99999,Bad\n4001234567,Wrong\n")
	loader := newLoader(t)

	recipients, err := loader.LoadCSV(path, "phone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipients) != 1 {
		t.Fatalf("expected invalid rows excluded, got %d recipients", len(recipients))
	}
	if recipients[0].Attribute("name") != "Ana" {
		t.Fatalf("wrong surviving recipient: %+v", recipients[0])
	}
}

func TestLoadCSVMissingPhoneColumn(t *testing.T) {
	path := writeCSV(t, "name,city\nAna,Bogota\n")
	loader := newLoader(t)

	recipients, err := loader.LoadCSV(path, "phone")
	if !errors.Is(err, ErrPhoneColumnMissing) {
		t.Fatalf("expected ErrPhoneColumnMissing, got %v", err)
	}
	if len(recipients) != 0 {
		t.Fatalf("expected empty recipient list, got %d", len(recipients))
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	loader := newLoader(t)
	if _, err := loader.LoadCSV(filepath.Join(t.TempDir(), "absent.csv"), "phone"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
