// Package ingest loads recipient lists from CSV files. The phone column is
// mandatory; every other column is carried along as a free-form attribute for
// template parameter binding.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/campaign-dispatcher/internal/models"
	"github.com/example/campaign-dispatcher/internal/phone"
)

// ErrPhoneColumnMissing is returned when the header row lacks the configured
// phone column. The loader reports it alongside an empty recipient set so the
// caller can degrade to a no-op run instead of aborting.
var ErrPhoneColumnMissing = errors.New("ingest: phone column missing")

// Loader reads recipient CSV files, validating addresses strictly as rows
// are consumed.
type Loader struct {
	normalizer *phone.Normalizer
	logger     zerolog.Logger
}

// NewLoader constructs a Loader around the supplied normalizer.
func NewLoader(normalizer *phone.Normalizer, logger zerolog.Logger) (*Loader, error) {
	if normalizer == nil {
		return nil, errors.New("ingest: normalizer dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Loader{normalizer: normalizer, logger: logger}, nil
}

// LoadCSV reads the file at path and returns the ordered recipient list.
// Rows whose phone value fails strict validation are excluded and logged. A
// missing phone column yields an empty list plus ErrPhoneColumnMissing.
func (l *Loader) LoadCSV(path, phoneColumn string) ([]models.Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	return l.load(f, path, phoneColumn)
}

func (l *Loader) load(r io.Reader, path, phoneColumn string) ([]models.Recipient, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Attribute columns vary per campaign file.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", ErrPhoneColumnMissing, path)
		}
		return nil, fmt.Errorf("ingest: read header: %w", err)
	}

	phoneIdx := -1
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
		if strings.EqualFold(header[i], phoneColumn) {
			phoneIdx = i
		}
	}
	if phoneIdx < 0 {
		return nil, fmt.Errorf("%w: column %q not found in %s", ErrPhoneColumnMissing, phoneColumn, path)
	}

	var recipients []models.Recipient
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			l.logger.Warn().Int("line", line).Err(err).Msg("ingest: skipping malformed row")
			continue
		}
		if phoneIdx >= len(row) {
			l.logger.Warn().Int("line", line).Msg("ingest: row has no phone value")
			continue
		}

		normalized, err := l.normalizer.ValidateStrict(row[phoneIdx])
		if err != nil {
			l.logger.Warn().
				Int("line", line).
				Str("phone", strings.TrimSpace(row[phoneIdx])).
				Err(err).
				Msg("ingest: recipient excluded by validation")
			continue
		}

		attrs := make(map[string]string)
		for i, val := range row {
			if i == phoneIdx || i >= len(header) || header[i] == "" {
				continue
			}
			val = strings.TrimSpace(val)
			if val != "" {
				attrs[header[i]] = val
			}
		}
		if len(attrs) == 0 {
			attrs = nil
		}

		recipients = append(recipients, models.Recipient{Phone: normalized, Attributes: attrs})
	}

	l.logger.Info().
		Str("path", path).
		Int("loaded", len(recipients)).
		Msg("ingest: recipient list loaded")
	return recipients, nil
}
