// Package phone validates and canonicalizes recipient phone numbers into the
// addressing format the messaging provider expects: the country code followed
// by the national mobile number, digits only.
package phone

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidNumber is returned by strict validation when a number fails
	// shape checks (length, leading digit, non-numeric characters).
	ErrInvalidNumber = errors.New("invalid phone number")
	// ErrUnrecognizedNumber is returned by lenient normalization when a
	// cleaned value is neither already prefixed nor a bare national mobile
	// number. It is distinct from the already-prefixed case on purpose.
	ErrUnrecognizedNumber = errors.New("unrecognized phone number format")
)

// Rules describes the national numbering shape used for canonicalization.
type Rules struct {
	CountryCode    string
	NationalLength int
	MobilePrefix   string
}

// DefaultRules covers Colombian mobile numbers: country code 57, ten-digit
// national numbers with a leading 3.
func DefaultRules() Rules {
	return Rules{CountryCode: "57", NationalLength: 10, MobilePrefix: "3"}
}

// Normalizer canonicalizes raw phone strings under a set of Rules.
type Normalizer struct {
	rules Rules
}

// New constructs a Normalizer, falling back to DefaultRules for zero fields.
func New(rules Rules) *Normalizer {
	def := DefaultRules()
	if strings.TrimSpace(rules.CountryCode) == "" {
		rules.CountryCode = def.CountryCode
	}
	if rules.NationalLength <= 0 {
		rules.NationalLength = def.NationalLength
	}
	if strings.TrimSpace(rules.MobilePrefix) == "" {
		rules.MobilePrefix = def.MobilePrefix
	}
	return &Normalizer{rules: rules}
}

// Rules returns the numbering rules in effect.
func (n *Normalizer) Rules() Rules { return n.rules }

// Clean strips whitespace, hyphens, parentheses and a leading plus sign. It
// performs no validation.
func Clean(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	return strings.TrimPrefix(cleaned, "+")
}

// Normalize is the lenient, dispatch-time canonicalization. Values already
// carrying the country code pass through unchanged; bare national mobile
// numbers get the country code prepended exactly once; anything else is
// rejected with ErrUnrecognizedNumber. Normalize is idempotent for values it
// accepts.
func (n *Normalizer) Normalize(raw string) (string, error) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return "", fmt.Errorf("%w: value is empty", ErrUnrecognizedNumber)
	}

	full := len(n.rules.CountryCode) + n.rules.NationalLength
	if strings.HasPrefix(cleaned, n.rules.CountryCode) && len(cleaned) == full {
		return cleaned, nil
	}
	if n.isNationalMobile(cleaned) {
		return n.rules.CountryCode + cleaned, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognizedNumber, cleaned)
}

// ValidateStrict is the ingestion-time variant. On top of the lenient policy
// it enforces digits-only content, total length and the mobile leading digit
// of the national part, and rejects anything non-conforming outright.
func (n *Normalizer) ValidateStrict(raw string) (string, error) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidNumber)
	}
	if !digitsOnly(cleaned) {
		return "", fmt.Errorf("%w: %q contains non-numeric characters", ErrInvalidNumber, cleaned)
	}

	full := len(n.rules.CountryCode) + n.rules.NationalLength
	if strings.HasPrefix(cleaned, n.rules.CountryCode) && len(cleaned) == full {
		national := cleaned[len(n.rules.CountryCode):]
		if !strings.HasPrefix(national, n.rules.MobilePrefix) {
			return "", fmt.Errorf("%w: %q is not a mobile number", ErrInvalidNumber, cleaned)
		}
		return cleaned, nil
	}
	if n.isNationalMobile(cleaned) {
		return n.rules.CountryCode + cleaned, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidNumber, cleaned)
}

func (n *Normalizer) isNationalMobile(cleaned string) bool {
	return len(cleaned) == n.rules.NationalLength &&
		strings.HasPrefix(cleaned, n.rules.MobilePrefix) &&
		digitsOnly(cleaned)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
