// Package normalize provides locale-aware canonicalization for labels and
// values found in purchase-request documents: Turkish case folding, diacritic
// stripping, TR/EN number and date parsing, currency detection, and the
// synonym dictionary used for fast-path field lookup.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/teklifbul/intake/internal/model"
)

var (
	trLower  = cases.Lower(language.Turkish)
	stripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// LowerTR lowercases s with Turkish casing rules (İ→i, I→ı) and strips
// diacritics, folding the result to plain ASCII letters where possible.
func LowerTR(s string) string {
	if s == "" {
		return ""
	}
	s = trLower.String(s)
	if out, _, err := transform.String(stripper, s); err == nil {
		s = out
	}
	// Dotless ı survives NFD stripping; fold it so keys compare in ASCII.
	return strings.Map(func(r rune) rune {
		if r == 'ı' {
			return 'i'
		}
		return r
	}, s)
}

const punctuation = "\"'`~!@#$%^&*()[]{}<>|\\/:;.,?+=_-"

// Key produces the canonical comparison key for a label: Turkish lowercase,
// diacritics stripped, punctuation removed, whitespace collapsed. Idempotent.
func Key(raw string) string {
	s := LowerTR(raw)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

var (
	currencyTokens = regexp.MustCompile(`(?i)TL|₺|TRY|USD|EUR|GBP|\$`)
	dotGrouped     = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	thousandsSeps  = strings.NewReplacer(".", "", " ", "", " ", "")
)

// ParseNumber parses a number written with either comma or dot as the decimal
// separator. When both are present the one appearing last is the decimal
// separator; a lone comma is decimal; a lone dot grouping digits in threes is
// a thousands separator. Returns nil on malformed input.
func ParseNumber(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	s = strings.ReplaceAll(s, "%", "")
	s = strings.TrimSpace(currencyTokens.ReplaceAllString(s, ""))
	if s == "" {
		return nil
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// "1.234,56" -> "1234.56"
			s = strings.Replace(thousandsSeps.Replace(s), ",", ".", 1)
		} else {
			// "1,234.56" -> "1234.56"
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	case dotGrouped.MatchString(s):
		// "1.234" -> "1234"
		s = strings.ReplaceAll(s, ".", "")
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return nil
	}
	return &n
}

// dateFormats is tried in order; the first valid match wins.
var dateFormats = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
}

// ParseDate parses a date across the fixed format list and returns an ISO
// 8601 date string, or "" when no format matches.
func ParseDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

var currencyMap = map[string]string{
	"tl": "TRY", "try": "TRY", "₺": "TRY",
	"usd": "USD", "$": "USD", "dolar": "USD",
	"eur": "EUR", "euro": "EUR", "€": "EUR",
	"gbp": "GBP", "£": "GBP",
}

// DetectCurrency detects an ISO 4217 code from a currency symbol or word.
// Returns "" when nothing is recognized.
func DetectCurrency(raw string) string {
	if raw == "" {
		return ""
	}
	s := LowerTR(raw)
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || r == '₺' || r == '$' || r == '€' || r == '£' {
			return r
		}
		return -1
	}, s)
	return currencyMap[s]
}

// Enrich derives every interpretation of a raw cell value once.
func Enrich(raw string) model.CandidateValue {
	cv := model.CandidateValue{
		Raw:        raw,
		Normalized: Key(raw),
		Date:       ParseDate(raw),
		Currency:   DetectCurrency(raw),
	}
	cv.Number = ParseNumber(raw)
	return cv
}
