// Package scorer computes confidence scores for candidate label/value pairs
// against canonical target fields. The composite score blends string
// similarity, value-type confidence, and per-field rule heuristics.
package scorer

import (
	"strings"

	"github.com/adrg/strutil/metrics"

	"github.com/teklifbul/intake/internal/model"
	"github.com/teklifbul/intake/internal/normalize"
)

// CandidateScore is the result of scoring one (field, label, value) triple.
type CandidateScore struct {
	Score      float64    `json:"score"`
	Components Components `json:"components"`
}

// Components breaks the composite score into its weighted sub-scores.
type Components struct {
	String float64 `json:"string"`
	Type   float64 `json:"type"`
	Rule   float64 `json:"rule"`
}

var (
	lev = metrics.NewLevenshtein()
	jw  = metrics.NewJaroWinkler()
)

// StringSimilarity returns the mean of a normalized Levenshtein similarity
// and a Jaro-Winkler similarity over the canonical keys of a and b.
// Symmetric, bounded to [0,1]; empty inputs score 0.
func StringSimilarity(a, b string) float64 {
	ka := normalize.Key(a)
	kb := normalize.Key(b)
	if ka == "" || kb == "" {
		return 0
	}
	s := 0.5*levSimilarity(ka, kb) + 0.5*jw.Compare(ka, kb)
	return clamp01(s)
}

func levSimilarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(lev.Distance(a, b))/float64(maxLen)
}

// typeConfidence checks whether the candidate value's derived interpretation
// matches the kind of value the field expects.
func typeConfidence(field model.TargetField, cand model.CandidateValue) float64 {
	switch field {
	case model.FieldQty, model.FieldUnitPriceExcl, model.FieldVatPct:
		if cand.Number != nil {
			return 1
		}
		return 0
	case model.FieldDemandDate, model.FieldDueDate, model.FieldDeliveryDate:
		if cand.Date != "" {
			return 1
		}
		return 0
	case model.FieldCurrency:
		if cand.Currency != "" {
			return 1
		}
		return 0
	default:
		if strings.TrimSpace(cand.Raw) != "" {
			return 0.3
		}
		return 0
	}
}

// ruleConfidence applies per-field substring heuristics against the
// normalized label. These encode established Turkish procurement vocabulary
// and can dominate when the label is a synonym rather than the field's name.
func ruleConfidence(field model.TargetField, label string, cand model.CandidateValue) float64 {
	key := normalize.Key(label)
	if key == "" {
		return 0
	}
	contains := func(tok string) bool { return strings.Contains(key, tok) }

	switch field {
	case model.FieldQty:
		if contains("miktar") || contains("adet") {
			return 1
		}
		return 0
	case model.FieldUnit:
		if contains("birim") {
			return 1
		}
		return 0.6
	case model.FieldUnitPriceExcl:
		if contains("birim fiyat") || contains("fiyat") {
			return 0.8
		}
		return 0.2
	case model.FieldVatPct:
		if contains("kdv") {
			return 1
		}
		return 0
	case model.FieldCurrency:
		if contains("para birimi") || contains("pb") {
			return 1
		}
		return 0
	case model.FieldRequester:
		if contains("talep eden") || contains("istek") {
			return 0.9
		}
		return 0
	case model.FieldDemandDate:
		if contains("talep tarihi") {
			return 1
		}
		return 0
	case model.FieldDueDate:
		if contains("termin") || contains("istenen tarih") {
			return 1
		}
		return 0
	case model.FieldTitle:
		if contains("baslik") {
			return 0.8
		}
		return 0.2
	default:
		if strings.TrimSpace(cand.Raw) != "" {
			return 0.2
		}
		return 0
	}
}

// Score computes the composite confidence that label/cand represents field.
// Deterministic: identical inputs always yield identical scores.
func Score(field model.TargetField, label string, cand model.CandidateValue, w Weights) CandidateScore {
	w = w.orDefault()

	c := Components{
		String: StringSimilarity(label, string(field)),
		Type:   typeConfidence(field, cand),
		Rule:   ruleConfidence(field, label, cand),
	}
	total := c.String*w.String + c.Type*w.Type + c.Rule*w.Rule

	return CandidateScore{Score: clamp01(total), Components: c}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
