package mapper

import (
	"math"
	"sort"
	"strings"

	"github.com/teklifbul/intake/internal/model"
	"github.com/teklifbul/intake/internal/normalize"
	"github.com/teklifbul/intake/internal/scorer"
)

// columnLabels returns the header labels the assignment works over; when the
// reader found no headers the first matrix row stands in.
func columnLabels(doc *model.RawDocument) []string {
	if len(doc.Headers) > 0 {
		return doc.Headers
	}
	if len(doc.Matrix) > 0 {
		return doc.Matrix[0]
	}
	return nil
}

// sampleValue picks the first non-blank cell of a column as the value
// evidence for type confidence.
func sampleValue(doc *model.RawDocument, column int) model.CandidateValue {
	for _, row := range doc.Matrix {
		if column < len(row) && strings.TrimSpace(row[column]) != "" {
			return normalize.Enrich(row[column])
		}
	}
	return normalize.Enrich("")
}

// synonymScore is the floor assigned when a label is an exact dictionary
// synonym of the field. It outranks any fuzzy composite short of certainty.
const synonymScore = 0.95

// fieldScore blends the fuzzy composite with the exact-synonym fast path and
// the submitter alias boost.
func (m *Mapper) fieldScore(field model.TargetField, label string, cand model.CandidateValue, aliases map[string]struct{}) float64 {
	score := scorer.Score(field, label, cand, m.cfg.Weights).Score
	if f, ok := normalize.SynonymField(label); ok && f == field {
		score = math.Max(score, synonymScore)
	}
	return m.boost(score, label, aliases)
}

// assignColumns scores every (item field, column) pair and greedily accepts
// triples in descending score order so that no field and no column is
// claimed twice. This is the uniqueness-enforcing step the spreadsheet
// reader intentionally defers.
func (m *Mapper) assignColumns(doc *model.RawDocument, aliases map[string]struct{}) []model.ColumnAssignment {
	labels := columnLabels(doc)
	if len(labels) == 0 {
		return nil
	}

	var best []model.ColumnAssignment
	for _, field := range model.ItemFields() {
		candidate := model.ColumnAssignment{Column: -1}
		for col, label := range labels {
			score := m.fieldScore(field, label, sampleValue(doc, col), aliases)
			if candidate.Column == -1 || score > candidate.Score {
				candidate = model.ColumnAssignment{Field: field, Column: col, Score: score}
			}
		}
		if candidate.Column >= 0 {
			best = append(best, candidate)
		}
	}

	sort.SliceStable(best, func(i, j int) bool { return best[i].Score > best[j].Score })

	usedColumns := make(map[int]struct{}, len(best))
	accepted := best[:0]
	for _, a := range best {
		if _, taken := usedColumns[a.Column]; taken {
			continue
		}
		usedColumns[a.Column] = struct{}{}
		accepted = append(accepted, a)
	}
	return accepted
}

// boost adds the alias boost when the label exactly matches a remembered
// alias for this submitter, capped at 1.0.
func (m *Mapper) boost(score float64, label string, aliases map[string]struct{}) float64 {
	if len(aliases) == 0 {
		return score
	}
	if _, ok := aliases[normalize.Key(label)]; ok {
		return math.Min(1, score+m.cfg.AliasBoost)
	}
	return score
}

// mapDemandFields picks the best-scoring field candidate per demand field and
// fills title/currency fallbacks from the reader's best-effort demand object.
func (m *Mapper) mapDemandFields(doc *model.RawDocument, aliases map[string]struct{}, result *model.MappingResult) {
	for _, field := range model.DemandFields() {
		var (
			bestScore float64
			bestCand  *model.FieldCandidate
		)
		for i := range doc.FieldCandidates {
			cand := &doc.FieldCandidates[i]
			score := m.fieldScore(field, cand.Label, normalize.Enrich(cand.Value), aliases)
			if bestCand == nil || score > bestScore {
				bestScore, bestCand = score, cand
			}
		}
		if bestCand == nil {
			continue
		}

		result.Demand[field] = model.FieldResult{
			Value:       m.demandValue(field, bestCand.Value, doc),
			Confidence:  bestScore,
			NeedsReview: bestScore < m.cfg.ReviewThreshold,
			SourceLabel: bestCand.Label,
		}
	}

	if _, ok := result.Demand[model.FieldTitle]; !ok && doc.Demand.Title != "" {
		result.Demand[model.FieldTitle] = model.FieldResult{
			Value: doc.Demand.Title, Confidence: 0.9, SourceLabel: "title",
		}
	}
	if _, ok := result.Demand[model.FieldCurrency]; !ok && doc.Demand.Currency != "" {
		result.Demand[model.FieldCurrency] = model.FieldResult{
			Value: doc.Demand.Currency, Confidence: 0.6, SourceLabel: "currency",
		}
	}
}

// demandValue converts a winning candidate value per field kind.
func (m *Mapper) demandValue(field model.TargetField, raw string, doc *model.RawDocument) any {
	switch field {
	case model.FieldDemandDate, model.FieldDueDate:
		if iso := normalize.ParseDate(raw); iso != "" {
			return iso
		}
		return raw
	case model.FieldCurrency:
		if cc := normalize.DetectCurrency(raw); cc != "" {
			return cc
		}
		v := strings.TrimSpace(raw)
		if v == "" {
			v = doc.Demand.Currency
		}
		if v == "" {
			v = m.cfg.DefaultCurrency
		}
		return strings.ToUpper(v)
	case model.FieldTitle:
		if strings.TrimSpace(raw) == "" {
			return doc.Demand.Title
		}
		return raw
	default:
		return raw
	}
}

// materializeItems builds one item per matrix row from the accepted column
// assignments. When the reader produced no matrix it falls back to the
// reader's own items at a flat low confidence.
func (m *Mapper) materializeItems(doc *model.RawDocument, assignments []model.ColumnAssignment) []model.ItemResult {
	if len(doc.Matrix) == 0 {
		out := make([]model.ItemResult, 0, len(doc.Items))
		for _, it := range doc.Items {
			out = append(out, model.ItemResult{Value: it, Confidence: 0.4, NeedsReview: true})
		}
		return out
	}

	labels := columnLabels(doc)
	var results []model.ItemResult
	for _, row := range doc.Matrix {
		var (
			item      model.Item
			scores    []float64
			populated bool
		)
		for _, a := range assignments {
			raw := ""
			if a.Column < len(row) {
				raw = strings.TrimSpace(row[a.Column])
			}
			if setItemField(&item, a.Field, raw, doc.Demand.Currency, m.cfg.DefaultCurrency) {
				populated = true
			}

			label := string(a.Field)
			if a.Column < len(labels) && labels[a.Column] != "" {
				label = labels[a.Column]
			}
			scores = append(scores, m.fieldScore(a.Field, label, normalize.Enrich(raw), nil))
		}
		if !populated {
			continue
		}

		conf := 0.3
		if len(scores) > 0 {
			sum := 0.0
			for _, s := range scores {
				sum += s
			}
			conf = sum / float64(len(scores))
		}
		results = append(results, model.ItemResult{
			Value:       item,
			Confidence:  conf,
			NeedsReview: conf < m.cfg.ReviewThreshold,
		})
	}
	return results
}

// setItemField writes one converted cell into the item, reporting whether it
// contributed a non-empty value.
func setItemField(item *model.Item, field model.TargetField, raw, docCurrency, defaultCurrency string) bool {
	switch field {
	case model.FieldQty:
		item.Qty = normalize.ParseNumber(raw)
		return item.Qty != nil
	case model.FieldUnitPriceExcl:
		item.UnitPriceExcl = normalize.ParseNumber(raw)
		return item.UnitPriceExcl != nil
	case model.FieldVatPct:
		item.VatPct = normalize.ParseNumber(raw)
		return item.VatPct != nil
	case model.FieldItemName:
		item.ItemName = raw
	case model.FieldUnit:
		item.Unit = raw
	case model.FieldBrand:
		item.Brand = raw
	case model.FieldModel:
		item.Model = raw
	case model.FieldNote:
		item.Note = raw
	case model.FieldDeliveryDate:
		item.DeliveryDate = normalize.ParseDate(raw)
		return item.DeliveryDate != ""
	case model.FieldCurrency:
		v := raw
		if v == "" {
			v = docCurrency
		}
		if v == "" {
			v = defaultCurrency
		}
		item.Currency = strings.ToUpper(v)
		return raw != ""
	}
	return raw != ""
}
