package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teklifbul/intake/internal/model"
	"github.com/teklifbul/intake/internal/normalize"
)

func TestStringSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("Miktar", "miktar"))
	assert.Equal(t, 1.0, StringSimilarity("Ürün Adı", "urun adi"))
	assert.Equal(t, 0.0, StringSimilarity("", "miktar"))
	assert.Equal(t, 0.0, StringSimilarity("miktar", ""))

	// Symmetric.
	a, b := "birim fiyat", "fiyat birimi"
	assert.InDelta(t, StringSimilarity(a, b), StringSimilarity(b, a), 1e-12)

	// Close labels beat unrelated ones.
	assert.Greater(t, StringSimilarity("Miktar", "miktari"), StringSimilarity("Miktar", "tedarikçi"))
}

func TestScore_Bounds(t *testing.T) {
	fields := append(model.ItemFields(), model.DemandFields()...)
	labels := []string{"", "Miktar", "Birim Fiyat", "tamamen alakasız bir başlık", "KDV %"}
	values := []string{"", "100", "12,50 TL", "30.12.2025", "Vida M6", "₺"}

	for _, f := range fields {
		for _, l := range labels {
			for _, v := range values {
				s := Score(f, l, normalize.Enrich(v), DefaultWeights())
				assert.GreaterOrEqual(t, s.Score, 0.0, "field=%s label=%q value=%q", f, l, v)
				assert.LessOrEqual(t, s.Score, 1.0, "field=%s label=%q value=%q", f, l, v)
			}
		}
	}
}

func TestScore_RuleHeuristics(t *testing.T) {
	w := DefaultWeights()

	qty := Score(model.FieldQty, "Miktar", normalize.Enrich("100"), w)
	assert.Equal(t, 1.0, qty.Components.Rule)
	assert.Equal(t, 1.0, qty.Components.Type)
	assert.Greater(t, qty.Score, 0.5)

	vat := Score(model.FieldVatPct, "KDV Oranı", normalize.Enrich("18"), w)
	assert.Equal(t, 1.0, vat.Components.Rule)

	// A synonym label with the right value type outranks an unrelated label.
	adet := Score(model.FieldQty, "Adet", normalize.Enrich("4"), w)
	other := Score(model.FieldQty, "Tedarikçi", normalize.Enrich("4"), w)
	assert.Greater(t, adet.Score, other.Score)

	// Type mismatch drags the score down.
	text := Score(model.FieldQty, "Miktar", normalize.Enrich("yok"), w)
	assert.Equal(t, 0.0, text.Components.Type)
	assert.Less(t, text.Score, qty.Score)
}

func TestScore_Deterministic(t *testing.T) {
	cand := normalize.Enrich("12,50 TL")
	first := Score(model.FieldUnitPriceExcl, "Birim Fiyat", cand, DefaultWeights())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(model.FieldUnitPriceExcl, "Birim Fiyat", cand, DefaultWeights()))
	}
}

func TestScore_ZeroWeightsUseDefaults(t *testing.T) {
	cand := normalize.Enrich("100")
	got := Score(model.FieldQty, "Miktar", cand, Weights{})
	want := Score(model.FieldQty, "Miktar", cand, DefaultWeights())
	assert.Equal(t, want, got)
}

func TestWeights_Validate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())
	require.NoError(t, Weights{String: 1}.Validate())

	assert.Error(t, Weights{String: -0.1, Type: 0.5, Rule: 0.6}.Validate())
	assert.Error(t, Weights{}.Validate())
}
