package normalize

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/teklifbul/intake/internal/model"
)

// fieldSynonyms maps exact normalized labels to canonical fields. This is the
// fast-path lookup consulted before any fuzzy scoring.
var fieldSynonyms = map[string]model.TargetField{
	"baslik":                model.FieldTitle,
	"konu":                  model.FieldTitle,
	"satin alma talep eden": model.FieldRequester,
	"talep eden":            model.FieldRequester,
	"istek sahibi":          model.FieldRequester,
	"talep tarihi":          model.FieldDemandDate,
	"istenen tarih":         model.FieldDueDate,
	"termin":                model.FieldDueDate,
	"para birimi":           model.FieldCurrency,
	"pb":                    model.FieldCurrency,
	"doviz":                 model.FieldCurrency,
	"birim":                 model.FieldUnit,
	"miktar":                model.FieldQty,
	"adet":                  model.FieldQty,
	"urun adi":              model.FieldItemName,
	"urun ismi":             model.FieldItemName,
	"malzeme":               model.FieldItemName,
	"stok adi":              model.FieldItemName,
	"birim fiyat":           model.FieldUnitPriceExcl,
	"net fiyat":             model.FieldUnitPriceExcl,
	"kdv":                   model.FieldVatPct,
	"kdv orani":             model.FieldVatPct,
	"not":                   model.FieldNote,
	"aciklama":              model.FieldNote,
}

// SynonymField resolves a raw label to a canonical field via the exact
// synonym dictionary. The second return is false when the label is unknown.
func SynonymField(raw string) (model.TargetField, bool) {
	key := Key(raw)
	if key == "" {
		return "", false
	}
	f, ok := fieldSynonyms[key]
	return f, ok
}

// DefaultSynonyms returns the per-field header term lists used by the
// spreadsheet reader's fuzzy column matching. Terms are in Key form.
func DefaultSynonyms() map[model.TargetField][]string {
	return map[model.TargetField][]string{
		model.FieldItemName:      {"urun adi", "urun ismi", "malzeme", "stok adi", "aciklama", "urun"},
		model.FieldQty:           {"miktar", "qty", "adet"},
		model.FieldUnit:          {"birim", "unit"},
		model.FieldUnitPriceExcl: {"birim fiyat", "net fiyat", "b fiyat", "bf"},
		model.FieldVatPct:        {"kdv", "kdv orani"},
		model.FieldCurrency:      {"para birimi", "pb", "currency", "doviz"},
		model.FieldDeliveryDate:  {"teslim tarihi", "sevk tarihi", "termin"},
		model.FieldBrand:         {"marka"},
		model.FieldModel:         {"model"},
		model.FieldNote:          {"not", "aciklama"},
	}
}

// LoadSynonyms merges a user-provided YAML synonym file over the defaults.
// The file maps field names to header terms:
//
//	itemName: ["kalem adi", "parca"]
//	qty: ["mik"]
//
// An empty path returns the defaults unchanged.
func LoadSynonyms(path string) (map[model.TargetField][]string, error) {
	syn := DefaultSynonyms()
	if path == "" {
		return syn, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: read synonyms %s", path)
	}

	var extra map[string][]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, eris.Wrap(err, "normalize: parse synonyms")
	}

	for field, terms := range extra {
		f := model.TargetField(field)
		for _, t := range terms {
			if k := Key(t); k != "" {
				syn[f] = append(syn[f], k)
			}
		}
	}
	return syn, nil
}
