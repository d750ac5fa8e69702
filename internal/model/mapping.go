// Package model defines the shared data model for the intake mapping pipeline.
package model

// Format identifies a supported input document format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// TargetField is a canonical field name a document label or column can map to.
type TargetField string

const (
	// Item-level fields.
	FieldItemName      TargetField = "itemName"
	FieldQty           TargetField = "qty"
	FieldUnit          TargetField = "unit"
	FieldBrand         TargetField = "brand"
	FieldModel         TargetField = "model"
	FieldUnitPriceExcl TargetField = "unitPriceExcl"
	FieldVatPct        TargetField = "vatPct"

	// Demand-level fields.
	FieldTitle      TargetField = "title"
	FieldRequester  TargetField = "requester"
	FieldDemandDate TargetField = "demandDate"
	FieldDueDate    TargetField = "dueDate"
	FieldCurrency   TargetField = "currency"
	FieldNote       TargetField = "note"

	// DeliveryDate is item-level in source documents but only recognized by
	// readers; it never competes in demand-field mapping.
	FieldDeliveryDate TargetField = "deliveryDate"
)

// ItemFields returns the item-level fields in assignment order.
func ItemFields() []TargetField {
	return []TargetField{
		FieldItemName, FieldQty, FieldUnit, FieldBrand,
		FieldModel, FieldUnitPriceExcl, FieldVatPct,
	}
}

// DemandFields returns the demand-level fields in assignment order.
func DemandFields() []TargetField {
	return []TargetField{
		FieldTitle, FieldRequester, FieldDemandDate,
		FieldDueDate, FieldCurrency, FieldNote,
	}
}

// IsItemField reports whether f is one of the item-level fields.
func (f TargetField) IsItemField() bool {
	switch f {
	case FieldItemName, FieldQty, FieldUnit, FieldBrand,
		FieldModel, FieldUnitPriceExcl, FieldVatPct, FieldDeliveryDate:
		return true
	}
	return false
}

// CandidateValue is a raw string enriched with every interpretation the
// normalization layer could derive from it. Built once, never mutated.
type CandidateValue struct {
	Raw        string   `json:"raw"`
	Normalized string   `json:"normalized"`
	Number     *float64 `json:"number,omitempty"`
	Date       string   `json:"date,omitempty"`     // ISO 8601 date
	Currency   string   `json:"currency,omitempty"` // ISO 4217 code
}

// FieldCandidate is a label/value pair scraped from a non-tabular region of a
// document, not yet assigned to a target field.
type FieldCandidate struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Demand holds the header-level purchase request a reader recovered
// best-effort from a document.
type Demand struct {
	Code       string `json:"code,omitempty"`
	Title      string `json:"title"`
	Requester  string `json:"requester,omitempty"`
	DemandDate string `json:"demandDate,omitempty"`
	DueDate    string `json:"dueDate,omitempty"`
	Currency   string `json:"currency"`
	Note       string `json:"note,omitempty"`
}

// Item is one line entry of a demand.
type Item struct {
	ItemName      string   `json:"itemName"`
	Brand         string   `json:"brand,omitempty"`
	Model         string   `json:"model,omitempty"`
	Qty           *float64 `json:"qty"`
	Unit          string   `json:"unit,omitempty"`
	UnitPriceExcl *float64 `json:"unitPriceExcl,omitempty"`
	VatPct        *float64 `json:"vatPct,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	DeliveryDate  string   `json:"deliveryDate,omitempty"`
	Note          string   `json:"note,omitempty"`
}

// RawDocument is the format-independent extraction result a reader produces.
// Produced once per input buffer and never mutated afterward.
type RawDocument struct {
	Format          Format           `json:"format"`
	Demand          Demand           `json:"demand"`
	Items           []Item           `json:"items"`
	Headers         []string         `json:"headers,omitempty"`
	HeaderRow       int              `json:"headerRow"` // header row index in the source document; -1 when none. Matrix holds data rows only.
	Matrix          [][]string       `json:"matrix,omitempty"`
	FieldCandidates []FieldCandidate `json:"fieldCandidates,omitempty"`
	Confidence      int              `json:"confidence"` // 0..100 whole-document estimate
	Warnings        []string         `json:"warnings,omitempty"`
}

// ColumnAssignment binds one matrix column to one item field.
type ColumnAssignment struct {
	Field  TargetField `json:"field"`
	Column int         `json:"column"`
	Score  float64     `json:"score"`
}

// MemoryEntry records that a submitter has used a raw label for a canonical
// field, with a running mean confidence over Seen observations.
type MemoryEntry struct {
	Alias      string      `json:"alias"`
	Field      TargetField `json:"field"`
	Confidence float64     `json:"confidence"`
	Seen       int         `json:"seen"`
}

// FieldResult is one resolved demand field with its confidence and the raw
// label it came from.
type FieldResult struct {
	Value       any     `json:"value"`
	Confidence  float64 `json:"confidence"`
	NeedsReview bool    `json:"needsReview"`
	SourceLabel string  `json:"sourceLabel,omitempty"`
}

// ItemResult is one resolved item with its aggregate confidence.
type ItemResult struct {
	Value       Item    `json:"value"`
	Confidence  float64 `json:"confidence"`
	NeedsReview bool    `json:"needsReview"`
}

// MappingResult is the public contract of the mapping pipeline.
type MappingResult struct {
	Demand   map[TargetField]FieldResult `json:"demand"`
	Items    []ItemResult                `json:"items"`
	Warnings []string                    `json:"warnings"`
}
