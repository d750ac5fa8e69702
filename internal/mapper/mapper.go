// Package mapper orchestrates the intake pipeline: format detection, reader
// invocation, column assignment, demand-field mapping, item materialization,
// and submitter-memory write-back. Each MapDocument call is a single linear
// pipeline; the only cross-call state is the side effect on submitter memory.
package mapper

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/teklifbul/intake/internal/memory"
	"github.com/teklifbul/intake/internal/model"
	"github.com/teklifbul/intake/internal/normalize"
	"github.com/teklifbul/intake/internal/reader"
	"github.com/teklifbul/intake/internal/scorer"
)

// Config tunes the mapping pipeline.
type Config struct {
	Weights         scorer.Weights `yaml:"weights" mapstructure:"weights"`
	AliasBoost      float64        `yaml:"alias_boost" mapstructure:"alias_boost"`
	ReviewThreshold float64        `yaml:"review_threshold" mapstructure:"review_threshold"`
	DefaultCurrency string         `yaml:"default_currency" mapstructure:"default_currency"`
	PdfToTextPath   string         `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	SynonymsPath    string         `yaml:"synonyms_path" mapstructure:"synonyms_path"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Weights:         scorer.DefaultWeights(),
		AliasBoost:      0.1,
		ReviewThreshold: 0.55,
		DefaultCurrency: "TRY",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Weights == (scorer.Weights{}) {
		c.Weights = d.Weights
	}
	if c.AliasBoost == 0 {
		c.AliasBoost = d.AliasBoost
	}
	if c.ReviewThreshold == 0 {
		c.ReviewThreshold = d.ReviewThreshold
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = d.DefaultCurrency
	}
	return c
}

// Options identifies one document submission.
type Options struct {
	Filename    string
	MIMEType    string
	SubmitterID string // opaque memory partition key; empty routes to the shared bucket
}

// Mapper maps raw document buffers to MappingResults. Safe for concurrent
// use; readers are resolved once at construction.
type Mapper struct {
	readers map[model.Format]reader.Reader
	store   memory.Store
	cfg     Config
}

// New creates a Mapper over the given submitter-memory store. A nil store
// disables alias boosting and write-back.
func New(store memory.Store, cfg Config) (*Mapper, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}

	synonyms, err := normalize.LoadSynonyms(cfg.SynonymsPath)
	if err != nil {
		return nil, err
	}

	return &Mapper{
		readers: map[model.Format]reader.Reader{
			model.FormatXLSX: reader.NewXLSX(synonyms),
			model.FormatDOCX: reader.NewDOCX(),
			model.FormatPDF:  reader.NewPDF(reader.NewPdfToText(cfg.PdfToTextPath)),
		},
		store: store,
		cfg:   cfg,
	}, nil
}

// WithReader replaces the reader for one format; used by tests to inject a
// fake PDF text extractor.
func (m *Mapper) WithReader(r reader.Reader) *Mapper {
	m.readers[r.Format()] = r
	return m
}

// MapDocument runs the full pipeline for one document buffer.
func (m *Mapper) MapDocument(ctx context.Context, buf []byte, opts Options) (*model.MappingResult, error) {
	if len(buf) == 0 {
		return nil, eris.New("mapper: empty document buffer")
	}

	format := reader.Detect(opts.Filename, opts.MIMEType)
	rd, ok := m.readers[format]
	if !ok {
		return nil, eris.Errorf("mapper: unsupported format %q", format)
	}

	doc, err := rd.Parse(ctx, buf)
	if err != nil {
		return nil, eris.Wrapf(err, "mapper: parse %s document", format)
	}

	result := &model.MappingResult{
		Demand:   make(map[model.TargetField]model.FieldResult),
		Warnings: append([]string(nil), doc.Warnings...),
	}

	aliases := m.loadAliases(ctx, opts.SubmitterID, result)
	assignments := m.assignColumns(doc, aliases)
	m.mapDemandFields(doc, aliases, result)
	result.Items = m.materializeItems(doc, assignments)

	m.writeBack(ctx, opts.SubmitterID, doc, assignments, result)

	zap.L().Info("mapper: document mapped",
		zap.String("format", string(format)),
		zap.String("submitter", opts.SubmitterID),
		zap.Int("items", len(result.Items)),
		zap.Int("assignments", len(assignments)),
		zap.Int("doc_confidence", doc.Confidence),
	)
	return result, nil
}

// loadAliases returns the normalized alias set for this submitter. Store
// failures degrade to no boost with a warning; they never fail the call.
func (m *Mapper) loadAliases(ctx context.Context, submitterID string, result *model.MappingResult) map[string]struct{} {
	if m.store == nil {
		return nil
	}
	entries, err := m.store.GetAliases(ctx, submitterID)
	if err != nil {
		zap.L().Warn("mapper: alias lookup failed", zap.Error(err))
		result.Warnings = append(result.Warnings, "submitter memory unavailable; scores computed without alias history")
		return nil
	}
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[normalize.Key(e.Alias)] = struct{}{}
	}
	return set
}

// writeBack records every accepted column assignment and demand-field
// candidate into submitter memory. This is how the system learns a
// submitter's labeling over repeated submissions.
func (m *Mapper) writeBack(ctx context.Context, submitterID string, doc *model.RawDocument, assignments []model.ColumnAssignment, result *model.MappingResult) {
	if m.store == nil {
		return
	}
	labels := columnLabels(doc)
	for _, a := range assignments {
		if a.Column >= len(labels) || labels[a.Column] == "" {
			continue
		}
		if err := m.store.Remember(ctx, submitterID, labels[a.Column], a.Field, a.Score); err != nil {
			zap.L().Warn("mapper: memory write-back failed",
				zap.String("field", string(a.Field)), zap.Error(err))
		}
	}
	for field, fr := range result.Demand {
		if fr.SourceLabel == "" {
			continue
		}
		if err := m.store.Remember(ctx, submitterID, fr.SourceLabel, field, fr.Confidence); err != nil {
			zap.L().Warn("mapper: memory write-back failed",
				zap.String("field", string(field)), zap.Error(err))
		}
	}
}
