package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Weights sets the relative contribution of each sub-score to the composite.
type Weights struct {
	String float64 `yaml:"string" mapstructure:"string"`
	Type   float64 `yaml:"type" mapstructure:"type"`
	Rule   float64 `yaml:"rule" mapstructure:"rule"`
}

// DefaultWeights returns the tuned default weighting.
func DefaultWeights() Weights {
	return Weights{String: 0.5, Type: 0.3, Rule: 0.2}
}

// orDefault substitutes the defaults for a zero-valued Weights.
func (w Weights) orDefault() Weights {
	if w.String == 0 && w.Type == 0 && w.Rule == 0 {
		return DefaultWeights()
	}
	return w
}

// Validate checks that the weights are internally consistent.
func (w Weights) Validate() error {
	var errs []string
	for name, v := range map[string]float64{"string": w.String, "type": w.Type, "rule": w.Rule} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", name))
		}
	}
	if sum := w.String + w.Type + w.Rule; sum <= 0 {
		errs = append(errs, "weights must sum to a positive number")
	}
	if len(errs) > 0 {
		return eris.Errorf("scorer: invalid weights: %s", strings.Join(errs, "; "))
	}
	return nil
}
