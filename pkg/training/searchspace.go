package training

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/ml/search"
	"gopkg.in/yaml.v3"
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// FamilySpace is the hyperparameter grid searched for one model family.
type FamilySpace struct {
	Name     string               `yaml:"name" json:"name" validate:"required,oneof=GradientBoosting LeafwiseBoosting ObliviousBoosting ExtraTrees Ridge"`
	Disabled bool                 `yaml:"disabled" json:"disabled"`
	Params   map[string][]float64 `yaml:"params" json:"params" validate:"required,min=1,dive,keys,required,endkeys,min=1"`
}

type SearchSpace struct {
	Families []FamilySpace `yaml:"families" json:"families" validate:"required,min=1,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadSearchSpace reads a YAML search space. An empty path selects the
// built-in defaults.
func LoadSearchSpace(path string) (SearchSpace, error) {
	if path == "" {
		return DefaultSearchSpace(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultSearchSpace(), err
	}

	var space SearchSpace
	if err := yaml.Unmarshal(content, &space); err != nil {
		return SearchSpace{}, fmt.Errorf("parse search space %s: %w", path, err)
	}
	if err := space.Validate(); err != nil {
		return SearchSpace{}, err
	}
	return space, nil
}

// Validate checks structure with struct tags and parameter names against
// what each family understands.
func (s SearchSpace) Validate() error {
	if err := validate.Struct(s); err != nil {
		return ValidationError{reason: fmt.Errorf("invalid search space: %w", err)}
	}
	enabled := 0
	for _, fam := range s.Families {
		known := familyParams[fam.Name]
		var unknown []string
		for name, values := range fam.Params {
			if _, ok := known[name]; !ok {
				unknown = append(unknown, name)
				continue
			}
			for _, v := range values {
				if v < 0 {
					return ValidationError{reason: fmt.Errorf("%s.%s: negative value %v", fam.Name, name, v)}
				}
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return ValidationError{reason: fmt.Errorf("%s: unknown parameters %s", fam.Name, strings.Join(unknown, ", "))}
		}
		if !fam.Disabled {
			enabled++
		}
	}
	if enabled == 0 {
		return ValidationError{reason: errors.New("search space enables no model family")}
	}
	return nil
}

func (f FamilySpace) Grid() search.Grid {
	grid := make(search.Grid, len(f.Params))
	for name, values := range f.Params {
		grid[name] = append([]float64(nil), values...)
	}
	return grid
}

var familyParams = map[string]map[string]struct{}{
	FamilyGradientBoosting:  set("n_estimators", "learning_rate", "max_depth", "subsample", "colsample_bytree"),
	FamilyLeafwiseBoosting:  set("n_estimators", "learning_rate", "num_leaves", "subsample", "colsample_bytree", "min_child_samples"),
	FamilyObliviousBoosting: set("iterations", "learning_rate", "depth", "l2_leaf_reg"),
	FamilyExtraTrees:        set("n_estimators", "max_depth", "min_samples_split", "max_features"),
	FamilyRidge:             set("alpha"),
}

func set(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// DefaultSearchSpace mirrors the grids the models were originally tuned on.
func DefaultSearchSpace() SearchSpace {
	rounds := []float64{300, 600, 900}
	rates := []float64{0.01, 0.05, 0.1}
	fractions := []float64{0.8, 0.9, 1.0}
	return SearchSpace{Families: []FamilySpace{
		{Name: FamilyGradientBoosting, Params: map[string][]float64{
			"n_estimators":     rounds,
			"learning_rate":    rates,
			"max_depth":        {3, 5, 7},
			"subsample":        fractions,
			"colsample_bytree": fractions,
		}},
		{Name: FamilyLeafwiseBoosting, Params: map[string][]float64{
			"n_estimators":     rounds,
			"learning_rate":    rates,
			"num_leaves":       {31, 63, 127},
			"subsample":        fractions,
			"colsample_bytree": fractions,
		}},
		{Name: FamilyObliviousBoosting, Params: map[string][]float64{
			"iterations":    rounds,
			"learning_rate": rates,
			"depth":         {4, 6, 8},
		}},
		{Name: FamilyExtraTrees, Params: map[string][]float64{
			"n_estimators":      rounds,
			"max_depth":         {0, 10, 20},
			"min_samples_split": {2, 5, 10},
		}},
		{Name: FamilyRidge, Params: map[string][]float64{
			"alpha": {0.1, 1, 10},
		}},
	}}
}
