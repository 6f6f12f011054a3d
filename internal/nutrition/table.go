package nutrition

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

//go:embed nutriscore.yaml
var defaultTableYAML []byte

// Basis is the normalization applied to a vector before lookup.
type Basis string

const (
	Per100g    Basis = "per_100g"
	PerServing Basis = "per_serving"
)

// Band awards Points when Lower < value <= Upper. Upper 0 is unbounded.
type Band struct {
	Lower  float64 `mapstructure:"lower" json:"lower"`
	Upper  float64 `mapstructure:"upper" json:"upper"`
	Points int     `mapstructure:"points" json:"points"`
}

func (b Band) contains(v float64) bool {
	return v > b.Lower && (b.Upper == 0 || v <= b.Upper)
}

// Bands is an ascending list of point bands for one nutrient.
type Bands []Band

// Points returns the points of the first band containing v, or 0.
func (bs Bands) Points(v float64) int {
	for _, b := range bs {
		if b.contains(v) {
			return b.Points
		}
	}
	return 0
}

func (bs Bands) validate() error {
	for i, b := range bs {
		if b.Upper != 0 && b.Upper <= b.Lower {
			return fmt.Errorf("band %d: upper %v not above lower %v", i, b.Upper, b.Lower)
		}
		if i == 0 {
			continue
		}
		prev := bs[i-1]
		if prev.Upper == 0 {
			return fmt.Errorf("band %d follows an unbounded band", i)
		}
		if b.Lower < prev.Upper {
			return fmt.Errorf("band %d overlaps band %d", i, i-1)
		}
	}
	return nil
}

// SubjectRules is the point table variant for one subject type.
type SubjectRules struct {
	Basis        Basis   `mapstructure:"basis" json:"basis"`
	ServingGrams float64 `mapstructure:"serving_grams" json:"serving_grams"`
	// ProteinCap ignores protein points once bad points reach it, unless the
	// fruit/vegetable points are at their maximum. 0 disables the rule.
	ProteinCap   int   `mapstructure:"protein_cap" json:"protein_cap"`
	EnergyKJ     Bands `mapstructure:"energy_kj" json:"energy_kj"`
	Sugars       Bands `mapstructure:"sugars" json:"sugars"`
	SaturatedFat Bands `mapstructure:"saturated_fat" json:"saturated_fat"`
	SodiumMg     Bands `mapstructure:"sodium_mg" json:"sodium_mg"`
	Fiber        Bands `mapstructure:"fiber" json:"fiber"`
	Protein      Bands `mapstructure:"protein" json:"protein"`
	FruitVegNut  Bands `mapstructure:"fruit_veg_nut" json:"fruit_veg_nut"`
}

func (r SubjectRules) validate() error {
	switch r.Basis {
	case Per100g:
	case PerServing:
		if r.ServingGrams <= 0 {
			return errors.New("per_serving basis requires serving_grams")
		}
	default:
		return fmt.Errorf("unknown basis %q", r.Basis)
	}

	named := map[string]Bands{
		"energy_kj":     r.EnergyKJ,
		"sugars":        r.Sugars,
		"saturated_fat": r.SaturatedFat,
		"sodium_mg":     r.SodiumMg,
		"fiber":         r.Fiber,
		"protein":       r.Protein,
		"fruit_veg_nut": r.FruitVegNut,
	}
	for name, bands := range named {
		if err := bands.validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// GradeThreshold maps scores up to and including Max to Grade.
type GradeThreshold struct {
	Grade Grade `mapstructure:"grade" json:"grade"`
	Max   int   `mapstructure:"max" json:"max"`
}

// Table is the complete, swappable scoring configuration.
type Table struct {
	Ingredient SubjectRules     `mapstructure:"ingredient" json:"ingredient"`
	Recipe     SubjectRules     `mapstructure:"recipe" json:"recipe"`
	Grades     []GradeThreshold `mapstructure:"grades" json:"grades"`
}

// Validate rejects unordered bands, bad bases and unordered grade thresholds.
func (t Table) Validate() error {
	if err := t.Ingredient.validate(); err != nil {
		return fmt.Errorf("ingredient rules: %w", err)
	}
	if err := t.Recipe.validate(); err != nil {
		return fmt.Errorf("recipe rules: %w", err)
	}
	if len(t.Grades) == 0 {
		return errors.New("no grade thresholds")
	}
	for i := 1; i < len(t.Grades); i++ {
		if t.Grades[i].Max <= t.Grades[i-1].Max {
			return fmt.Errorf("grade %s threshold %d not above %d", t.Grades[i].Grade, t.Grades[i].Max, t.Grades[i-1].Max)
		}
	}
	return nil
}

func (t Table) rules(s Subject) SubjectRules {
	if s == SubjectRecipe {
		return t.Recipe
	}
	return t.Ingredient
}

// DefaultTable returns the built-in 2017 Nutri-Score table.
func DefaultTable() Table {
	t, err := readTable(bytes.NewReader(defaultTableYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded nutriscore table: %v", err))
	}
	return t
}

// LoadTable reads a table from a YAML (or any viper supported) file. An empty
// path yields the default table.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Table{}, fmt.Errorf("failed to read scoring table %s: %w", path, err)
	}
	return decodeTable(v)
}

func readTable(r *bytes.Reader) (Table, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return Table{}, fmt.Errorf("failed to parse scoring table: %w", err)
	}
	return decodeTable(v)
}

func decodeTable(v *viper.Viper) (Table, error) {
	var t Table
	if err := v.Unmarshal(&t); err != nil {
		return Table{}, fmt.Errorf("failed to decode scoring table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, fmt.Errorf("invalid scoring table: %w", err)
	}
	return t, nil
}
