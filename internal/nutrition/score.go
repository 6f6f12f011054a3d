package nutrition

import "github.com/pageza/nutrichef/backend/internal/models"

// Subject selects the normalization basis and point table variant.
type Subject string

const (
	SubjectIngredient Subject = "ingredient"
	SubjectRecipe     Subject = "recipe"
)

// Grade is a Nutri-Score letter, A best.
type Grade string

// Result is a scored vector.
type Result struct {
	Score  int     `json:"score"`
	Grade  Grade   `json:"grade"`
	Weight float64 `json:"weight"`
}

// Calculator scores nutrient vectors against a Table. It is safe for
// concurrent use.
type Calculator struct {
	table Table
}

// NewCalculator validates t and returns a calculator over it.
func NewCalculator(t Table) (*Calculator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{table: t}, nil
}

// Score returns the numeric score of v; lower is healthier.
func (c *Calculator) Score(v Vector, s Subject) int {
	rules := c.table.rules(s)

	grams := 100.0
	if rules.Basis == PerServing {
		grams = rules.ServingGrams
	}
	n := v.PerGrams(grams)

	bad := rules.EnergyKJ.Points(n.EnergyKJ) +
		rules.Sugars.Points(n.Sugars) +
		rules.SaturatedFat.Points(n.SaturatedFat) +
		rules.SodiumMg.Points(n.SodiumMg)

	fiber := rules.Fiber.Points(n.Fiber)
	protein := rules.Protein.Points(n.Protein)
	fvn := rules.FruitVegNut.Points(n.FruitVegNut)

	if rules.ProteinCap > 0 && bad >= rules.ProteinCap && fvn < maxPoints(rules.FruitVegNut) {
		protein = 0
	}
	return bad - fiber - protein - fvn
}

// Grade buckets a numeric score. Scores above every threshold get the last grade.
func (c *Calculator) Grade(score int) Grade {
	for _, g := range c.table.Grades {
		if score <= g.Max {
			return g.Grade
		}
	}
	return c.table.Grades[len(c.table.Grades)-1].Grade
}

// Evaluate scores and grades v.
func (c *Calculator) Evaluate(v Vector, s Subject) Result {
	score := c.Score(v, s)
	return Result{Score: score, Grade: c.Grade(score), Weight: v.Weight}
}

// IngredientScore is the intrinsic score of a catalog ingredient, independent
// of how much of it a recipe uses.
func (c *Calculator) IngredientScore(ing models.Ingredient) int {
	return c.Score(Vector{Nutrients: ing.Nutrients, Weight: 100}, SubjectIngredient)
}

func maxPoints(bs Bands) int {
	max := 0
	for _, b := range bs {
		if b.Points > max {
			max = b.Points
		}
	}
	return max
}
