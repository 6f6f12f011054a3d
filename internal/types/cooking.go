package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/pageza/nutrichef/backend/internal/models"
)

// IngredientAmount names an ingredient and how much of it a recipe uses.
type IngredientAmount struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Name         string    `json:"name"`
	Amount       float64   `json:"amount"`
	Unit         string    `json:"unit"`
}

// SubstituteOption is one numbered choice read back to the user.
type SubstituteOption struct {
	Number int `json:"number"`
	IngredientAmount
	Improvement int `json:"improvement"`
}

// ProposalView is what the assistant offers after starting a session.
// Available is false when nothing in the recipe can be improved.
type ProposalView struct {
	SessionID   uuid.UUID          `json:"session_id"`
	RecipeName  string             `json:"recipe_name"`
	Status      string             `json:"status"`
	Available   bool               `json:"available"`
	Original    *IngredientAmount  `json:"original,omitempty"`
	Substitutes []SubstituteOption `json:"substitutes"`
}

// Resolution confirms an applied substitution.
type Resolution struct {
	Ingredient IngredientAmount `json:"ingredient"`
	Original   IngredientAmount `json:"original"`
	RecordID   uuid.UUID        `json:"record_id"`
}

// BlockResult acknowledges a refused proposal.
type BlockResult struct {
	Msg      string           `json:"msg"`
	Original IngredientAmount `json:"original"`
	Blocked  []uuid.UUID      `json:"blocked"`
}

// ScoreSnapshot is a recipe's nutrition score at one point in time.
// Values are absolute totals for the whole recipe.
type ScoreSnapshot struct {
	Score  int              `json:"score"`
	Grade  string           `json:"grade"`
	Weight float64          `json:"weight"`
	Values models.Nutrients `json:"values"`
}

// RescoreReport compares the canonical recipe with the personalized one.
type RescoreReport struct {
	RecipeName string        `json:"recipe_name"`
	Old        ScoreSnapshot `json:"old"`
	New        ScoreSnapshot `json:"new"`
}

// HistoryEntry is one applied substitution.
type HistoryEntry struct {
	ID         uuid.UUID `json:"id"`
	Original   string    `json:"original"`
	Substitute string    `json:"substitute"`
	Amount     float64   `json:"amount"`
	Unit       string    `json:"unit"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryExport points at an uploaded history document.
type HistoryExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
