package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipe is the canonical, unpersonalized recipe.
type Recipe struct {
	ID          uuid.UUID          `gorm:"type:varchar(36);primarykey" json:"id"`
	Name        string             `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description string             `gorm:"type:text" json:"description"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecipeIngredient is one (ingredient, amount) line of a canonical recipe.
type RecipeIngredient struct {
	ID           uuid.UUID   `gorm:"type:varchar(36);primarykey" json:"id"`
	RecipeID     uuid.UUID   `gorm:"type:varchar(36);not null;index" json:"recipe_id"`
	IngredientID uuid.UUID   `gorm:"type:varchar(36);not null" json:"ingredient_id"`
	Ingredient   *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	Amount       float64     `gorm:"not null" json:"amount"`
	Position     int         `gorm:"not null;default:0" json:"-"`
}

func (ri *RecipeIngredient) BeforeCreate(tx *gorm.DB) error {
	if ri.ID == uuid.Nil {
		ri.ID = uuid.New()
	}
	return nil
}

// PersonalizedRecipe is a user's working copy of a canonical recipe.
type PersonalizedRecipe struct {
	ID                   uuid.UUID                `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID               uuid.UUID                `gorm:"type:varchar(36);not null;uniqueIndex:idx_personalized_user_recipe" json:"user_id"`
	RecipeID             uuid.UUID                `gorm:"type:varchar(36);not null;uniqueIndex:idx_personalized_user_recipe" json:"recipe_id"`
	Recipe               *Recipe                  `gorm:"foreignKey:RecipeID" json:"recipe,omitempty"`
	Version              int64                    `gorm:"not null;default:1" json:"version"`
	Ingredients          []PersonalizedIngredient `gorm:"foreignKey:PersonalizedRecipeID" json:"ingredients"`
	BlockedSubstitutions []BlockedSubstitution    `gorm:"foreignKey:PersonalizedRecipeID" json:"blocked_substitutions"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

func (pr *PersonalizedRecipe) BeforeCreate(tx *gorm.DB) error {
	if pr.ID == uuid.Nil {
		pr.ID = uuid.New()
	}
	return nil
}

// Line returns the working-list entry for ingredientID.
func (pr *PersonalizedRecipe) Line(ingredientID uuid.UUID) (*PersonalizedIngredient, bool) {
	for i := range pr.Ingredients {
		if pr.Ingredients[i].IngredientID == ingredientID {
			return &pr.Ingredients[i], true
		}
	}
	return nil, false
}

// BlockedFor returns every substitute the user refused for originalID.
func (pr *PersonalizedRecipe) BlockedFor(originalID uuid.UUID) map[uuid.UUID]struct{} {
	blocked := make(map[uuid.UUID]struct{})
	for _, b := range pr.BlockedSubstitutions {
		if b.OriginalID != originalID {
			continue
		}
		for _, id := range b.SubstituteIDs {
			blocked[id] = struct{}{}
		}
	}
	return blocked
}

// PersonalizedIngredient is one line of a personalized recipe. SubstitutionForID
// points at the audit record that inserted the line or last grew its amount.
type PersonalizedIngredient struct {
	ID                   uuid.UUID   `gorm:"type:varchar(36);primarykey" json:"id"`
	PersonalizedRecipeID uuid.UUID   `gorm:"type:varchar(36);not null;uniqueIndex:idx_personalized_line" json:"personalized_recipe_id"`
	IngredientID         uuid.UUID   `gorm:"type:varchar(36);not null;uniqueIndex:idx_personalized_line" json:"ingredient_id"`
	Ingredient           *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	Amount               float64     `gorm:"not null" json:"amount"`
	SubstitutionForID    *uuid.UUID  `gorm:"type:varchar(36)" json:"substitution_for_id,omitempty"`
	Position             int         `gorm:"not null;default:0" json:"-"`
}

func (pi *PersonalizedIngredient) BeforeCreate(tx *gorm.DB) error {
	if pi.ID == uuid.Nil {
		pi.ID = uuid.New()
	}
	return nil
}

// IDSet is a JSON encoded list of identifiers.
type IDSet []uuid.UUID

// Value implements the driver.Valuer interface
func (s IDSet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (s *IDSet) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = IDSet{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported IDSet source %T", value)
	}
}

// BlockedSubstitution records one refusal: the substitutes offered for
// OriginalID that must never be suggested again for this personalized recipe.
type BlockedSubstitution struct {
	ID                   uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	PersonalizedRecipeID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"personalized_recipe_id"`
	OriginalID           uuid.UUID `gorm:"type:varchar(36);not null;index" json:"original_id"`
	SubstituteIDs        IDSet     `gorm:"type:text;not null;default:'[]'" json:"substitute_ids"`
	CreatedAt            time.Time `json:"created_at"`
}

func (b *BlockedSubstitution) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// SubstitutionRecord is the append-only audit entry of an applied substitution.
type SubstitutionRecord struct {
	ID                   uuid.UUID   `gorm:"type:varchar(36);primarykey" json:"id"`
	PersonalizedRecipeID uuid.UUID   `gorm:"type:varchar(36);not null;index" json:"personalized_recipe_id"`
	OriginalID           uuid.UUID   `gorm:"type:varchar(36);not null" json:"original_id"`
	Original             *Ingredient `gorm:"foreignKey:OriginalID" json:"original,omitempty"`
	SubstituteID         uuid.UUID   `gorm:"type:varchar(36);not null" json:"substitute_id"`
	Substitute           *Ingredient `gorm:"foreignKey:SubstituteID" json:"substitute,omitempty"`
	Amount               float64     `gorm:"not null" json:"amount"`
	CreatedAt            time.Time   `gorm:"not null;index" json:"created_at"`
}

func (sr *SubstitutionRecord) BeforeCreate(tx *gorm.DB) error {
	if sr.ID == uuid.Nil {
		sr.ID = uuid.New()
	}
	return nil
}
