package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionProposed SessionStatus = "proposed"
	SessionApplied  SessionStatus = "applied"
	SessionBlocked  SessionStatus = "blocked"
)

// ProposalCandidate is one numbered option offered to the user.
type ProposalCandidate struct {
	IngredientID uuid.UUID `json:"ingredient_id"`
	Name         string    `json:"name"`
	Amount       float64   `json:"amount"`
	UnitType     string    `json:"unit_type"`
	Improvement  int       `json:"improvement"`
}

// Proposal is what the assistant last offered: which line to replace and the
// ranked candidates. An empty proposal means nothing could be suggested.
type Proposal struct {
	OriginalID     uuid.UUID           `json:"original_id"`
	OriginalName   string              `json:"original_name"`
	OriginalAmount float64             `json:"original_amount"`
	OriginalUnit   string              `json:"original_unit"`
	Candidates     []ProposalCandidate `json:"candidates"`
}

// Empty reports whether the proposal offers nothing.
func (p Proposal) Empty() bool {
	return p.OriginalID == uuid.Nil || len(p.Candidates) == 0
}

// CandidateIDs returns the ingredient ids of every offered candidate.
func (p Proposal) CandidateIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		ids = append(ids, c.IngredientID)
	}
	return ids
}

// CookingSession holds one user's conversational state. There is at most one
// per user; starting a new one replaces the previous.
type CookingSession struct {
	ID                   uuid.UUID                    `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID               uuid.UUID                    `gorm:"type:varchar(36);not null;uniqueIndex" json:"user_id"`
	PersonalizedRecipeID uuid.UUID                    `gorm:"type:varchar(36);not null" json:"personalized_recipe_id"`
	RecipeName           string                       `gorm:"size:255;not null" json:"recipe_name"`
	Status               SessionStatus                `gorm:"size:20;not null;default:'proposed'" json:"status"`
	Proposal             datatypes.JSONType[Proposal] `json:"proposal"`
	Version              int64                        `gorm:"not null;default:1" json:"version"`
	ResolvedAt           *time.Time                   `json:"resolved_at,omitempty"`
	CreatedAt            time.Time                    `json:"created_at"`
	UpdatedAt            time.Time                    `json:"updated_at"`
}

func (s *CookingSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Resolved reports whether the user already answered the proposal.
func (s *CookingSession) Resolved() bool {
	return s.Status != SessionProposed
}
