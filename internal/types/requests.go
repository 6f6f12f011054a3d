package types

// StartCookingRequest represents the request body for starting a cooking session
type StartCookingRequest struct {
	RecipeName string `json:"recipe_name" binding:"required"`
}
