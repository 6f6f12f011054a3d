package models

import (
	"strings"

	"github.com/google/uuid"
)

// Dietary preference types accepted for a user.
const (
	PreferenceVegan         = "vegan"
	PreferenceVegetarian    = "vegetarian"
	PreferencePescatarian   = "pescatarian"
	PreferenceGlutenFree    = "gluten-free"
	PreferenceDairyFree     = "dairy-free"
	PreferenceNutFree       = "nut-free"
	PreferenceSoyFree       = "soy-free"
	PreferenceEggFree       = "egg-free"
	PreferenceShellfishFree = "shellfish-free"
)

// LifestyleExclusions maps a dietary preference to the ingredient traits it rules out.
var LifestyleExclusions = map[string][]string{
	PreferenceVegan:         {"animal"},
	PreferenceVegetarian:    {"meat", "fish"},
	PreferencePescatarian:   {"meat"},
	PreferenceGlutenFree:    {"gluten"},
	PreferenceDairyFree:     {"dairy"},
	PreferenceNutFree:       {"nuts"},
	PreferenceSoyFree:       {"soy"},
	PreferenceEggFree:       {"egg"},
	PreferenceShellfishFree: {"shellfish"},
}

// IsValidPreference reports whether p has an exclusion rule.
func IsValidPreference(p string) bool {
	_, ok := LifestyleExclusions[strings.ToLower(p)]
	return ok
}

// Goal is a nutritional direction the user wants substitutions to follow.
type Goal string

const (
	GoalNone        Goal = ""
	GoalLowSugar    Goal = "low-sugar"
	GoalLowFat      Goal = "low-fat"
	GoalLowSodium   Goal = "low-sodium"
	GoalLowCalorie  Goal = "low-calorie"
	GoalHighProtein Goal = "high-protein"
	GoalHighFiber   Goal = "high-fiber"
)

// Valid reports whether g is a known goal. The empty goal is valid.
func (g Goal) Valid() bool {
	switch g {
	case GoalNone, GoalLowSugar, GoalLowFat, GoalLowSodium, GoalLowCalorie, GoalHighProtein, GoalHighFiber:
		return true
	}
	return false
}

// Worse reports whether candidate moves away from the goal compared to original.
// Both vectors must share the same basis.
func (g Goal) Worse(candidate, original Nutrients) bool {
	switch g {
	case GoalLowSugar:
		return candidate.Sugars > original.Sugars
	case GoalLowFat:
		return candidate.SaturatedFat > original.SaturatedFat
	case GoalLowSodium:
		return candidate.SodiumMg > original.SodiumMg
	case GoalLowCalorie:
		return candidate.EnergyKJ > original.EnergyKJ
	case GoalHighProtein:
		return candidate.Protein < original.Protein
	case GoalHighFiber:
		return candidate.Fiber < original.Fiber
	}
	return false
}

// UserConstraints is the flattened view of a user's restrictions used when
// filtering substitute candidates.
type UserConstraints struct {
	UserID     uuid.UUID
	Allergies  map[string]struct{}
	Dislikes   map[uuid.UUID]struct{}
	Lifestyles []string
	Goal       Goal
}

// NewUserConstraints normalises the raw rows into a UserConstraints.
func NewUserConstraints(userID uuid.UUID, allergens []Allergen, prefs []DietaryPreference, dislikes []Dislike, goal Goal) UserConstraints {
	c := UserConstraints{
		UserID:    userID,
		Allergies: make(map[string]struct{}, len(allergens)),
		Dislikes:  make(map[uuid.UUID]struct{}, len(dislikes)),
		Goal:      goal,
	}
	for _, a := range allergens {
		c.Allergies[strings.ToLower(strings.TrimSpace(a.AllergenName))] = struct{}{}
	}
	for _, d := range dislikes {
		c.Dislikes[d.IngredientID] = struct{}{}
	}
	for _, p := range prefs {
		c.Lifestyles = append(c.Lifestyles, strings.ToLower(p.PreferenceType))
	}
	return c
}

// Allows reports whether ing passes the allergy, dislike and lifestyle filters.
func (c UserConstraints) Allows(ing Ingredient) bool {
	if _, disliked := c.Dislikes[ing.ID]; disliked {
		return false
	}
	for _, a := range ing.Allergens {
		if _, allergic := c.Allergies[strings.ToLower(a)]; allergic {
			return false
		}
	}
	for _, l := range c.Lifestyles {
		for _, trait := range LifestyleExclusions[l] {
			if ing.Traits.Contains(trait) {
				return false
			}
		}
	}
	return true
}
