package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringSet is a JSON encoded list of lower-cased tags.
type StringSet []string

// Value implements the driver.Valuer interface
func (s StringSet) Value() (driver.Value, error) {
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
func (s *StringSet) Scan(value interface{}) error {
	if value == nil {
		*s = StringSet{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported StringSet source %T", value)
	}

	return json.Unmarshal(bytes, s)
}

// Contains reports whether tag is in the set, ignoring case.
func (s StringSet) Contains(tag string) bool {
	for _, t := range s {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Nutrients is a nutrient vector. Catalog values are per 100 g; aggregated
// values are absolute for the aggregated mass.
type Nutrients struct {
	EnergyKJ     float64 `gorm:"column:energy_kj;not null;default:0" json:"energy_kj" mapstructure:"energy_kj"`
	Sugars       float64 `gorm:"not null;default:0" json:"sugars" mapstructure:"sugars"`
	SaturatedFat float64 `gorm:"not null;default:0" json:"saturated_fat" mapstructure:"saturated_fat"`
	SodiumMg     float64 `gorm:"column:sodium_mg;not null;default:0" json:"sodium_mg" mapstructure:"sodium_mg"`
	Fiber        float64 `gorm:"not null;default:0" json:"fiber" mapstructure:"fiber"`
	Protein      float64 `gorm:"not null;default:0" json:"protein" mapstructure:"protein"`
	// FruitVegNut is the fruit/vegetable/nut share in percent.
	FruitVegNut float64 `gorm:"not null;default:0" json:"fruit_veg_nut" mapstructure:"fruit_veg_nut"`
}

// Add returns the component-wise sum of n and o.
func (n Nutrients) Add(o Nutrients) Nutrients {
	return Nutrients{
		EnergyKJ:     n.EnergyKJ + o.EnergyKJ,
		Sugars:       n.Sugars + o.Sugars,
		SaturatedFat: n.SaturatedFat + o.SaturatedFat,
		SodiumMg:     n.SodiumMg + o.SodiumMg,
		Fiber:        n.Fiber + o.Fiber,
		Protein:      n.Protein + o.Protein,
		FruitVegNut:  n.FruitVegNut + o.FruitVegNut,
	}
}

// Scale multiplies every component by f.
func (n Nutrients) Scale(f float64) Nutrients {
	return Nutrients{
		EnergyKJ:     n.EnergyKJ * f,
		Sugars:       n.Sugars * f,
		SaturatedFat: n.SaturatedFat * f,
		SodiumMg:     n.SodiumMg * f,
		Fiber:        n.Fiber * f,
		Protein:      n.Protein * f,
		FruitVegNut:  n.FruitVegNut * f,
	}
}

// Category groups ingredients that can replace one another.
type Category struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Ingredient is catalog reference data. One unit of UnitType weighs UnitGrams.
type Ingredient struct {
	ID         uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	Name       string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	UnitType   string    `gorm:"size:20;not null;default:'g'" json:"unit_type"`
	UnitGrams  float64   `gorm:"not null;default:1" json:"unit_grams"`
	CategoryID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Nutrients  Nutrients `gorm:"embedded" json:"nutrients"`
	Allergens  StringSet `gorm:"type:text;not null;default:'[]'" json:"allergens"`
	Traits     StringSet `gorm:"type:text;not null;default:'[]'" json:"traits"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Grams converts an amount expressed in the ingredient's unit to grams.
func (i Ingredient) Grams(amount float64) float64 {
	return amount * i.UnitGrams
}
