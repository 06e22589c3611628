package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"

	DefaultRatingsAverage = 4.5
)

type Tour struct {
	ID              uint                           `gorm:"primaryKey" json:"id"`
	Name            string                         `gorm:"size:40;uniqueIndex;not null" json:"name" validate:"required,min=10,max=40"`
	Slug            string                         `gorm:"size:64;index" json:"slug"`
	Duration        int                            `gorm:"not null" json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int                            `gorm:"not null" json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      string                         `gorm:"size:16;not null" json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64                        `gorm:"default:4.5" json:"ratingsAverage" validate:"gte=1,lte=5"`
	RatingsQuantity int                            `gorm:"default:0" json:"ratingsQuantity" validate:"gte=0"`
	Price           float64                        `gorm:"not null" json:"price" validate:"required,gt=0"`
	PriceDiscount   *float64                       `json:"priceDiscount,omitempty"`
	Summary         string                         `gorm:"size:255;not null" json:"summary" validate:"required"`
	Description     string                         `gorm:"type:text" json:"description"`
	ImageCover      string                         `gorm:"size:255;not null" json:"imageCover" validate:"required"`
	Images          datatypes.JSONSlice[string]    `json:"images"`
	CreatedAt       time.Time                      `json:"createdAt"`
	UpdatedAt       time.Time                      `json:"-"`
	StartDates      datatypes.JSONSlice[time.Time] `json:"startDates"`
	SecretTour      bool                           `gorm:"default:false;index" json:"secretTour"`
	StartLocation   datatypes.JSONType[GeoPoint]   `json:"startLocation"`
	Locations       datatypes.JSONSlice[Location]  `json:"locations"`

	Guides  []User   `gorm:"many2many:tour_guides" json:"guides" validate:"-"`
	Reviews []Review `gorm:"foreignKey:TourID" json:"reviews,omitempty" validate:"-"`

	DurationWeeks float64 `gorm:"-" json:"durationWeeks"`
}

var tourMessages = messages{
	"name.required":         "A tour must have a name",
	"name.max":              "A tour name must have less or equal then 40 characters",
	"name.min":              "A tour name must have more or equal then 10 characters",
	"duration.required":     "A tour must have a duration",
	"duration.gt":           "A tour duration must be positive",
	"maxGroupSize.required": "A tour must have a group size",
	"maxGroupSize.gt":       "A tour group size must be positive",
	"difficulty.required":   "A tour must have a difficulty",
	"difficulty.oneof":      "Difficulty is either: easy, medium, difficult",
	"ratingsAverage.gte":    "Rating must be above 1.0",
	"ratingsAverage.lte":    "Rating must be below 5.0",
	"price.required":        "A tour must have a price",
	"price.gt":              "A tour price must be positive",
	"summary.required":      "A tour must have a description",
	"imageCover.required":   "A tour must have a cover image",
}

func (t *Tour) ApplyDefaults() {
	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
}

func (t *Tour) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)

	v := validateStruct(t, tourMessages)
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		v.Add("priceDiscount", fmt.Sprintf("Discount price (%v) should be below regular price", *t.PriceDiscount))
	}
	if start := t.StartLocation.Data(); len(start.Coordinates) > 0 && !start.Valid() {
		v.Add("startLocation", "Start location must be [longitude, latitude]")
	}
	for _, loc := range t.Locations {
		if !loc.Valid() {
			v.Add("locations", "Every location must be [longitude, latitude]")
			break
		}
	}
	return v.Err()
}

func (t *Tour) BeforeSave(tx *gorm.DB) error {
	t.Slug = slug.Make(t.Name)
	t.RatingsAverage = RoundRating(t.RatingsAverage)
	if t.Images == nil {
		t.Images = datatypes.JSONSlice[string]{}
	}
	if t.StartDates == nil {
		t.StartDates = datatypes.JSONSlice[time.Time]{}
	}
	if t.Locations == nil {
		t.Locations = datatypes.JSONSlice[Location]{}
	}
	if p := t.StartLocation.Data(); p.Type == "" && len(p.Coordinates) > 0 {
		p.Type = "Point"
		t.StartLocation = datatypes.NewJSONType(p)
	}
	return nil
}

func (t *Tour) AfterSave(tx *gorm.DB) error {
	t.computeVirtuals()
	return nil
}

func (t *Tour) AfterFind(tx *gorm.DB) error {
	t.computeVirtuals()
	return nil
}

func (t *Tour) computeVirtuals() {
	t.DurationWeeks = float64(t.Duration) / 7
}

// RoundRating rounds to one decimal place (4.666 -> 4.7).
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// PublicTours hides secret tours.
func PublicTours(db *gorm.DB) *gorm.DB {
	return db.Where("tours.secret_tour = ?", false)
}

// TourFields are the query parameters usable for filtering and sorting tours.
var TourFields = map[string]string{
	"id":              "tours.id",
	"name":            "tours.name",
	"slug":            "tours.slug",
	"duration":        "tours.duration",
	"maxGroupSize":    "tours.max_group_size",
	"difficulty":      "tours.difficulty",
	"ratingsAverage":  "tours.ratings_average",
	"ratingsQuantity": "tours.ratings_quantity",
	"price":           "tours.price",
	"priceDiscount":   "tours.price_discount",
	"summary":         "tours.summary",
	"createdAt":       "tours.created_at",
}
