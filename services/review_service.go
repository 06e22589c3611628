package services

import (
	"context"

	"natours/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ReviewService keeps tour rating aggregates in step with reviews.
type ReviewService struct {
	DB    *gorm.DB
	Store *Store[models.Review]
}

func NewReviewService(db *gorm.DB) *ReviewService {
	s := &ReviewService{DB: db}
	s.Store = &Store[models.Review]{
		DB:          db,
		Columns:     models.ReviewFields,
		Protected:   []string{"tour", "user"},
		Preload:     []string{"User"},
		AfterWrite:  s.afterWrite,
		AfterDelete: s.afterWrite,
	}
	return s
}

func (s *ReviewService) afterWrite(tx *gorm.DB, review *models.Review) error {
	return CalcAverageRatings(tx, review.TourID)
}

// CalcAverageRatings recomputes ratingsQuantity and ratingsAverage of a tour
// from its reviews. A tour without reviews goes back to 0 and 4.5.
func CalcAverageRatings(tx *gorm.DB, tourID uint) error {
	var agg struct {
		NRating   int64
		AvgRating float64
	}
	err := tx.Model(&models.Review{}).
		Select("COUNT(*) AS n_rating, COALESCE(AVG(rating), 0) AS avg_rating").
		Where("tour_id = ?", tourID).
		Scan(&agg).Error
	if err != nil {
		return errors.Wrap(err, "aggregate ratings")
	}

	quantity, average := agg.NRating, models.DefaultRatingsAverage
	if quantity > 0 {
		average = models.RoundRating(agg.AvgRating)
	}

	err = tx.Model(&models.Tour{}).Where("id = ?", tourID).UpdateColumns(map[string]interface{}{
		"ratings_quantity": quantity,
		"ratings_average":  average,
	}).Error
	return errors.Wrap(err, "update tour ratings")
}

// List returns reviews with their authors, optionally limited to one tour.
func (s *ReviewService) List(ctx context.Context, q Query, tourID uint) ([]models.Review, error) {
	where := map[string]interface{}{}
	if tourID != 0 {
		where["reviews.tour_id"] = tourID
	}
	return s.Store.List(ctx, q, where)
}
