package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"natours/errs"
	"natours/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	metersToMiles = 0.000621371
	metersToKm    = 0.001
)

// TourService wraps the tour store with aggregation and geo queries.
type TourService struct {
	DB    *gorm.DB
	Store *Store[models.Tour]
}

func NewTourService(db *gorm.DB) *TourService {
	s := &TourService{DB: db}
	s.Store = &Store[models.Tour]{
		DB:           db,
		Columns:      models.TourFields,
		Scope:        models.PublicTours,
		Protected:    []string{"ratingsAverage", "ratingsQuantity", "slug", "reviews"},
		Preload:      []string{"Guides"},
		AfterWrite:   s.syncGuides,
		BeforeDelete: s.deleteDependents,
	}
	return s
}

// syncGuides replaces the guide list when the request carried one. A nil
// slice means the field was absent.
func (s *TourService) syncGuides(tx *gorm.DB, tour *models.Tour) error {
	if tour.Guides == nil {
		return nil
	}

	ids := make([]uint, 0, len(tour.Guides))
	for _, g := range tour.Guides {
		ids = append(ids, g.ID)
	}

	var guides []models.User
	if len(ids) > 0 {
		if err := tx.Scopes(models.ActiveUsers).Where("id IN ?", ids).Find(&guides).Error; err != nil {
			return errors.Wrap(err, "load guides")
		}
		if len(guides) != len(uniqueIDs(ids)) {
			return errs.BadRequest("Invalid input data. Every guide must be an existing user")
		}
	}

	assoc := tx.Model(tour).Association("Guides")
	if len(guides) == 0 {
		if err := assoc.Clear(); err != nil {
			return errors.Wrap(err, "clear guides")
		}
		tour.Guides = guides
		return nil
	}
	if err := assoc.Replace(guides); err != nil {
		return errors.Wrap(err, "replace guides")
	}
	tour.Guides = guides
	return nil
}

// deleteDependents removes guide links, reviews and bookings of a tour
// before the tour row itself.
func (s *TourService) deleteDependents(tx *gorm.DB, tour *models.Tour) error {
	if err := tx.Model(tour).Association("Guides").Clear(); err != nil {
		return errors.Wrap(err, "clear guides")
	}
	if err := tx.Where("tour_id = ?", tour.ID).Delete(&models.Review{}).Error; err != nil {
		return errors.Wrap(err, "delete tour reviews")
	}
	return errors.Wrap(tx.Where("tour_id = ?", tour.ID).Delete(&models.Booking{}).Error, "delete tour bookings")
}

// GetWithDetails loads a tour with its guides and reviews.
func (s *TourService) GetWithDetails(ctx context.Context, id uint) (*models.Tour, error) {
	return s.Store.Get(ctx, id, "Reviews", "Reviews.User")
}

// GetBySlug is used by the tour page.
func (s *TourService) GetBySlug(ctx context.Context, slug string) (*models.Tour, error) {
	var tour models.Tour
	err := s.DB.WithContext(ctx).
		Scopes(models.PublicTours).
		Preload("Guides").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("reviews.created_at DESC") }).
		Preload("Reviews.User").
		Where("slug = ?", slug).
		First(&tour).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("There is no tour with that name.")
		}
		return nil, errs.Internal(err, "get tour by slug")
	}
	return &tour, nil
}

// FindByIDs returns the public tours with the given ids.
func (s *TourService) FindByIDs(ctx context.Context, ids []uint) ([]models.Tour, error) {
	tours := []models.Tour{}
	if len(ids) == 0 {
		return tours, nil
	}
	err := s.DB.WithContext(ctx).Scopes(models.PublicTours).Where("id IN ?", ids).Order("created_at DESC").Find(&tours).Error
	return tours, errs.Internal(err, "find tours")
}

// TourStats is one difficulty bucket of the tour statistics.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// Stats groups tours rated 4.5 or better by difficulty, cheapest first.
// Secret tours are included.
func (s *TourService) Stats(ctx context.Context) ([]TourStats, error) {
	stats := []TourStats{}
	err := s.DB.WithContext(ctx).
		Model(&models.Tour{}).
		Select(`UPPER(difficulty) AS difficulty,
			COUNT(*) AS num_tours,
			COALESCE(SUM(ratings_quantity), 0) AS num_ratings,
			AVG(ratings_average) AS avg_rating,
			AVG(price) AS avg_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price`).
		Where("ratings_average >= ?", 4.5).
		Group("UPPER(difficulty)").
		Order("avg_price ASC").
		Scan(&stats).Error
	return stats, errs.Internal(err, "tour stats")
}

// MonthlyPlan is the number of tour starts in one month of a year.
type MonthlyPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// MonthlyPlan counts tour start dates per month of year, busiest month first.
// Secret tours are included.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlan, error) {
	var tours []models.Tour
	if err := s.DB.WithContext(ctx).Select("id", "name", "start_dates").Find(&tours).Error; err != nil {
		return nil, errs.Internal(err, "monthly plan")
	}

	byMonth := map[int]*MonthlyPlan{}
	for _, t := range tours {
		for _, d := range t.StartDates {
			d = d.UTC()
			if d.Year() != year {
				continue
			}
			m := int(d.Month())
			p, ok := byMonth[m]
			if !ok {
				p = &MonthlyPlan{Month: m, Tours: []string{}}
				byMonth[m] = p
			}
			p.NumTourStarts++
			p.Tours = append(p.Tours, t.Name)
		}
	}

	plan := make([]MonthlyPlan, 0, len(byMonth))
	for _, p := range byMonth {
		plan = append(plan, *p)
	}
	sort.Slice(plan, func(i, j int) bool {
		if plan[i].NumTourStarts != plan[j].NumTourStarts {
			return plan[i].NumTourStarts > plan[j].NumTourStarts
		}
		return plan[i].Month < plan[j].Month
	})
	if len(plan) > 12 {
		plan = plan[:12]
	}
	return plan, nil
}

// ParseLatLng parses "lat,lng".
func ParseLatLng(raw string) (models.GeoPoint, error) {
	invalid := errs.BadRequest("Please provide latitude and longitude in the format lat,lng.")

	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return models.GeoPoint{}, invalid
	}
	var lat, lng float64
	if _, err := fmt.Sscan(strings.TrimSpace(parts[0]), &lat); err != nil {
		return models.GeoPoint{}, invalid
	}
	if _, err := fmt.Sscan(strings.TrimSpace(parts[1]), &lng); err != nil {
		return models.GeoPoint{}, invalid
	}
	p := models.NewPoint(lat, lng)
	if !p.Valid() {
		return models.GeoPoint{}, invalid
	}
	return p, nil
}

// Within returns the public tours whose start location lies inside distance
// (miles when unit is "mi", kilometers otherwise) of center.
func (s *TourService) Within(ctx context.Context, distance float64, center models.GeoPoint, unit string) ([]models.Tour, error) {
	radius := EarthRadius(unit)
	if distance < 0 {
		return nil, errs.BadRequest("Distance must be a positive number.")
	}

	var tours []models.Tour
	if err := s.DB.WithContext(ctx).Scopes(models.PublicTours).Find(&tours).Error; err != nil {
		return nil, errs.Internal(err, "tours within")
	}

	within := []models.Tour{}
	for _, t := range tours {
		start := t.StartLocation.Data()
		if !start.Valid() {
			continue
		}
		if models.AngularDistance(center, start) <= distance/radius {
			within = append(within, t)
		}
	}
	return within, nil
}

// TourDistance is a tour name with its distance from a point.
type TourDistance struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Distances lists every tour, secret ones included, with its distance from
// center, nearest first, in miles when unit is "mi" and kilometers otherwise.
func (s *TourService) Distances(ctx context.Context, center models.GeoPoint, unit string) ([]TourDistance, error) {
	multiplier := metersToKm
	if unit == "mi" {
		multiplier = metersToMiles
	}

	var tours []models.Tour
	if err := s.DB.WithContext(ctx).Select("id", "name", "start_location").Find(&tours).Error; err != nil {
		return nil, errs.Internal(err, "tour distances")
	}

	out := []TourDistance{}
	for _, t := range tours {
		start := t.StartLocation.Data()
		if !start.Valid() {
			continue
		}
		meters := models.AngularDistance(center, start) * models.EarthRadiusKm * 1000
		out = append(out, TourDistance{ID: t.ID, Name: t.Name, Distance: meters * multiplier})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

// EarthRadius returns the sphere radius in the requested unit.
func EarthRadius(unit string) float64 {
	if unit == "mi" {
		return models.EarthRadiusMi
	}
	return models.EarthRadiusKm
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// ValidYear bounds the year accepted by the monthly plan.
func ValidYear(year int) bool {
	return year >= 1970 && year <= time.Now().Year()+100
}
