package services

import (
	"context"
	"strconv"
	"strings"

	"natours/errs"
	"natours/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// BookingService records paid tours and talks to the payment gateway.
type BookingService struct {
	DB       *gorm.DB
	Store    *Store[models.Booking]
	Payments PaymentGateway
	Currency string
	log      zerolog.Logger
}

func NewBookingService(db *gorm.DB, payments PaymentGateway, currency string, log zerolog.Logger) *BookingService {
	return &BookingService{
		DB: db,
		Store: &Store[models.Booking]{
			DB:      db,
			Columns: models.BookingFields,
			Preload: []string{"Tour", "User"},
		},
		Payments: payments,
		Currency: currency,
		log:      log,
	}
}

// CheckoutSession opens a hosted checkout for tour on behalf of user.
// baseURL is the public scheme://host used for redirects and images.
func (s *BookingService) CheckoutSession(ctx context.Context, tour *models.Tour, user *models.User, baseURL string) (*CheckoutSession, error) {
	return s.Payments.CreateCheckoutSession(ctx, CheckoutRequest{
		TourID:        tour.ID,
		TourName:      tour.Name,
		Summary:       tour.Summary,
		ImageURL:      baseURL + "/img/tours/" + tour.ImageCover,
		Price:         tour.Price,
		Currency:      s.Currency,
		CustomerEmail: user.Email,
		SuccessURL:    baseURL + "/my-tours?alert=booking",
		CancelURL:     baseURL + "/tour/" + tour.Slug,
	})
}

// HandleWebhook verifies a payment provider event and records a booking when
// it reports a completed checkout.
func (s *BookingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	checkout, err := s.Payments.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if checkout == nil {
		return nil
	}
	_, err = s.CreateFromCheckout(ctx, checkout)
	return err
}

// CreateFromCheckout stores the booking for a completed checkout. The tour is
// the client reference and the user is the account with the customer email.
func (s *BookingService) CreateFromCheckout(ctx context.Context, c *CompletedCheckout) (*models.Booking, error) {
	tourID, err := strconv.ParseUint(c.ClientReference, 10, 64)
	if err != nil {
		return nil, errs.BadRequest("Webhook error: invalid client reference " + c.ClientReference)
	}

	var user models.User
	err = s.DB.WithContext(ctx).Where("email = ?", strings.ToLower(c.CustomerEmail)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.BadRequest("Webhook error: no user with email " + c.CustomerEmail)
		}
		return nil, errs.Internal(err, "find booking user")
	}

	booking := &models.Booking{
		TourID: uint(tourID),
		UserID: user.ID,
		Price:  float64(c.AmountTotal) / 100,
	}
	if err := s.Store.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.log.Info().Uint("booking_id", booking.ID).Uint("tour_id", booking.TourID).Uint("user_id", booking.UserID).Msg("booking created from checkout")
	return booking, nil
}

// TourIDsForUser returns the distinct tours a user has booked.
func (s *BookingService) TourIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.DB.WithContext(ctx).Model(&models.Booking{}).Where("user_id = ?", userID).Distinct().Pluck("tour_id", &ids).Error
	return ids, errs.Internal(err, "booked tours")
}
