package services

import (
	"context"
	"strconv"
	"testing"

	"natours/errs"
	"natours/logger"
	"natours/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutSession(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	svc := NewBookingService(db, gw, "usd", logger.Nop())

	tour := createTour(t, db, "The Forest Hiker", 397)
	user := createUser(t, db, "Ann Smith", "ann@example.com", models.RoleUser)

	sess, err := svc.CheckoutSession(context.Background(), tour, user, "https://natours.dev")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)

	req := gw.lastReq
	assert.Equal(t, tour.ID, req.TourID)
	assert.Equal(t, 397.0, req.Price)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "ann@example.com", req.CustomerEmail)
	assert.Equal(t, "https://natours.dev/img/tours/cover.jpg", req.ImageURL)
	assert.Equal(t, "https://natours.dev/my-tours?alert=booking", req.SuccessURL)
	assert.Equal(t, "https://natours.dev/tour/the-forest-hiker", req.CancelURL)
}

func TestHandleWebhookCreatesBooking(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	svc := NewBookingService(db, gw, "usd", logger.Nop())
	ctx := context.Background()

	tour := createTour(t, db, "The Sea Explorer", 497)
	user := createUser(t, db, "Ann Smith", "ann@example.com", models.RoleUser)

	// events other than a completed checkout are acknowledged and ignored
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig"))

	gw.checkout = &CompletedCheckout{
		ClientReference: strconv.FormatUint(uint64(tour.ID), 10),
		CustomerEmail:   "ANN@example.com",
		AmountTotal:     49700,
	}
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig"))

	var bookings []models.Booking
	require.NoError(t, db.Find(&bookings).Error)
	require.Len(t, bookings, 1)
	assert.Equal(t, tour.ID, bookings[0].TourID)
	assert.Equal(t, user.ID, bookings[0].UserID)
	assert.Equal(t, 497.0, bookings[0].Price)
	require.NotNil(t, bookings[0].Paid)
	assert.True(t, *bookings[0].Paid)

	ids, err := svc.TourIDsForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{tour.ID}, ids)
}

func TestCreateFromCheckoutErrors(t *testing.T) {
	db := newTestDB(t)
	svc := NewBookingService(db, &fakeGateway{}, "usd", logger.Nop())
	ctx := context.Background()

	_, err := svc.CreateFromCheckout(ctx, &CompletedCheckout{ClientReference: "abc", CustomerEmail: "ann@example.com", AmountTotal: 100})
	require.Error(t, err)
	assert.Equal(t, 400, errs.Translate(err).StatusCode)

	_, err = svc.CreateFromCheckout(ctx, &CompletedCheckout{ClientReference: "1", CustomerEmail: "ghost@example.com", AmountTotal: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Webhook error")
}

func TestHandleWebhookPassesGatewayError(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{err: errs.BadRequest("Webhook error: bad signature")}
	svc := NewBookingService(db, gw, "usd", logger.Nop())

	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "bad")
	assert.Same(t, gw.err, err)
}
