package controllers

import (
	"io"
	"net/http"

	"natours/errs"
	"natours/middleware"
	"natours/models"
	"natours/services"
	"natours/utils"

	"github.com/gin-gonic/gin"
)

const maxWebhookSize = 64 << 10

type BookingController struct {
	bookings *services.BookingService
	tours    *services.TourService
	*Resource[models.Booking]
}

func NewBookingController(bookings *services.BookingService, tours *services.TourService) *BookingController {
	return &BookingController{
		bookings: bookings,
		tours:    tours,
		Resource: &Resource[models.Booking]{Store: bookings.Store},
	}
}

// GetCheckoutSession opens a hosted payment page for the tour in :tourId.
func (bc *BookingController) GetCheckoutSession(c *gin.Context) {
	tourID, err := parseID(c, "tourId")
	if err != nil {
		fail(c, err)
		return
	}
	tour, err := bc.tours.Store.Get(c.Request.Context(), tourID)
	if err != nil {
		fail(c, err)
		return
	}

	session, err := bc.bookings.CheckoutSession(c.Request.Context(), tour, middleware.CurrentUser(c), utils.BaseURL(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "session": session})
}

// WebhookCheckout needs the unparsed body to verify the signature.
func (bc *BookingController) WebhookCheckout(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookSize))
	if err != nil {
		fail(c, err)
		return
	}
	if err := bc.bookings.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		if appErr := errs.Translate(err); appErr != nil && appErr.StatusCode < http.StatusInternalServerError {
			c.String(appErr.StatusCode, appErr.Message)
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
