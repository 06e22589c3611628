package controllers

import (
	"net/http"

	"natours/middleware"
	"natours/models"
	"natours/services"
	"natours/utils"

	"github.com/gin-gonic/gin"
)

// ReviewController serves /reviews and the nested /tours/:tourId/reviews.
type ReviewController struct {
	reviews *services.ReviewService
	*Resource[models.Review]
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{
		reviews:  reviews,
		Resource: &Resource[models.Review]{Store: reviews.Store},
	}
}

func (rc *ReviewController) GetAllReviews(c *gin.Context) {
	var tourID uint
	if c.Param("tourId") != "" {
		id, err := parseID(c, "tourId")
		if err != nil {
			fail(c, err)
			return
		}
		tourID = id
	}

	q := services.ParseQuery(c.Request.URL.Query())
	reviews, err := rc.reviews.List(c.Request.Context(), q, tourID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := sendList(c, reviews, q.Fields, len(reviews)); err != nil {
		fail(c, err)
	}
}

// CreateReview defaults the tour to the nested route and the author to the
// logged in user.
func (rc *ReviewController) CreateReview(c *gin.Context) {
	var review models.Review
	if err := bindJSON(c, &review); err != nil {
		fail(c, err)
		return
	}
	if review.TourID == 0 && c.Param("tourId") != "" {
		id, err := parseID(c, "tourId")
		if err != nil {
			fail(c, err)
			return
		}
		review.TourID = id
	}
	if review.UserID == 0 {
		review.UserID = middleware.CurrentUser(c).ID
	}

	if err := rc.reviews.Store.Create(c.Request.Context(), &review); err != nil {
		fail(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, review)
}
