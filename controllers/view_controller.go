package controllers

import (
	"net/http"

	"natours/middleware"
	"natours/services"

	"github.com/gin-gonic/gin"
)

// ViewController renders the server side pages.
type ViewController struct {
	tours    *services.TourService
	bookings *services.BookingService
	users    *services.UserService
}

func NewViewController(tours *services.TourService, bookings *services.BookingService, users *services.UserService) *ViewController {
	return &ViewController{tours: tours, bookings: bookings, users: users}
}

// render adds the title, the logged in user and any alert to data.
func render(c *gin.Context, status int, page, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = title
	data["user"] = middleware.CurrentUser(c)
	data["alert"] = c.GetString(middleware.AlertKey)
	c.HTML(status, page, data)
}

// RenderError is the page renderer used by middleware.ErrorHandler.
func RenderError(c *gin.Context, status int, title, msg string) {
	render(c, status, "error.html", title, gin.H{"msg": msg})
}

func (vc *ViewController) GetOverview(c *gin.Context) {
	tours, err := vc.tours.Store.List(c.Request.Context(), services.ParseQuery(nil), nil)
	if err != nil {
		fail(c, err)
		return
	}
	render(c, http.StatusOK, "overview.html", "All tours", gin.H{"tours": tours})
}

func (vc *ViewController) GetTour(c *gin.Context) {
	tour, err := vc.tours.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	render(c, http.StatusOK, "tour.html", tour.Name+" Tour", gin.H{"tour": tour})
}

func (vc *ViewController) GetLoginForm(c *gin.Context) {
	render(c, http.StatusOK, "login.html", "Log into your account", nil)
}

func (vc *ViewController) GetSignupForm(c *gin.Context) {
	render(c, http.StatusOK, "signup.html", "Create an account", nil)
}

func (vc *ViewController) GetAccount(c *gin.Context) {
	render(c, http.StatusOK, "account.html", "Your account", nil)
}

// GetMyTours lists the tours the user has booked.
func (vc *ViewController) GetMyTours(c *gin.Context) {
	ids, err := vc.bookings.TourIDsForUser(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	tours, err := vc.tours.FindByIDs(c.Request.Context(), ids)
	if err != nil {
		fail(c, err)
		return
	}
	render(c, http.StatusOK, "overview.html", "My Tours", gin.H{"tours": tours})
}

// UpdateUserData handles the plain HTML form on the account page.
func (vc *ViewController) UpdateUserData(c *gin.Context) {
	name, email := c.PostForm("name"), c.PostForm("email")
	in := services.UpdateMeInput{Name: &name, Email: &email}

	user, err := vc.users.UpdateMe(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Set(middleware.UserKey, user)
	render(c, http.StatusOK, "account.html", "Your account", nil)
}
