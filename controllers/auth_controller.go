package controllers

import (
	"net/http"
	"time"

	"natours/middleware"
	"natours/models"
	"natours/services"
	"natours/utils"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	auth          *services.AuthService
	cookieExpires time.Duration
}

func NewAuthController(auth *services.AuthService, cookieExpiresDays int) *AuthController {
	return &AuthController{auth: auth, cookieExpires: time.Duration(cookieExpiresDays) * 24 * time.Hour}
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPayload struct {
	Email string `json:"email"`
}

type updatePasswordPayload struct {
	PasswordCurrent string `json:"passwordCurrent"`
	models.PasswordInput
}

// sendToken sets the session cookie and answers with the token and user.
func (ac *AuthController) sendToken(c *gin.Context, status int, user *models.User, token string) {
	setTokenCookie(c, token, int(ac.cookieExpires.Seconds()))
	c.JSON(status, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": user},
	})
}

func setTokenCookie(c *gin.Context, token string, maxAge int) {
	secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", secure, true)
}

func (ac *AuthController) Signup(c *gin.Context) {
	var in models.SignupInput
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	user, token, err := ac.auth.Signup(c.Request.Context(), in, utils.BaseURL(c)+"/me")
	if err != nil {
		fail(c, err)
		return
	}
	ac.sendToken(c, http.StatusCreated, user, token)
}

func (ac *AuthController) Login(c *gin.Context) {
	var payload loginPayload
	if err := bindJSON(c, &payload); err != nil {
		fail(c, err)
		return
	}
	user, token, err := ac.auth.Login(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ac.sendToken(c, http.StatusOK, user, token)
}

// Logout overwrites the session cookie with a short-lived placeholder.
func (ac *AuthController) Logout(c *gin.Context) {
	setTokenCookie(c, middleware.LoggedOutValue, 10)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var payload forgotPayload
	if err := bindJSON(c, &payload); err != nil {
		fail(c, err)
		return
	}
	base := utils.BaseURL(c)
	err := ac.auth.ForgotPassword(c.Request.Context(), payload.Email, func(token string) string {
		return base + "/api/v1/users/reset-password/" + token
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Token sent to email!"})
}

func (ac *AuthController) ResetPassword(c *gin.Context) {
	var in models.PasswordInput
	if err := bindJSON(c, &in); err != nil {
		fail(c, err)
		return
	}
	user, token, err := ac.auth.ResetPassword(c.Request.Context(), c.Param("token"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ac.sendToken(c, http.StatusOK, user, token)
}

func (ac *AuthController) UpdatePassword(c *gin.Context) {
	var payload updatePasswordPayload
	if err := bindJSON(c, &payload); err != nil {
		fail(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	token, err := ac.auth.UpdatePassword(c.Request.Context(), user, payload.PasswordCurrent, payload.PasswordInput)
	if err != nil {
		fail(c, err)
		return
	}
	ac.sendToken(c, http.StatusOK, user, token)
}
