package controllers

import (
	"io"
	"net/http"
	"strings"

	"natours/errs"
	"natours/middleware"
	"natours/models"
	"natours/services"
	"natours/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var ErrUseSignup = errs.New("This route is not defined! Please use /signup instead", http.StatusInternalServerError)

type UserController struct {
	users  *services.UserService
	images *services.ImageService
	log    zerolog.Logger
	*Resource[models.User]
}

func NewUserController(users *services.UserService, images *services.ImageService, log zerolog.Logger) *UserController {
	return &UserController{
		users:    users,
		images:   images,
		log:      log,
		Resource: &Resource[models.User]{Store: users.Store},
	}
}

func (uc *UserController) GetMe(c *gin.Context) {
	utils.JSONSuccess(c, http.StatusOK, middleware.CurrentUser(c))
}

// UpdateMe takes JSON, where photo may be a data URI, or a multipart form
// with a photo file.
func (uc *UserController) UpdateMe(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var in services.UpdateMeInput
	var photo io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
		if v, ok := c.GetPostForm("name"); ok {
			in.Name = &v
		}
		if v, ok := c.GetPostForm("email"); ok {
			in.Email = &v
		}
		in.Password = c.PostForm("password")
		in.PasswordConfirm = c.PostForm("passwordConfirm")

		if fh, err := c.FormFile("photo"); err == nil {
			f, err := fh.Open()
			if err != nil {
				fail(c, err)
				return
			}
			defer f.Close()
			photo = f
		}
	} else {
		if err := bindJSON(c, &in); err != nil {
			fail(c, err)
			return
		}
		if in.Photo != "" {
			r, err := services.DecodeBase64Image(in.Photo)
			if err != nil {
				fail(c, err)
				return
			}
			photo = r
			in.Photo = ""
		}
	}

	if in.Password != "" || in.PasswordConfirm != "" {
		fail(c, services.ErrPasswordUpdate)
		return
	}
	if photo != nil {
		name, err := uc.images.ProcessUserPhoto(user.ID, photo)
		if err != nil {
			fail(c, err)
			return
		}
		in.Photo = name
	}

	updated, err := uc.users.UpdateMe(c.Request.Context(), user, in)
	if err != nil {
		fail(c, err)
		return
	}
	if in.Photo != "" {
		if err := uc.images.RemoveUserPhotos(user.ID, in.Photo); err != nil {
			uc.log.Warn().Err(err).Uint("user_id", user.ID).Msg("remove old photos")
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": updated}})
}

func (uc *UserController) DeleteMe(c *gin.Context) {
	if err := uc.users.Deactivate(c.Request.Context(), middleware.CurrentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	utils.NoContent(c)
}

// CreateUser exists so POST /users explains where accounts are created.
func (uc *UserController) CreateUser(c *gin.Context) {
	fail(c, ErrUseSignup)
}
