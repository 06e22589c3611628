package services

import (
	"context"
	"strings"

	"natours/errs"
	"natours/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrPasswordUpdate = errs.BadRequest("This route is not for password updates. Please use /update-my-password.")

type UserService struct {
	DB    *gorm.DB
	Store *Store[models.User]
}

func NewUserService(db *gorm.DB) *UserService {
	store := NewStore[models.User](db, models.UserFields)
	store.Scope = models.ActiveUsers
	return &UserService{DB: db, Store: store}
}

// UpdateMeInput holds the account fields a user may change on their own.
// Photo is either an uploaded file name or an inline data URI.
type UpdateMeInput struct {
	Name            *string `json:"name" form:"name"`
	Email           *string `json:"email" form:"email"`
	Photo           string  `json:"photo" form:"-"`
	Password        string  `json:"password" form:"password"`
	PasswordConfirm string  `json:"passwordConfirm" form:"passwordConfirm"`
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Scopes(models.ActiveUsers).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNoDocument
		}
		return nil, errs.Internal(err, "find user by email")
	}
	return &user, nil
}

// UpdateMe changes name, email and photo of user. Any other field in the
// input is ignored, except passwords which are rejected.
func (s *UserService) UpdateMe(ctx context.Context, user *models.User, in UpdateMeInput) (*models.User, error) {
	if in.Password != "" || in.PasswordConfirm != "" {
		return nil, ErrPasswordUpdate
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Photo != "" {
		user.Photo = in.Photo
	}
	if err := s.Store.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate hides the account from every query instead of deleting it.
func (s *UserService) Deactivate(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("active", false).Error
	return errs.Internal(err, "deactivate user")
}
