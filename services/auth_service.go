package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"natours/errs"
	"natours/models"
	"natours/utils"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	ErrMissingCredentials = errs.BadRequest("Please provide email and password!")
	ErrIncorrectLogin     = errs.Unauthorized("Incorrect email or password")
	ErrWrongPassword      = errs.Unauthorized("Your current password is wrong.")
	ErrInvalidResetToken  = errs.BadRequest("Token is invalid or has expired")
	ErrUserGone           = errs.Unauthorized("The user belonging to this token does no longer exist.")
	ErrPasswordChanged    = errs.Unauthorized("User recently changed password! Please log in again.")
	ErrEmailFailed        = errs.New("There was an error sending the email. Try again later!", http.StatusInternalServerError)
)

// AuthService handles signup, login and password management. Every
// successful call that logs a user in returns a freshly signed token.
type AuthService struct {
	DB       *gorm.DB
	Users    *UserService
	Tokens   *TokenManager
	Notifier Notifier
	log      zerolog.Logger
}

func NewAuthService(db *gorm.DB, users *UserService, tokens *TokenManager, notifier Notifier, log zerolog.Logger) *AuthService {
	return &AuthService{DB: db, Users: users, Tokens: tokens, Notifier: notifier, log: log}
}

// Signup creates a regular user from in and sends the welcome email. A failed
// email does not undo the signup.
func (s *AuthService) Signup(ctx context.Context, in models.SignupInput, accountURL string) (*models.User, string, error) {
	if err := in.Validate(); err != nil {
		return nil, "", err
	}

	user := &models.User{Name: in.Name, Email: in.Email, Role: models.RoleUser}
	if err := user.SetPassword(in.Password, true); err != nil {
		return nil, "", errs.Internal(err, "hash password")
	}
	if err := s.Users.Store.Create(ctx, user); err != nil {
		return nil, "", err
	}

	if err := s.Notifier.SendWelcome(ctx, user, accountURL); err != nil {
		s.log.Error().Err(err).Uint("user_id", user.ID).Msg("welcome email failed")
	}

	token, err := s.Tokens.Sign(user.ID)
	if err != nil {
		return nil, "", errs.Internal(err, "sign token")
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNoDocument) {
			return nil, "", ErrIncorrectLogin
		}
		return nil, "", err
	}
	if !user.CorrectPassword(password) {
		return nil, "", ErrIncorrectLogin
	}

	token, err := s.Tokens.Sign(user.ID)
	if err != nil {
		return nil, "", errs.Internal(err, "sign token")
	}
	return user, token, nil
}

// Authenticate resolves the user a session token belongs to.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.Tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	user, err := s.Users.Store.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNoDocument) {
			return nil, ErrUserGone
		}
		return nil, err
	}

	var issued time.Time
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time
	}
	if user.ChangedPasswordAfter(issued) {
		return nil, ErrPasswordChanged
	}
	return user, nil
}

// ForgotPassword stores a reset token for the account with email and mails
// resetURL(token) to it.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error {
	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNoDocument) {
			return errs.NotFound("There is no user with email address.")
		}
		return err
	}

	token, err := user.CreatePasswordResetToken()
	if err != nil {
		return errs.Internal(err, "create reset token")
	}
	if err := s.saveResetFields(ctx, user); err != nil {
		return err
	}

	if err := s.Notifier.SendPasswordReset(ctx, user, resetURL(token)); err != nil {
		s.log.Error().Err(err).Uint("user_id", user.ID).Msg("password reset email failed")
		user.ClearPasswordReset()
		if err := s.saveResetFields(ctx, user); err != nil {
			return err
		}
		return ErrEmailFailed
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, in models.PasswordInput) (*models.User, string, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Scopes(models.ActiveUsers).
		Where("password_reset_token = ? AND password_reset_expires > ?", utils.HashToken(token), time.Now()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidResetToken
		}
		return nil, "", errs.Internal(err, "find reset token")
	}

	if err := s.changePassword(ctx, &user, in); err != nil {
		return nil, "", err
	}
	token, err = s.Tokens.Sign(user.ID)
	if err != nil {
		return nil, "", errs.Internal(err, "sign token")
	}
	return &user, token, nil
}

// UpdatePassword changes the password of a logged in user after checking
// the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, user *models.User, current string, in models.PasswordInput) (string, error) {
	if !user.CorrectPassword(current) {
		return "", ErrWrongPassword
	}
	if err := s.changePassword(ctx, user, in); err != nil {
		return "", err
	}
	token, err := s.Tokens.Sign(user.ID)
	if err != nil {
		return "", errs.Internal(err, "sign token")
	}
	return token, nil
}

func (s *AuthService) changePassword(ctx context.Context, user *models.User, in models.PasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := user.SetPassword(in.Password, false); err != nil {
		return errs.Internal(err, "hash password")
	}
	user.ClearPasswordReset()

	err := s.DB.WithContext(ctx).Model(user).
		Select("password", "password_changed_at", "password_reset_token", "password_reset_expires").
		Updates(user).Error
	return errs.Internal(err, "save password")
}

func (s *AuthService) saveResetFields(ctx context.Context, user *models.User) error {
	err := s.DB.WithContext(ctx).Model(user).
		Select("password_reset_token", "password_reset_expires").
		Updates(user).Error
	return errs.Internal(err, "save reset token")
}
