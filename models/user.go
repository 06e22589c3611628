package models

import (
	"encoding/json"
	"strings"
	"time"

	"natours/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"

	DefaultPhoto = "default.jpg"

	passwordCost     = 12
	resetTokenExpiry = 10 * time.Minute
)

type User struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Name                 string     `gorm:"size:40;not null" json:"name" validate:"required,min=2,max=40"`
	Email                string     `gorm:"size:191;uniqueIndex;not null" json:"email" validate:"required,email"`
	Photo                string     `gorm:"size:255;default:default.jpg" json:"photo"`
	Role                 string     `gorm:"size:16;default:user;index" json:"role" validate:"omitempty,oneof=user guide lead-guide admin"`
	Password             string     `gorm:"size:255;not null" json:"-" validate:"required"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   *string    `gorm:"size:64;index" json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `gorm:"default:true;index" json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"-"`
}

var userMessages = messages{
	"name.required":     "Please tell us your name!",
	"name.min":          "A name must have at least 2 characters",
	"name.max":          "A name must have at most 40 characters",
	"email.required":    "Please provide your email",
	"email.email":       "Please provide a valid email",
	"role.oneof":        "Role is either: user, guide, lead-guide, admin",
	"Password.required": "Please provide a password",
}

// UnmarshalJSON also accepts a bare numeric id, which is how tour guides are
// referenced in request bodies.
func (u *User) UnmarshalJSON(b []byte) error {
	var id uint
	if err := json.Unmarshal(b, &id); err == nil {
		u.ID = id
		return nil
	}

	type alias User
	a := alias(*u)
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*u = User(a)
	return nil
}

func (u *User) ApplyDefaults() {
	u.Active = true
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
}

func (u *User) Validate() error {
	return validateStruct(u, userMessages).Err()
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
	return nil
}

// FirstName is used to greet the user in emails.
func (u *User) FirstName() string {
	if fields := strings.Fields(u.Name); len(fields) > 0 {
		return fields[0]
	}
	return u.Name
}

// SetPassword hashes plain with bcrypt. For existing accounts it also stamps
// PasswordChangedAt one second in the past so a token issued in the same
// second as the change stays valid.
func (u *User) SetPassword(plain string, isNew bool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	if !isNew {
		changed := time.Now().Add(-time.Second)
		u.PasswordChangedAt = &changed
	}
	return nil
}

func (u *User) CorrectPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate)) == nil
}

// ChangedPasswordAfter reports whether the password changed after a token
// issued at iat.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > iat.Unix()
}

// CreatePasswordResetToken stores the hash of a fresh token valid for ten
// minutes and returns the plain token for the email.
func (u *User) CreatePasswordResetToken() (string, error) {
	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return "", err
	}
	hashed := utils.HashToken(token)
	expires := time.Now().Add(resetTokenExpiry)
	u.PasswordResetToken = &hashed
	u.PasswordResetExpires = &expires
	return token, nil
}

func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
}

// ActiveUsers hides deactivated accounts from every query it scopes.
func ActiveUsers(db *gorm.DB) *gorm.DB {
	return db.Where("users.active = ?", true)
}

// UserFields are the query parameters usable for filtering and sorting users.
var UserFields = map[string]string{
	"id":        "users.id",
	"name":      "users.name",
	"email":     "users.email",
	"role":      "users.role",
	"createdAt": "users.created_at",
}

// PasswordInput is the password pair sent on signup, reset and change.
type PasswordInput struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

var passwordMessages = messages{
	"password.required":        "Please provide a password",
	"password.min":             "A password must have at least 8 characters",
	"passwordConfirm.required": "Please confirm your password",
	"passwordConfirm.eqfield":  "Passwords are not the same!",
}

func (p *PasswordInput) Validate() error {
	return validateStruct(p, passwordMessages).Err()
}

// SignupInput is the only data accepted when creating an account.
type SignupInput struct {
	Name  string `json:"name" validate:"required,min=2,max=40"`
	Email string `json:"email" validate:"required,email"`
	PasswordInput
}

func (s *SignupInput) Validate() error {
	msgs := messages{}
	for k, v := range userMessages {
		msgs[k] = v
	}
	for k, v := range passwordMessages {
		msgs[k] = v
	}
	return validateStruct(s, msgs).Err()
}
