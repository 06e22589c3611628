package errs

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNewSetsStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fail", New("x", http.StatusNotFound).Status)
	assert.Equal(t, "error", New("x", http.StatusInternalServerError).Status)
	assert.True(t, New("x", http.StatusBadRequest).IsOperational)
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	v := &ValidationError{}
	require.NoError(t, v.Err())

	v.Add("name", "A tour must have a name")
	v.Add("price", "A tour must have a price")
	assert.Equal(t, "Invalid input data. A tour must have a name. A tour must have a price", v.Error())
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	expired := &jwt.ValidationError{Errors: jwt.ValidationErrorExpired, Inner: jwt.ErrTokenExpired}
	malformed := &jwt.ValidationError{Errors: jwt.ValidationErrorMalformed}

	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"not found", gorm.ErrRecordNotFound, 404, "No document found with that ID"},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'The Forest Hiker' for key 'tours.idx_tours_name'"}, 400, `Duplicate field value: "The Forest Hiker". Please use another value!`},
		{"postgres duplicate", &pgconn.PgError{Code: "23505", Detail: "Key (email)=(a@b.io) already exists."}, 400, `Duplicate field value: "a@b.io". Please use another value!`},
		{"sqlite duplicate", errors.New("constraint failed: UNIQUE constraint failed: reviews.tour_id, reviews.user_id (2067)"), 400, "Duplicate field value: tour_id, user_id. Please use another value!"},
		{"jwt expired", expired, 401, "Your token has expired! Please log in again."},
		{"jwt invalid", malformed, 401, "Invalid token. Please log in again!"},
		{"validation", &ValidationError{Fields: []FieldError{{Field: "name", Message: "bad"}}}, 400, "Invalid input data. bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.StatusCode)
			assert.Equal(t, tt.message, got.Message)
			assert.True(t, got.IsOperational)
		})
	}
}

func TestTranslateUnknown(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Translate(errors.New("boom")))
	assert.Nil(t, Translate(nil))
}

func TestTranslateKeepsAppError(t *testing.T) {
	t.Parallel()

	orig := Forbidden("nope")
	assert.Same(t, orig, Translate(Internal(orig, "wrapped")))
}
