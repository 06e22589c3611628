package models

import (
	"encoding/json"
	"testing"
	"time"

	"natours/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func validTour() *Tour {
	return &Tour{
		Name:         "The Forest Hiker",
		Duration:     5,
		MaxGroupSize: 25,
		Difficulty:   DifficultyEasy,
		Price:        397,
		Summary:      "Breathtaking hike through the Canadian Banff National Park",
		ImageCover:   "tour-1-cover.jpg",
	}
}

func TestTourValidate(t *testing.T) {
	t.Parallel()

	tour := validTour()
	tour.ApplyDefaults()
	require.NoError(t, tour.Validate())
	assert.Equal(t, DefaultRatingsAverage, tour.RatingsAverage)
}

func TestTourValidateMessages(t *testing.T) {
	t.Parallel()

	tour := &Tour{Name: "short", Difficulty: "extreme", RatingsAverage: 4.5}
	err := tour.Validate()
	require.Error(t, err)

	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	msg := err.Error()
	assert.Contains(t, msg, "Invalid input data.")
	assert.Contains(t, msg, "A tour name must have more or equal then 10 characters")
	assert.Contains(t, msg, "Difficulty is either: easy, medium, difficult")
	assert.Contains(t, msg, "A tour must have a price")
	assert.Contains(t, msg, "A tour must have a cover image")
}

func TestTourPriceDiscount(t *testing.T) {
	t.Parallel()

	tour := validTour()
	tour.ApplyDefaults()
	discount := 500.0
	tour.PriceDiscount = &discount
	err := tour.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Discount price (500) should be below regular price")
}

func TestTourBeforeSave(t *testing.T) {
	t.Parallel()

	tour := validTour()
	tour.RatingsAverage = 4.666
	tour.StartLocation = datatypes.NewJSONType(GeoPoint{Coordinates: []float64{-80.18, 25.77}})
	require.NoError(t, tour.BeforeSave(nil))

	assert.Equal(t, "the-forest-hiker", tour.Slug)
	assert.Equal(t, 4.7, tour.RatingsAverage)
	assert.Equal(t, "Point", tour.StartLocation.Data().Type)
	assert.NotNil(t, tour.Images)
}

func TestTourDurationWeeks(t *testing.T) {
	t.Parallel()

	tour := &Tour{Duration: 14}
	require.NoError(t, tour.AfterFind(nil))
	assert.Equal(t, 2.0, tour.DurationWeeks)
}

func TestUserUnmarshalAcceptsID(t *testing.T) {
	t.Parallel()

	var tour Tour
	require.NoError(t, json.Unmarshal([]byte(`{"guides":[3, {"id":7,"name":"Lead"}]}`), &tour))
	require.Len(t, tour.Guides, 2)
	assert.Equal(t, uint(3), tour.Guides[0].ID)
	assert.Equal(t, uint(7), tour.Guides[1].ID)
	assert.Equal(t, "Lead", tour.Guides[1].Name)
}

func TestUserUnmarshalPatchKeepsFields(t *testing.T) {
	t.Parallel()

	u := User{ID: 1, Name: "Jonas", Email: "jonas@example.com", Password: "hash"}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Jonas S","password":"x"}`), &u))
	assert.Equal(t, "Jonas S", u.Name)
	assert.Equal(t, "jonas@example.com", u.Email)
	assert.Equal(t, "hash", u.Password)
}

func TestUserPassword(t *testing.T) {
	t.Parallel()

	u := &User{}
	require.NoError(t, u.SetPassword("pass1234", false))
	assert.True(t, u.CorrectPassword("pass1234"))
	assert.False(t, u.CorrectPassword("wrong"))

	assert.False(t, u.ChangedPasswordAfter(time.Now()))
	assert.True(t, u.ChangedPasswordAfter(time.Now().Add(-time.Hour)))
}

func TestUserResetToken(t *testing.T) {
	t.Parallel()

	u := &User{}
	token, err := u.CreatePasswordResetToken()
	require.NoError(t, err)
	require.NotNil(t, u.PasswordResetToken)
	assert.NotEqual(t, token, *u.PasswordResetToken)
	assert.Len(t, *u.PasswordResetToken, 64)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *u.PasswordResetExpires, 5*time.Second)

	u.ClearPasswordReset()
	assert.Nil(t, u.PasswordResetToken)
}

func TestUserValidate(t *testing.T) {
	t.Parallel()

	u := &User{Name: "J", Email: "not-an-email"}
	err := u.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please provide a valid email")
	assert.Contains(t, err.Error(), "Please provide a password")
	assert.Contains(t, err.Error(), "A name must have at least 2 characters")
}

func TestReviewJSON(t *testing.T) {
	t.Parallel()

	var r Review
	require.NoError(t, json.Unmarshal([]byte(`{"review":"Great","rating":5,"tour":4,"user":9}`), &r))
	assert.Equal(t, uint(4), r.TourID)
	assert.Equal(t, uint(9), r.UserID)
	require.NoError(t, r.Validate())

	r.User = &User{ID: 9, Name: "Ann", Photo: "ann.jpg", Email: "secret@example.com"}
	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":0,"review":"Great","rating":5,"createdAt":"0001-01-01T00:00:00Z","tour":4,"user":{"id":9,"name":"Ann","photo":"ann.jpg"}}`, string(out))
}

func TestReviewValidate(t *testing.T) {
	t.Parallel()

	r := &Review{Rating: 6}
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Review can not be empty!")
	assert.Contains(t, err.Error(), "Rating must be below 5.0")
	assert.Contains(t, err.Error(), "Review must belong to a tour.")
}

func TestBookingDefaults(t *testing.T) {
	t.Parallel()

	var b Booking
	require.NoError(t, json.Unmarshal([]byte(`{"tour":1,"user":2,"price":497}`), &b))
	b.ApplyDefaults()
	require.NotNil(t, b.Paid)
	assert.True(t, *b.Paid)
	require.NoError(t, b.Validate())
}

func TestAngularDistance(t *testing.T) {
	t.Parallel()

	la := NewPoint(34.0522, -118.2437)
	sf := NewPoint(37.7749, -122.4194)
	km := AngularDistance(la, sf) * EarthRadiusKm
	assert.InDelta(t, 559, km, 5)
	assert.Zero(t, AngularDistance(la, la))
}
