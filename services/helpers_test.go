package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"natours/config"
	"natours/models"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := config.OpenDatabase(config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, name, email, role string) *models.User {
	t.Helper()

	u := &models.User{Name: name, Email: email, Role: role}
	require.NoError(t, u.SetPassword("test1234", true))
	u.ApplyDefaults()
	require.NoError(t, db.Create(u).Error)
	return u
}

func createTour(t *testing.T, db *gorm.DB, name string, price float64, mutate ...func(*models.Tour)) *models.Tour {
	t.Helper()

	tour := &models.Tour{
		Name:         name,
		Duration:     7,
		MaxGroupSize: 10,
		Difficulty:   models.DifficultyMedium,
		Price:        price,
		Summary:      "A tour used in tests",
		ImageCover:   "cover.jpg",
		StartDates:   datatypes.JSONSlice[time.Time]{},
	}
	tour.ApplyDefaults()
	for _, m := range mutate {
		m(tour)
	}
	require.NoError(t, db.Omit("Guides", "Reviews").Create(tour).Error)
	return tour
}

type sentEmail struct {
	kind string
	to   string
	url  string
}

// fakeNotifier records emails instead of sending them.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *fakeNotifier) SendWelcome(_ context.Context, user *models.User, url string) error {
	return n.record("welcome", user, url)
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, user *models.User, url string) error {
	return n.record("reset", user, url)
}

func (n *fakeNotifier) record(kind string, user *models.User, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentEmail{kind: kind, to: user.Email, url: url})
	return nil
}

func (n *fakeNotifier) last() sentEmail {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentEmail{}
	}
	return n.sent[len(n.sent)-1]
}

// fakeGateway returns canned results and keeps the last checkout request.
type fakeGateway struct {
	lastReq  CheckoutRequest
	checkout *CompletedCheckout
	err      error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return &CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example.com/cs_test_1"}, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, _ string) (*CompletedCheckout, error) {
	return g.checkout, g.err
}
