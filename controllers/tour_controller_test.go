package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"natours/config"
	"natours/logger"
	"natours/middleware"
	"natours/models"
	"natours/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTourEngine(t *testing.T) (*gin.Engine, *services.TourService, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := config.OpenDatabase(config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	dir := t.TempDir()
	tours := services.NewTourService(db)
	tc := NewTourController(tours, services.NewImageService(dir))

	r := gin.New()
	r.Use(middleware.ErrorHandler(false, logger.Nop(), nil))
	r.PATCH("/api/v1/tours/:id", tc.UpdateTour)
	return r, tours, dir
}

func multipartBody(t *testing.T, fields map[string]string, withCover bool) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withCover {
		img := image.NewRGBA(image.Rect(0, 0, 40, 30))
		img.Set(1, 1, color.RGBA{R: 200, A: 255})
		fw, err := mw.CreateFormFile("imageCover", "cover.png")
		require.NoError(t, err)
		require.NoError(t, png.Encode(fw, img))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func patchTour(t *testing.T, r *gin.Engine, path string, fields map[string]string, withCover bool) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	body, contentType := multipartBody(t, fields, withCover)
	req := httptest.NewRequest(http.MethodPatch, path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func tourFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "tours", "*.jpeg"))
	require.NoError(t, err)
	return files
}

func TestUpdateTourMultipart(t *testing.T) {
	r, tours, dir := newTourEngine(t)

	tour := &models.Tour{
		Name:         "The Northern Lights",
		Duration:     3,
		MaxGroupSize: 12,
		Difficulty:   models.DifficultyEasy,
		Price:        1497,
		Summary:      "Enjoy the Northern Lights in one of the best places in the world",
		ImageCover:   "tour-9-cover.jpg",
	}
	require.NoError(t, tours.Store.Create(context.Background(), tour))
	path := "/api/v1/tours/" + strconv.FormatUint(uint64(tour.ID), 10)

	w, body := patchTour(t, r, "/api/v1/tours/999", map[string]string{"price": "997"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Empty(t, tourFiles(t, dir), "nothing is written for an unknown tour")

	w, _ = patchTour(t, r, path, map[string]string{"difficulty": "extreme"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, tourFiles(t, dir), "images of a rejected update are removed")

	w, body = patchTour(t, r, path, map[string]string{"summary": "2024", "price": "997", "secretTour": "false"}, true)
	require.Equal(t, http.StatusOK, w.Code, body)
	got := body["data"].(map[string]interface{})["data"].(map[string]interface{})
	assert.Equal(t, "2024", got["summary"])
	assert.Equal(t, float64(997), got["price"])
	cover := got["imageCover"].(string)
	assert.Regexp(t, `^tour-\d+-\d+-cover\.jpeg$`, cover)
	files := tourFiles(t, dir)
	require.Len(t, files, 1)
	assert.Equal(t, cover, filepath.Base(files[0]))
}
