package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"natours/errs"
	"natours/models"
	"natours/services"
	"natours/utils"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 16 << 20

type TourController struct {
	tours  *services.TourService
	images *services.ImageService
	*Resource[models.Tour]
}

func NewTourController(tours *services.TourService, images *services.ImageService) *TourController {
	return &TourController{
		tours:    tours,
		images:   images,
		Resource: &Resource[models.Tour]{Store: tours.Store},
	}
}

// AliasTopTours presets the query of the five best rated cheap tours.
func (tc *TourController) AliasTopTours(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	c.Request.URL.RawQuery = q.Encode()
	c.Next()
}

func (tc *TourController) GetTour(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	tour, err := tc.tours.GetWithDetails(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, tour)
}

// UpdateTour accepts a JSON patch, or a multipart form whose imageCover and
// images files are resized before the remaining fields are applied.
func (tc *TourController) UpdateTour(c *gin.Context) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		tc.Resource.UpdateOne()(c)
		return
	}

	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, errs.BadRequest("Invalid multipart form: "+err.Error()))
		return
	}
	if len(form.File["imageCover"]) > 1 {
		fail(c, errs.BadRequest("Only one cover image is allowed"))
		return
	}
	if _, err := tc.tours.Store.Get(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	patch := formPatch(form.Value, tourFormKinds)
	var readers []io.Reader
	var cover io.Reader
	for _, fh := range form.File["imageCover"] {
		f, err := fh.Open()
		if err != nil {
			fail(c, err)
			return
		}
		defer f.Close()
		cover = f
	}
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			fail(c, err)
			return
		}
		defer f.Close()
		readers = append(readers, f)
	}

	var written []string
	if cover != nil || len(readers) > 0 {
		coverName, names, err := tc.images.ProcessTourImages(c.Request.Context(), id, cover, readers)
		if err != nil {
			fail(c, err)
			return
		}
		if coverName != "" {
			patch["imageCover"] = coverName
		}
		if len(names) > 0 {
			patch["images"] = names
		}
		written = append(names, coverName)
	}

	body, err := json.Marshal(patch)
	if err != nil {
		fail(c, err)
		return
	}
	tour, err := tc.tours.Store.Update(c.Request.Context(), id, body)
	if err != nil {
		_ = tc.images.RemoveTourImages(written...)
		fail(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, tour)
}

// tourFormKinds maps the JSON names of tour fields to their kinds.
var tourFormKinds = jsonKinds(reflect.TypeOf(models.Tour{}))

func jsonKinds(t reflect.Type) map[string]reflect.Kind {
	kinds := map[string]reflect.Kind{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		kinds[name] = ft.Kind()
	}
	return kinds
}

// formPatch turns text form fields into a JSON patch. Values of numeric and
// boolean fields are converted; everything else stays a string.
func formPatch(values map[string][]string, kinds map[string]reflect.Kind) map[string]interface{} {
	patch := map[string]interface{}{}
	for k, vals := range values {
		if len(vals) == 0 {
			continue
		}
		v := vals[len(vals)-1]
		patch[k] = v
		switch kinds[k] {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				patch[k] = n
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(v); err == nil {
				patch[k] = b
			}
		}
	}
	return patch
}

func (tc *TourController) GetTourStats(c *gin.Context) {
	stats, err := tc.tours.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"stats": stats}})
}

func (tc *TourController) GetMonthlyPlan(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || !services.ValidYear(year) {
		fail(c, errs.InvalidID("year", c.Param("year")))
		return
	}
	plan, err := tc.tours.MonthlyPlan(c.Request.Context(), year)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"plan": plan}})
}

// GetToursWithin serves /tours-within/:distance/center/:latlng/unit/:unit.
func (tc *TourController) GetToursWithin(c *gin.Context) {
	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil {
		fail(c, errs.BadRequest("Please provide the distance as a number."))
		return
	}
	center, err := services.ParseLatLng(c.Param("latlng"))
	if err != nil {
		fail(c, err)
		return
	}
	tours, err := tc.tours.Within(c.Request.Context(), distance, center, c.Param("unit"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.JSONList(c, tours, len(tours))
}

func (tc *TourController) GetDistances(c *gin.Context) {
	center, err := services.ParseLatLng(c.Param("latlng"))
	if err != nil {
		fail(c, err)
		return
	}
	distances, err := tc.tours.Distances(c.Request.Context(), center, c.Param("unit"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, distances)
}
