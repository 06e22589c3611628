package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"natours/services"
	"natours/utils"

	"github.com/gin-gonic/gin"
)

// Resource builds the standard list, read, create, update and delete handlers
// for one model on top of its store.
type Resource[T any] struct {
	Store *services.Store[T]
}

func (r *Resource[T]) GetAll() gin.HandlerFunc {
	return handle(func(c *gin.Context) error {
		q := services.ParseQuery(c.Request.URL.Query())
		docs, err := r.Store.List(c.Request.Context(), q, nil)
		if err != nil {
			return err
		}
		return sendList(c, docs, q.Fields, len(docs))
	})
}

func (r *Resource[T]) GetOne() gin.HandlerFunc {
	return handle(func(c *gin.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		doc, err := r.Store.Get(c.Request.Context(), id)
		if err != nil {
			return err
		}
		utils.JSONSuccess(c, http.StatusOK, doc)
		return nil
	})
}

func (r *Resource[T]) CreateOne() gin.HandlerFunc {
	return handle(func(c *gin.Context) error {
		doc := new(T)
		if err := bindJSON(c, doc); err != nil {
			return err
		}
		if err := r.Store.Create(c.Request.Context(), doc); err != nil {
			return err
		}
		utils.JSONSuccess(c, http.StatusCreated, doc)
		return nil
	})
}

func (r *Resource[T]) UpdateOne() gin.HandlerFunc {
	return handle(func(c *gin.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		body, err := readBody(c)
		if err != nil {
			return err
		}
		doc, err := r.Store.Update(c.Request.Context(), id, body)
		if err != nil {
			return err
		}
		utils.JSONSuccess(c, http.StatusOK, doc)
		return nil
	})
}

func (r *Resource[T]) DeleteOne() gin.HandlerFunc {
	return handle(func(c *gin.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		if err := r.Store.Delete(c.Request.Context(), id); err != nil {
			return err
		}
		utils.NoContent(c)
		return nil
	})
}

func sendList(c *gin.Context, docs interface{}, fields []string, n int) error {
	data, err := project(docs, fields)
	if err != nil {
		return err
	}
	utils.JSONList(c, data, n)
	return nil
}

// project applies ?fields= to a list. Names prefixed with "-" are excluded;
// otherwise only the named fields and id are kept.
func project(docs interface{}, fields []string) (interface{}, error) {
	if len(fields) == 0 {
		return docs, nil
	}

	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, err
	}
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}

	include := map[string]bool{}
	exclude := map[string]bool{}
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			exclude[strings.TrimPrefix(f, "-")] = true
		} else {
			include[f] = true
		}
	}

	for _, row := range rows {
		for k := range row {
			switch {
			case exclude[k]:
				delete(row, k)
			case len(include) > 0 && !include[k] && k != "id":
				delete(row, k)
			}
		}
	}
	return rows, nil
}
