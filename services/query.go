package services

import (
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	DefaultSort  = "-createdAt"
)

// reservedParams never become filters.
var reservedParams = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// multiValueParams may repeat in a query string (duration=5&duration=9) and
// then match any of the values. Every other repeated key keeps its last value.
var multiValueParams = map[string]bool{
	"duration":        true,
	"ratingsQuantity": true,
	"ratingsAverage":  true,
	"maxGroupSize":    true,
	"difficulty":      true,
	"price":           true,
}

var filterOperators = map[string]string{
	"":    "=",
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
}

// Filter is one condition parsed from the query string.
type Filter struct {
	Field  string
	Op     string
	Values []string
}

// Query holds the list options of a request: filters, sort, projection and
// pagination.
type Query struct {
	Filters []Filter
	Sort    []string
	Fields  []string
	Page    int
	Limit   int
}

// ParseQuery reads filters (price[gte]=500), sort, fields, page and limit.
func ParseQuery(values url.Values) Query {
	q := Query{Page: DefaultPage, Limit: DefaultLimit}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		last := vals[len(vals)-1]

		if reservedParams[key] {
			switch key {
			case "sort":
				q.Sort = splitList(last)
			case "fields":
				q.Fields = splitList(last)
			case "page":
				if n, err := strconv.Atoi(last); err == nil && n > 0 {
					q.Page = n
				}
			case "limit":
				if n, err := strconv.Atoi(last); err == nil && n > 0 {
					q.Limit = n
				}
			}
			continue
		}

		field, op := splitOperator(key)
		if _, ok := filterOperators[op]; !ok {
			continue
		}
		f := Filter{Field: field, Op: op, Values: []string{last}}
		if op == "" && len(vals) > 1 && multiValueParams[field] {
			f.Values = vals
		}
		q.Filters = append(q.Filters, f)
	}
	return q
}

// Offset is the number of rows skipped for the requested page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Apply adds the filters, order and pagination of q to db. Keys missing from
// columns are ignored.
func (q Query) Apply(db *gorm.DB, columns map[string]string) *gorm.DB {
	for _, f := range q.Filters {
		col, ok := columns[f.Field]
		if !ok {
			continue
		}
		if len(f.Values) > 1 {
			args := make([]interface{}, len(f.Values))
			for i, v := range f.Values {
				args[i] = typedValue(v)
			}
			db = db.Where(col+" IN ?", args)
			continue
		}
		db = db.Where(col+" "+filterOperators[f.Op]+" ?", typedValue(f.Values[0]))
	}

	sort := q.Sort
	if len(sort) == 0 {
		sort = []string{DefaultSort}
	}
	for _, s := range sort {
		desc := strings.HasPrefix(s, "-")
		col, ok := columns[strings.TrimPrefix(s, "-")]
		if !ok {
			continue
		}
		if desc {
			col += " DESC"
		}
		db = db.Order(col)
	}
	if id, ok := columns["id"]; ok {
		db = db.Order(id)
	}

	return db.Offset(q.Offset()).Limit(q.Limit)
}

// splitOperator turns "price[gte]" into ("price", "gte").
func splitOperator(key string) (string, string) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, ""
	}
	return key[:open], key[open+1 : len(key)-1]
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func typedValue(s string) interface{} {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
