package services

import (
	"context"
	"encoding/json"

	"natours/errs"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the CRUD layer shared by every resource. Hooks let a resource add
// behavior around writes without reimplementing them.
type Store[T any] struct {
	DB *gorm.DB

	// Columns maps query parameter names to SQL columns for filter and sort.
	Columns map[string]string
	// Scope is applied to every read, e.g. to hide inactive users.
	Scope func(*gorm.DB) *gorm.DB
	// Protected body keys are dropped from update patches.
	Protected []string
	// Preload names associations loaded with every document returned.
	Preload []string

	AfterWrite   func(tx *gorm.DB, doc *T) error
	BeforeDelete func(tx *gorm.DB, doc *T) error
	AfterDelete  func(tx *gorm.DB, doc *T) error
}

type validator interface {
	Validate() error
}

type defaulter interface {
	ApplyDefaults()
}

func NewStore[T any](db *gorm.DB, columns map[string]string) *Store[T] {
	return &Store[T]{DB: db, Columns: columns}
}

func (s *Store[T]) read(ctx context.Context) *gorm.DB {
	db := s.DB.WithContext(ctx)
	if s.Scope != nil {
		db = db.Scopes(s.Scope)
	}
	return db
}

// List returns the documents matching q. where holds extra column conditions
// set by the caller, such as the tour of a nested review route.
func (s *Store[T]) List(ctx context.Context, q Query, where map[string]interface{}, preload ...string) ([]T, error) {
	db := s.read(ctx).Model(new(T))
	for col, v := range where {
		db = db.Where(col+" = ?", v)
	}
	for _, p := range s.preloads(preload) {
		db = db.Preload(p)
	}

	var docs []T
	if err := q.Apply(db, s.Columns).Find(&docs).Error; err != nil {
		return nil, errs.Internal(err, "list documents")
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

// Get loads one document. Unknown ids return errs.ErrNoDocument.
func (s *Store[T]) Get(ctx context.Context, id uint, preload ...string) (*T, error) {
	return s.find(ctx, id, s.preloads(preload))
}

// find loads one document with exactly the given associations.
func (s *Store[T]) find(ctx context.Context, id uint, preload []string) (*T, error) {
	db := s.read(ctx)
	for _, p := range preload {
		db = db.Preload(p)
	}

	var doc T
	if err := db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNoDocument
		}
		return nil, errs.Internal(err, "get document")
	}
	return &doc, nil
}

// Create applies defaults, validates and inserts doc.
func (s *Store[T]) Create(ctx context.Context, doc *T) error {
	if d, ok := any(doc).(defaulter); ok {
		d.ApplyDefaults()
	}
	if err := validate(doc); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(doc).Error; err != nil {
			return errors.Wrap(err, "create document")
		}
		if s.AfterWrite != nil {
			return s.AfterWrite(tx, doc)
		}
		return nil
	})
}

// Update decodes a JSON patch onto the stored document, validates the result
// and saves every column. The saved document is read back with its
// associations.
func (s *Store[T]) Update(ctx context.Context, id uint, patch []byte) (*T, error) {
	doc, err := s.find(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	patch, err = s.stripProtected(patch)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patch, doc); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, doc); err != nil {
		return nil, err
	}

	// The read scope is skipped so a patch that hides the document still
	// returns it.
	db := s.DB.WithContext(ctx)
	for _, p := range s.Preload {
		db = db.Preload(p)
	}
	var saved T
	if err := db.First(&saved, id).Error; err != nil {
		return nil, errs.Internal(err, "reload document")
	}
	return &saved, nil
}

// Save validates and writes all columns of an already stored document.
func (s *Store[T]) Save(ctx context.Context, doc *T) error {
	if err := validate(doc); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(doc).Select("*").Omit(clause.Associations, "id", "created_at").Updates(doc).Error
		if err != nil {
			return errors.Wrap(err, "update document")
		}
		if s.AfterWrite != nil {
			return s.AfterWrite(tx, doc)
		}
		return nil
	})
}

// Delete removes one document.
func (s *Store[T]) Delete(ctx context.Context, id uint) error {
	doc, err := s.find(ctx, id, nil)
	if err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.BeforeDelete != nil {
			if err := s.BeforeDelete(tx, doc); err != nil {
				return err
			}
		}
		if err := tx.Delete(doc).Error; err != nil {
			return errors.Wrap(err, "delete document")
		}
		if s.AfterDelete != nil {
			return s.AfterDelete(tx, doc)
		}
		return nil
	})
}

func (s *Store[T]) preloads(extra []string) []string {
	out := make([]string, 0, len(s.Preload)+len(extra))
	return append(append(out, s.Preload...), extra...)
}

func (s *Store[T]) stripProtected(patch []byte) ([]byte, error) {
	keys := append([]string{"id", "createdAt"}, s.Protected...)

	var body map[string]json.RawMessage
	if err := json.Unmarshal(patch, &body); err != nil {
		return nil, err
	}
	for _, k := range keys {
		delete(body, k)
	}
	return json.Marshal(body)
}

func validate(doc interface{}) error {
	if v, ok := doc.(validator); ok {
		return v.Validate()
	}
	return nil
}
