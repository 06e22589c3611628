package errs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	quotedValue = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	pgKeyValue  = regexp.MustCompile(`=\((.*)\) already exists`)
)

// Translate maps known library errors onto operational AppErrors. It returns
// nil when err is not recognised, which the error handler treats as a bug.
func Translate(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return Wrap(err, verr.Error(), http.StatusBadRequest)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(err, ErrNoDocument.Message, http.StatusNotFound)
	}

	if value, ok := DuplicateValue(err); ok {
		return Wrap(err, fmt.Sprintf("Duplicate field value: %s. Please use another value!", value), http.StatusBadRequest)
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return Wrap(err, "Your token has expired! Please log in again.", http.StatusUnauthorized)
	}
	var jwtErr *jwt.ValidationError
	if errors.As(err, &jwtErr) {
		return Wrap(err, "Invalid token. Please log in again!", http.StatusUnauthorized)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return Wrap(err, "Invalid input data. Malformed JSON body", http.StatusBadRequest)
	case errors.As(err, &typeErr):
		return Wrap(err, fmt.Sprintf("Invalid input data. %s has the wrong type", typeErr.Field), http.StatusBadRequest)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return Wrap(err, "Request body is too large", http.StatusRequestEntityTooLarge)
	}

	return nil
}

// DuplicateValue reports whether err is a unique-constraint violation from
// MySQL, Postgres or SQLite and extracts the offending value when the driver
// includes it.
func DuplicateValue(err error) (string, bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		if v := quotedValue.FindString(myErr.Message); v != "" {
			return `"` + strings.Trim(v, `'"`) + `"`, true
		}
		return "value", true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if m := pgKeyValue.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			return `"` + m[1] + `"`, true
		}
		return pgErr.ConstraintName, true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "value", true
	}

	msg := err.Error()
	if idx := strings.Index(msg, "UNIQUE constraint failed: "); idx >= 0 {
		cols := strings.TrimPrefix(msg[idx:], "UNIQUE constraint failed: ")
		if end := strings.Index(cols, " ("); end >= 0 {
			cols = cols[:end]
		}
		parts := strings.Split(cols, ",")
		for i, p := range parts {
			p = strings.TrimSpace(p)
			parts[i] = p
			if dot := strings.LastIndex(p, "."); dot >= 0 {
				parts[i] = p[dot+1:]
			}
		}
		return strings.Join(parts, ", "), true
	}

	return "", false
}
