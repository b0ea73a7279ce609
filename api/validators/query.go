package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/bitedash/bitedash-backend/pkg/errors"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Page holds sanitized pagination parameters.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit/offset query parameters with sane bounds.
func ParsePage(r *http.Request) (Page, error) {
	page := Page{Limit: defaultPageLimit}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return Page{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		page.Limit = limit
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return Page{}, pkgerrors.New(pkgerrors.CodeValidation, "offset must be a non-negative integer")
		}
		page.Offset = offset
	}

	return page, nil
}

// ParseID converts a path parameter into a positive int64.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid id")
	}
	return id, nil
}
