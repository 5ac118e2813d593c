package helpers

import (
	"strings"
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
)

// ParseListFilter validates the list query. When strict is false an unknown
// category is dropped instead of failing; an unparsable dateFrom is always ignored.
func ParseListFilter(q dto.ListFilterQuery, strict bool, loc *time.Location) (dto.ListFilter, error) {
	var f dto.ListFilter
	if c := models.Category(strings.ToUpper(strings.TrimSpace(q.Category))); c != "" {
		switch {
		case c.Valid():
			f.Category = c
		case strict:
			return dto.ListFilter{}, apperrors.NewValidationError(map[string]string{
				"category": "Unknown category " + q.Category,
			})
		}
	}
	f.Location = strings.TrimSpace(q.Location)
	if d, ok := ParseDate(q.DateFrom, loc); ok {
		f.DateFrom = &d
	}
	return f, nil
}
