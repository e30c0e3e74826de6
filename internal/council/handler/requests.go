package handler

import (
	"net/http"
	"strconv"
	"strings"

	"councilwatch/internal/council/query"
	dErrors "councilwatch/pkg/domain-errors"
)

const maxReportsLimit = 200

// AppStateRequest is the body of PUT /app/state.
type AppStateRequest struct {
	Foreground *bool `json:"foreground"`
}

func (r AppStateRequest) Validate() error {
	if r.Foreground == nil {
		return dErrors.New(dErrors.CodeValidation, "foreground is required")
	}
	return nil
}

// ActiveCouncilRequest is the body of PUT /app/active-council.
type ActiveCouncilRequest struct {
	Council string `json:"council"`
}

func (r ActiveCouncilRequest) Normalized() string {
	return strings.ToLower(strings.TrimSpace(r.Council))
}

func parseRecentFilter(r *http.Request) (query.RecentFilter, error) {
	q := r.URL.Query()
	filter := query.RecentFilter{Status: strings.TrimSpace(q.Get("status"))}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxReportsLimit {
			return query.RecentFilter{}, dErrors.New(dErrors.CodeBadRequest,
				"limit must be between 1 and "+strconv.Itoa(maxReportsLimit))
		}
		filter.Limit = n
	}
	return filter, nil
}
