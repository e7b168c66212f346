package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lox/meteodash/internal/models"
	"github.com/lox/meteodash/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return v
}

// criteriaQuery holds the filter query parameters shared by the data,
// series, chart and page endpoints.
type criteriaQuery struct {
	Location  string `query:"location" validate:"omitempty,max=100"`
	StartDate string `query:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"endDate" validate:"omitempty,datetime=2006-01-02"`
	TimeRange string `query:"timeRange" validate:"omitempty,oneof=1d 7d 30d 90d"`
}

// parseCriteria reads and validates filter parameters. Start after end is
// accepted and simply matches nothing.
func parseCriteria(r *http.Request) (models.FilterCriteria, error) {
	c := models.FilterCriteriaFromQuery(r.URL.Query())
	q := criteriaQuery{
		Location:  c.Location,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
		TimeRange: string(c.TimeRange),
	}
	if err := validate.Struct(q); err != nil {
		return c, errors.New(validationMessage(err))
	}
	return c, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

// observationQuery resolves criteria to a store query. A time range token
// becomes a lower bound relative to now, combined with any explicit dates.
func (s *Server) observationQuery(c models.FilterCriteria) store.ObservationQuery {
	q := store.ObservationQuery{
		City:      c.Location,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
	}
	if d := c.TimeRange.Duration(); d > 0 {
		q.Since = s.now().Add(-d)
	}
	return q
}
