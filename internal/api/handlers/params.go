package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/console-zone/rental/internal/apperror"
	"github.com/console-zone/rental/internal/storage"
)

// parseDate reads a YYYY-MM-DD calendar date as UTC midnight.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperror.New(apperror.KindValidation, "%s is required", field)
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, apperror.New(apperror.KindValidation, "%s must be a date like 2025-01-31", field)
	}
	return t.UTC(), nil
}

// dateRange reads start_date and end_date from the query string.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, err := parseDate("start_date", q.Get("start_date"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("end_date", q.Get("end_date"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, apperror.New(apperror.KindValidation, "end_date must be after start_date")
	}
	return start, end, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.New(apperror.KindValidation, "%s must be an integer", key)
	}
	return v, nil
}

// storeError classifies a store failure for the client.
func storeError(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.New(apperror.KindNotFound, "%s not found", what)
	}
	return apperror.Wrap(apperror.KindPersistence, err, "loading "+what)
}
