// Package httpx holds the small request-parsing helpers shared by every
// handler: strict JSON decoding, validator error flattening and the
// limit/offset pagination contract of the admin list endpoints.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DecodeJSON decodes exactly one JSON object from body into v. Unknown
// fields and trailing content are rejected so a malformed checkout or
// lead payload fails loudly instead of half-parsing.
func DecodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// ValidationDetails flattens validator errors into the field→tag map
// carried in the error response details, e.g. {"phone": "phone"}.
func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// ParseLimitOffset reads the limit and offset query parameters, applying
// defaultLimit when absent and clamping to maxLimit.
func ParseLimitOffset(values url.Values, defaultLimit, maxLimit int64) (int64, int64, error) {
	limit, err := parsePositive(values.Get("limit"), defaultLimit, false)
	if err != nil {
		return 0, 0, errors.New("invalid limit")
	}
	offset, err := parsePositive(values.Get("offset"), 0, true)
	if err != nil {
		return 0, 0, errors.New("invalid offset")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, offset, nil
}

func parsePositive(raw string, fallback int64, allowZero bool) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if parsed < 0 || (parsed == 0 && !allowZero) {
		return 0, errors.New("out of range")
	}
	return parsed, nil
}
