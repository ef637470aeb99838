package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldError is one entry of a 422 response body.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type validationErrors []fieldError

func (v validationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, strings.Join(fe.Loc, ".")+": "+fe.Msg)
	}
	return strings.Join(parts, "; ")
}

type monitorRequest struct {
	URL string `json:"url" validate:"required,max=2083,http_url"`
}

type pageQuery struct {
	Page     int `query:"page" validate:"gte=1"`
	PageSize int `query:"page_size" validate:"gte=1,lte=100"`
}

type searchQuery struct {
	URL string `query:"url" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report wire names (json or query tag) instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// checkStruct validates v and converts failures into field errors located
// under source ("body", "query").
func (s *Server) checkStruct(source string, v any) validationErrors {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return validationErrors{{Loc: []string{source}, Msg: err.Error(), Type: "value_error"}}
	}
	out := make(validationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, formatFieldError(source, fe))
	}
	return out
}

func formatFieldError(source string, fe validator.FieldError) fieldError {
	loc := []string{source, fe.Field()}
	switch fe.Tag() {
	case "required":
		return fieldError{Loc: loc, Msg: "Field required", Type: "missing"}
	case "http_url", "url":
		return fieldError{Loc: loc, Msg: "Input should be a valid URL with an http or https scheme", Type: "url_parsing"}
	case "max":
		return fieldError{Loc: loc, Msg: fmt.Sprintf("URL should have at most %s characters", fe.Param()), Type: "url_too_long"}
	case "gte":
		return fieldError{Loc: loc, Msg: fmt.Sprintf("Input should be greater than or equal to %s", fe.Param()), Type: "greater_than_equal"}
	case "lte":
		return fieldError{Loc: loc, Msg: fmt.Sprintf("Input should be less than or equal to %s", fe.Param()), Type: "less_than_equal"}
	default:
		return fieldError{Loc: loc, Msg: fmt.Sprintf("Validation failed on %s", fe.Tag()), Type: "value_error"}
	}
}

// decodeMonitorRequest reads and validates the POST /monitor body.
func (s *Server) decodeMonitorRequest(w http.ResponseWriter, r *http.Request) (monitorRequest, validationErrors) {
	var req monitorRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	err := dec.Decode(&req)
	if err == nil {
		// the body must hold exactly one JSON value
		if extra := dec.Decode(&json.RawMessage{}); !errors.Is(extra, io.EOF) {
			if extra == nil {
				extra = errors.New("unexpected data after top-level value")
			}
			return req, validationErrors{{Loc: []string{"body"}, Msg: "JSON decode error: " + extra.Error(), Type: "json_invalid"}}
		}
	}
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return req, validationErrors{{Loc: []string{"body"}, Msg: "Field required", Type: "missing"}}
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return req, validationErrors{{Loc: []string{"body", typeErr.Field}, Msg: "Input should be a valid string", Type: "string_type"}}
		default:
			return req, validationErrors{{Loc: []string{"body"}, Msg: "JSON decode error: " + err.Error(), Type: "json_invalid"}}
		}
	}
	return req, s.checkStruct("body", req)
}

// parsePageQuery reads page and page_size, applying defaults for absent
// parameters.
func (s *Server) parsePageQuery(r *http.Request) (pageQuery, validationErrors) {
	q := pageQuery{Page: 1, PageSize: 10}
	var errs validationErrors

	values := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"page", &q.Page},
		{"page_size", &q.PageSize},
	} {
		raw := values.Get(p.name)
		if !values.Has(p.name) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			errs = append(errs, fieldError{
				Loc:  []string{"query", p.name},
				Msg:  "Input should be a valid integer, unable to parse string as an integer",
				Type: "int_parsing",
			})
			continue
		}
		*p.dst = n
	}
	errs = append(errs, s.checkStruct("query", q)...)
	if len(errs) > 0 {
		return q, errs
	}
	return q, nil
}

func (s *Server) parseSearchQuery(r *http.Request) (searchQuery, validationErrors) {
	q := searchQuery{URL: r.URL.Query().Get("url")}
	return q, s.checkStruct("query", q)
}

func parseID(raw string) (int64, validationErrors) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, validationErrors{{
			Loc:  []string{"path", "result_id"},
			Msg:  "Input should be a valid integer, unable to parse string as an integer",
			Type: "int_parsing",
		}}
	}
	return id, nil
}
