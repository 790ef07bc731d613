package api

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})
}

// ListQuery is the pagination contract shared by list and search endpoints.
type ListQuery struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// SearchQuery adds the required search term.
type SearchQuery struct {
	ListQuery
	Q string `query:"q" validate:"required"`
}

// BindList parses pagination parameters, applying defaults before
// validation. Returns nil and writes a 400 on invalid input.
func BindList(w http.ResponseWriter, r *http.Request) *ListQuery {
	q := &ListQuery{Limit: 20}
	if !bindQuery(w, r, q) {
		return nil
	}
	return q
}

// BindSearch parses search parameters. The search term is required and must
// not be blank.
func BindSearch(w http.ResponseWriter, r *http.Request) *SearchQuery {
	q := &SearchQuery{ListQuery: ListQuery{Limit: 20}}
	if !bindQuery(w, r, q) {
		return nil
	}
	q.Q = strings.TrimSpace(q.Q)
	if q.Q == "" {
		WriteError(w, r, NewValidationError("must not be blank", "q"))
		return nil
	}
	return q
}

// bindQuery fills dest's `query`-tagged fields from the URL query string and
// validates the result. Only string and int fields are used by this API.
func bindQuery(w http.ResponseWriter, r *http.Request, dest any) bool {
	values := r.URL.Query()
	v := reflect.ValueOf(dest).Elem()

	var fill func(v reflect.Value) *APIError
	fill = func(v reflect.Value) *APIError {
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous {
				if err := fill(v.Field(i)); err != nil {
					return err
				}
				continue
			}
			name := strings.SplitN(field.Tag.Get("query"), ",", 2)[0]
			if name == "" || name == "-" || !values.Has(name) {
				continue
			}
			raw := values.Get(name)
			switch field.Type.Kind() {
			case reflect.String:
				v.Field(i).SetString(raw)
			case reflect.Int:
				n, err := strconv.Atoi(raw)
				if err != nil {
					return NewValidationError("must be an integer", name)
				}
				v.Field(i).SetInt(int64(n))
			}
		}
		return nil
	}

	if apiErr := fill(v); apiErr != nil {
		WriteError(w, r, apiErr)
		return false
	}

	if err := validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			WriteError(w, r, NewValidationError(formatValidation(fe.Tag(), fe.Param()), fe.Field()))
		} else {
			WriteError(w, r, ErrBadRequest)
		}
		return false
	}
	return true
}

func formatValidation(tag, param string) string {
	switch tag {
	case "required":
		return "required"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	default:
		if param != "" {
			return tag + "=" + param
		}
		return tag
	}
}
