package binder

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// BindQuery creates a query parameter binder function.
//
// Fields are matched by their `query:"name"` tag; `query:"-"` and untagged
// fields are skipped. Supported kinds are string, bool, and signed or
// unsigned integers. Parameters that are absent or empty leave the field as is.
//
//	type EnrollRequest struct {
//		Size int `query:"size"`
//	}
func BindQuery() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a non-nil pointer to a struct", ErrInvalidQuery)
		}
		rv = rv.Elem()
		rt := rv.Type()

		values := r.URL.Query()
		for i := range rt.NumField() {
			field := rt.Field(i)
			name, _, _ := strings.Cut(field.Tag.Get("query"), ",")
			if name == "" || name == "-" || !field.IsExported() {
				continue
			}
			raw := strings.TrimSpace(values.Get(name))
			if raw == "" {
				continue
			}
			if err := setField(rv.Field(i), raw); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidQuery, name, err)
			}
		}
		return nil
	}
}

func setField(f reflect.Value, raw string) error {
	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetUint(n)
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}
