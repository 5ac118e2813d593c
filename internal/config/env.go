package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// applyEnv overrides every field carrying an `env` tag whose variable is set.
// Nested sections are walked recursively.
func applyEnv(section reflect.Value) error {
	if section.Kind() == reflect.Ptr {
		section = section.Elem()
	}
	if section.Kind() != reflect.Struct {
		return nil
	}

	for i := 0; i < section.NumField(); i++ {
		field := section.Field(i)
		meta := section.Type().Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field); err != nil {
				return err
			}
			continue
		}

		name := meta.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := setFromEnv(field, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("%s (%s): %w", name, meta.Name, err)
		}
	}
	return nil
}

// setFromEnv parses raw into field. Slices of strings are comma separated.
func setFromEnv(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", raw)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		var items []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}
