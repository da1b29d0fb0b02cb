package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type enum interface {
	~string
	Valid() bool
}

func parseEnum[T enum](kind, raw string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if !v.Valid() {
		var zero T
		return zero, fmt.Errorf("%w: unknown %s %q", ErrInvalidEnum, kind, raw)
	}
	return v, nil
}

func unmarshalEnum[T enum](kind string, data []byte, dest *T) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*dest = ""
		return nil
	}
	v, err := parseEnum[T](kind, raw)
	if err != nil {
		return err
	}
	*dest = v
	return nil
}

func scanEnum[T enum](kind string, src any, dest *T) error {
	var raw string
	switch s := src.(type) {
	case string:
		raw = s
	case []byte:
		raw = string(s)
	case nil:
		return fmt.Errorf("%w: null %s", ErrInvalidEnum, kind)
	default:
		return fmt.Errorf("%w: cannot scan %T into %s", ErrInvalidEnum, src, kind)
	}
	v, err := parseEnum[T](kind, raw)
	if err != nil {
		return err
	}
	*dest = v
	return nil
}
