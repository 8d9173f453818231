package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Converter is an attribute converter: a pair of functions mapping a
// logical value to its storage form and back.
type Converter struct {
	ToStorage   func(any) (any, error)
	FromStorage func(any) (any, error)
}

// Named converters usable from YAML schemas and struct tags.
var builtinConverters = map[string]*Converter{
	"json":     JSONConverter(),
	"unixtime": UnixTimeConverter(),
	"boolint":  BoolIntConverter(),
}

// LookupConverter returns a named built-in converter.
func LookupConverter(name string) (*Converter, error) {
	c, ok := builtinConverters[name]
	if !ok {
		return nil, fmt.Errorf("unknown converter %q", name)
	}
	return c, nil
}

// JSONConverter stores values as JSON text.
func JSONConverter() *Converter {
	return &Converter{
		ToStorage: func(v any) (any, error) {
			data, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			return string(data), nil
		},
		FromStorage: func(v any) (any, error) {
			var data []byte
			switch s := v.(type) {
			case string:
				data = []byte(s)
			case []byte:
				data = s
			default:
				return v, nil
			}
			var out any
			if err := json.Unmarshal(data, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// UnixTimeConverter stores time.Time values as Unix seconds.
func UnixTimeConverter() *Converter {
	return &Converter{
		ToStorage: func(v any) (any, error) {
			switch t := v.(type) {
			case time.Time:
				return t.Unix(), nil
			case *time.Time:
				return t.Unix(), nil
			}
			return v, nil
		},
		FromStorage: func(v any) (any, error) {
			switch n := v.(type) {
			case int64:
				return time.Unix(n, 0).UTC(), nil
			case int:
				return time.Unix(int64(n), 0).UTC(), nil
			case float64:
				return time.Unix(int64(n), 0).UTC(), nil
			case string:
				sec, err := strconv.ParseInt(n, 10, 64)
				if err != nil {
					return nil, err
				}
				return time.Unix(sec, 0).UTC(), nil
			}
			return v, nil
		},
	}
}

// BoolIntConverter stores booleans as 0 and 1.
func BoolIntConverter() *Converter {
	return &Converter{
		ToStorage: func(v any) (any, error) {
			if b, ok := v.(bool); ok {
				if b {
					return int64(1), nil
				}
				return int64(0), nil
			}
			return v, nil
		},
		FromStorage: func(v any) (any, error) {
			switch n := v.(type) {
			case int64:
				return n != 0, nil
			case int:
				return n != 0, nil
			case bool:
				return n, nil
			}
			return v, nil
		},
	}
}
