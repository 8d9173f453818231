package repoql

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

var recordType = reflect.TypeFor[Record]()

// structFields maps a struct type to its db-tagged field indexes.
var structFields sync.Map // reflect.Type -> map[string][]int

func fieldsOf(t reflect.Type) map[string][]int {
	if cached, ok := structFields.Load(t); ok {
		return cached.(map[string][]int)
	}
	fields := make(map[string][]int)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, ok := sf.Tag.Lookup("db")
		if !ok || tag == "-" {
			continue
		}
		column, _, _ := strings.Cut(tag, ",")
		fields[column] = sf.Index
	}
	actual, _ := structFields.LoadOrStore(t, fields)
	return actual.(map[string][]int)
}

// Decode maps a record onto T. T may be Record, map[string]any, a struct
// (or pointer to one) with db tags, or a scalar when the record holds a
// single column.
func Decode[T any](rec Record) (T, error) {
	var out T
	if err := decodeInto(reflect.ValueOf(&out).Elem(), rec); err != nil {
		return out, err
	}
	return out, nil
}

func decodeInto(dst reflect.Value, rec Record) error {
	t := dst.Type()
	switch {
	case t == recordType:
		dst.Set(reflect.ValueOf(rec))
		return nil
	case t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.Interface:
		m := reflect.MakeMapWithSize(t, len(rec))
		for k, v := range rec {
			if v == nil {
				m.SetMapIndex(reflect.ValueOf(k), reflect.Zero(t.Elem()))
				continue
			}
			m.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(v))
		}
		dst.Set(m)
		return nil
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct && t.Elem() != timeType:
		ptr := reflect.New(t.Elem())
		if err := decodeStruct(ptr.Elem(), rec); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	case t.Kind() == reflect.Struct && t != timeType:
		return decodeStruct(dst, rec)
	}

	if len(rec) != 1 {
		return fmt.Errorf("cannot decode a record of %d columns into %s", len(rec), t)
	}
	for column, v := range rec {
		if err := assign(dst, v); err != nil {
			return fmt.Errorf("column %s: %w", column, err)
		}
	}
	return nil
}

func decodeStruct(dst reflect.Value, rec Record) error {
	fields := fieldsOf(dst.Type())
	for column, v := range rec {
		index, ok := fields[column]
		if !ok {
			continue
		}
		if err := assign(dst.FieldByIndex(index), v); err != nil {
			return fmt.Errorf("column %s: %w", column, err)
		}
	}
	return nil
}

var (
	timeType    = reflect.TypeFor[time.Time]()
	scannerType = reflect.TypeFor[sql.Scanner]()
)

// assign stores a storage value into dst, converting between the
// representations drivers commonly return.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(v)
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		switch s := v.(type) {
		case []byte:
			dst.SetString(string(s))
			return nil
		case time.Time:
			dst.SetString(s.Format(time.RFC3339))
			return nil
		}
	case reflect.Bool:
		switch n := v.(type) {
		case int64:
			dst.SetBool(n != 0)
			return nil
		case int:
			dst.SetBool(n != 0)
			return nil
		}
	case reflect.Struct:
		if dst.Type() == timeType {
			t, err := parseTime(v)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}

	if isNumber(src.Kind()) && isNumber(dst.Kind()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	if src.Type().ConvertibleTo(dst.Type()) && src.Kind() == dst.Kind() {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func parseTime(v any) (time.Time, error) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case []byte:
		s = string(val)
	case int64:
		return time.Unix(val, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot assign %T to time.Time", v)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Encode maps a struct with db tags (or a map) to a record keyed by column.
func Encode(v any) (Record, error) {
	switch m := v.(type) {
	case Record:
		return m, nil
	case map[string]any:
		return Record(m), nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot encode a nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot encode %T as a record", v)
	}
	fields := fieldsOf(rv.Type())
	rec := make(Record, len(fields))
	for column, index := range fields {
		fv := rv.FieldByIndex(index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				rec[column] = nil
				continue
			}
			fv = fv.Elem()
		}
		rec[column] = fv.Interface()
	}
	return rec, nil
}
