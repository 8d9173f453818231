package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FromStruct builds an entity from the db tags of T. The logical name of
// a field is its Go name with the first letter lowered, so FirstName is
// queried as firstName and ID stays ID. The tag option pk marks the
// identifier and a convert tag names a built-in converter:
//
//	type God struct {
//		ID   string    `db:"id,pk"`
//		Name string    `db:"god_name"`
//		Born time.Time `db:"born" convert:"unixtime"`
//	}
func FromStruct[T any](name, table string) (*Entity, error) {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", typ)
	}
	if name == "" {
		name = typ.Name()
	}

	e := NewEntity(name, table)
	e.Strict = true
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, ok := sf.Tag.Lookup("db")
		if !ok || tag == "-" {
			continue
		}
		column, opts, _ := strings.Cut(tag, ",")
		field := Field{
			Name:   lowerFirst(sf.Name),
			Column: column,
			Type:   sf.Type.String(),
		}
		if conv := sf.Tag.Get("convert"); conv != "" {
			c, err := LookupConverter(conv)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", typ.Name(), sf.Name, err)
			}
			field.Converter = c
		}
		e.AddField(field)
		if opts == "pk" {
			e.ID = field.Name
		}
	}
	return e, nil
}

// lowerFirst lowers the first rune unless the first two runes are both
// upper case, so Name becomes name and ID stays ID.
func lowerFirst(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if size == len(s) {
		return string(unicode.ToLower(first))
	}
	second, _ := utf8.DecodeRuneInString(s[size:])
	if unicode.IsUpper(first) && unicode.IsUpper(second) {
		return s
	}
	return string(unicode.ToLower(first)) + s[size:]
}
