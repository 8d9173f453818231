// Package metadata describes entities to the query engine: which storage
// table backs an entity, how logical field names map to columns, which
// field is the identifier and how values convert to and from storage form.
package metadata

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zoobzio/repoql/internal/types"
)

// Field maps one logical property to its storage column.
type Field struct {
	Name      string // logical name, dotted for nested properties
	Column    string
	Type      string
	Converter *Converter
}

// Entity is the metadata of one queryable entity.
type Entity struct {
	Name   string
	Table  string
	ID     string // logical name of the identifier field
	Strict bool   // reject fields that are not declared

	fields  map[string]*Field
	columns map[string]*Field
}

// NewEntity creates an entity with no declared fields. An empty table
// defaults to the entity name.
func NewEntity(name, table string) *Entity {
	if table == "" {
		table = name
	}
	return &Entity{
		Name:    name,
		Table:   table,
		fields:  make(map[string]*Field),
		columns: make(map[string]*Field),
	}
}

// AddField declares a field. An empty column defaults to the logical name
// with dots replaced by underscores.
func (e *Entity) AddField(f Field) *Entity {
	if f.Column == "" {
		f.Column = defaultColumn(f.Name)
	}
	field := f
	e.fields[f.Name] = &field
	e.columns[f.Column] = &field
	return e
}

// WithID marks the logical field name as the identifier, declaring it if
// needed.
func (e *Entity) WithID(name string) *Entity {
	if _, ok := e.fields[name]; !ok {
		e.AddField(Field{Name: name})
	}
	e.ID = name
	return e
}

// Field returns the declared field for a logical name.
func (e *Entity) Field(name string) (*Field, bool) {
	f, ok := e.fields[name]
	return f, ok
}

// Fields returns the declared fields ordered by logical name.
func (e *Entity) Fields() []Field {
	out := make([]Field, 0, len(e.fields))
	for _, f := range e.fields {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Column resolves a logical name to its storage column. Undeclared names
// map to themselves, with dots replaced by underscores, unless the entity
// is strict.
func (e *Entity) Column(name string) (string, error) {
	if f, ok := e.fields[name]; ok {
		return f.Column, nil
	}
	if e.Strict {
		return "", &types.UnknownFieldError{Entity: e.Name, Field: name}
	}
	return defaultColumn(name), nil
}

// IDColumn returns the storage column of the identifier.
func (e *Entity) IDColumn() (string, error) {
	if e.ID == "" {
		return "", &types.IdentifierMissingError{Entity: e.Name, Reason: "no identifier field declared"}
	}
	return e.Column(e.ID)
}

// ToStorage converts a logical value for the named field. Fields without a
// converter pass values through unchanged.
func (e *Entity) ToStorage(name string, v any) (any, error) {
	f, ok := e.fields[name]
	if !ok || f.Converter == nil || f.Converter.ToStorage == nil || v == nil {
		return v, nil
	}
	out, err := f.Converter.ToStorage(v)
	if err != nil {
		return nil, fmt.Errorf("converting %s.%s: %w", e.Name, name, err)
	}
	return out, nil
}

// FromStorage converts a stored value read from column.
func (e *Entity) FromStorage(column string, v any) (any, error) {
	f, ok := e.columns[column]
	if !ok || f.Converter == nil || f.Converter.FromStorage == nil || v == nil {
		return v, nil
	}
	out, err := f.Converter.FromStorage(v)
	if err != nil {
		return nil, fmt.Errorf("reading %s.%s: %w", e.Name, column, err)
	}
	return out, nil
}

// Logical returns the logical field name stored in column.
func (e *Entity) Logical(column string) string {
	if f, ok := e.columns[column]; ok {
		return f.Name
	}
	return column
}

// StorageKey resolves a record key given either as a logical name or as
// a storage column.
func (e *Entity) StorageKey(key string) (string, error) {
	if f, ok := e.fields[key]; ok {
		return f.Column, nil
	}
	if _, ok := e.columns[key]; ok {
		return key, nil
	}
	return e.Column(key)
}

// Encode maps values keyed by logical name or column to storage columns
// and converts each value to its storage form.
func (e *Entity) Encode(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		column, err := e.StorageKey(k)
		if err != nil {
			return nil, err
		}
		stored, err := e.ToStorage(e.Logical(column), v)
		if err != nil {
			return nil, err
		}
		out[column] = stored
	}
	return out, nil
}

// Decode converts values read from storage, keyed by column.
func (e *Entity) Decode(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for column, v := range values {
		domain, err := e.FromStorage(column, v)
		if err != nil {
			return nil, err
		}
		out[column] = domain
	}
	return out, nil
}

func defaultColumn(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}
