package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema is the YAML document form of a registry:
//
//	entities:
//	  - name: God
//	    table: gods
//	    id: id
//	    strict: true
//	    fields:
//	      - name: name
//	        column: god_name
//	      - name: born
//	        converter: unixtime
type Schema struct {
	Entities []EntitySchema `yaml:"entities"`
}

// EntitySchema describes one entity.
type EntitySchema struct {
	Name   string        `yaml:"name"`
	Table  string        `yaml:"table"`
	ID     string        `yaml:"id"`
	Strict bool          `yaml:"strict"`
	Fields []FieldSchema `yaml:"fields"`
}

// FieldSchema describes one field.
type FieldSchema struct {
	Name      string `yaml:"name"`
	Column    string `yaml:"column"`
	Type      string `yaml:"type"`
	Converter string `yaml:"converter"`
}

// LoadYAML reads a schema document and builds a registry. Unknown keys
// are rejected.
func LoadYAML(r io.Reader) (*Registry, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var schema Schema
	if err := decoder.Decode(&schema); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	return schema.Registry()
}

// LoadYAMLFile is LoadYAML over the named file.
func LoadYAMLFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadYAML(f)
}

// Registry builds the registry described by the schema.
func (s Schema) Registry() (*Registry, error) {
	r := NewRegistry()
	for _, es := range s.Entities {
		if es.Name == "" {
			return nil, fmt.Errorf("entity without a name")
		}
		e := NewEntity(es.Name, es.Table)
		e.Strict = es.Strict
		for _, fs := range es.Fields {
			if fs.Name == "" {
				return nil, fmt.Errorf("entity %s: field without a name", es.Name)
			}
			field := Field{Name: fs.Name, Column: fs.Column, Type: fs.Type}
			if fs.Converter != "" {
				c, err := LookupConverter(fs.Converter)
				if err != nil {
					return nil, fmt.Errorf("entity %s field %s: %w", es.Name, fs.Name, err)
				}
				field.Converter = c
			}
			e.AddField(field)
		}
		if es.ID != "" {
			e.WithID(es.ID)
		}
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}
