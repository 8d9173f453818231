package metadata

import (
	"fmt"

	"github.com/zoobzio/dbml"
)

// FromDBML builds a registry from a DBML project. Every table becomes a
// strict entity named after the table, every column a field of the same
// name, and a column named id becomes the identifier.
func FromDBML(project *dbml.Project) (*Registry, error) {
	if project == nil {
		return nil, fmt.Errorf("project cannot be nil")
	}

	r := NewRegistry()
	for _, table := range project.Tables {
		e := NewEntity(table.Name, table.Name)
		e.Strict = true
		for _, col := range table.Columns {
			e.AddField(Field{Name: col.Name, Column: col.Name})
			if col.Name == "id" {
				e.ID = "id"
			}
		}
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}
