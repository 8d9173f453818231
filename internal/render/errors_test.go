package render

import (
	"errors"
	"testing"
)

func TestUnsupportedFeatureError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      UnsupportedFeatureError
		expected string
	}{
		{
			name: "without hint",
			err: UnsupportedFeatureError{
				Dialect: "mysql",
				Command: "insert",
				Table:   "temples",
				Feature: "RETURNING",
			},
			expected: "insert temples on mysql: RETURNING is not supported",
		},
		{
			name: "with hint",
			err: UnsupportedFeatureError{
				Dialect: "mssql",
				Command: "select",
				Table:   "gods",
				Feature: "OFFSET without ORDER BY",
				Hint:    "add a sort when reading a page",
			},
			expected: "select gods on mssql: OFFSET without ORDER BY is not supported (add a sort when reading a page)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUnsupportedFeatureError_FromRender(t *testing.T) {
	_, err := Insert(testDialect{}, "temples", map[string]any{"city": "Delphi"}, true)
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Fatalf("errors.Is(err, ErrUnsupported) = false for %v", err)
	}
	var ufErr UnsupportedFeatureError
	if !errors.As(err, &ufErr) {
		t.Fatal("expected UnsupportedFeatureError")
	}
	want := UnsupportedFeatureError{
		Dialect: "test",
		Command: "insert",
		Table:   "temples",
		Feature: "RETURNING",
		Hint:    "read the row back by its key",
	}
	if ufErr != want {
		t.Errorf("error = %+v, want %+v", ufErr, want)
	}

	_, err = Select(testDialect{ordered: true}, "gods", nil, nil, nil, 5, 0)
	if !errors.As(err, &ufErr) {
		t.Fatalf("expected UnsupportedFeatureError, got %v", err)
	}
	if ufErr.Command != "select" || ufErr.Table != "gods" {
		t.Errorf("Command, Table = %q, %q; want select, gods", ufErr.Command, ufErr.Table)
	}
}
