package render

import (
	"errors"
	"fmt"
)

// UnsupportedFeatureError reports a command that the dialect cannot express,
// such as RETURNING on MySQL or a page without a sort on SQL Server. It
// matches errors.ErrUnsupported.
type UnsupportedFeatureError struct {
	Dialect string
	Command string // select, insert, ...
	Table   string
	Feature string
	Hint    string
}

func (e UnsupportedFeatureError) Error() string {
	msg := fmt.Sprintf("%s %s on %s: %s is not supported", e.Command, e.Table, e.Dialect, e.Feature)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (UnsupportedFeatureError) Unwrap() error { return errors.ErrUnsupported }

func unsupported(d Dialect, command, table, feature, hint string) error {
	return UnsupportedFeatureError{
		Dialect: d.Name(),
		Command: command,
		Table:   table,
		Feature: feature,
		Hint:    hint,
	}
}
