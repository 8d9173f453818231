package repoql

import (
	"context"

	"github.com/zoobzio/repoql/internal/types"
)

// Result is the outcome of Statement.Execute. Selects fill Records, which
// stay lazy until iterated. The other operations run eagerly.
type Result struct {
	Operation Operation
	Records   *Sequence
	Inserted  []Record
	Affected  int64
	Exists    bool
}

// First returns the first record of seq decoded as T. More than one record
// is not an error; false means there were none.
func First[T any](ctx context.Context, seq *Sequence) (T, bool, error) {
	var zero T
	for rec, err := range seq.All(ctx) {
		if err != nil {
			return zero, false, err
		}
		out, err := Decode[T](rec)
		if err != nil {
			return zero, false, err
		}
		return out, true, nil
	}
	return zero, false, nil
}

// Single is like First but fails with *NonUniqueResultError when seq
// yields more than one record.
func Single[T any](ctx context.Context, seq *Sequence) (T, bool, error) {
	var (
		zero  T
		found Record
		seen  bool
	)
	for rec, err := range seq.All(ctx) {
		if err != nil {
			return zero, false, err
		}
		if seen {
			return zero, false, &types.NonUniqueResultError{Entity: seq.entity.Name}
		}
		found, seen = rec, true
	}
	if !seen {
		return zero, false, nil
	}
	out, err := Decode[T](found)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// List decodes every record of seq in the order the manager returned them.
func List[T any](ctx context.Context, seq *Sequence) ([]T, error) {
	out := []T{}
	for rec, err := range seq.All(ctx) {
		if err != nil {
			return nil, err
		}
		item, err := Decode[T](rec)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
