package repoql

import (
	"context"

	"github.com/zoobzio/repoql/internal/types"
)

func (e *Engine) async(verb string) (AsyncManager, error) {
	am, ok := e.manager.(AsyncManager)
	if !ok {
		return nil, &types.UnsupportedOperationError{Operation: verb, Reason: "manager has no async verbs"}
	}
	return am, nil
}

// SelectAsync dispatches the select to the manager's async verb and
// returns at once. fn receives the decoded records, possibly on another
// goroutine. Binding and resolution errors are returned directly and fn
// is not called.
func (s *Statement) SelectAsync(ctx context.Context, fn func([]Record, error)) error {
	am, err := s.engine.async("SelectAsync")
	if err != nil {
		return err
	}
	seq, err := s.Sequence()
	if err != nil {
		return err
	}
	s.engine.trace(ctx, s.ast)
	am.SelectAsync(ctx, seq.query, func(records []Record, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		out := make([]Record, len(records))
		for i, rec := range records {
			decoded, err := seq.entity.Decode(rec)
			if err != nil {
				fn(nil, err)
				return
			}
			out[i] = Record(decoded)
		}
		fn(out, nil)
	})
	return nil
}

// CountAsync counts the records the statement matches.
func (s *Statement) CountAsync(ctx context.Context, fn func(int64, error)) error {
	am, err := s.engine.async("CountAsync")
	if err != nil {
		return err
	}
	seq, err := s.Sequence()
	if err != nil {
		return err
	}
	s.engine.trace(ctx, s.ast)
	am.CountAsync(ctx, seq.query, fn)
	return nil
}

// DeleteAsync dispatches a delete statement to the manager's async verb.
func (s *Statement) DeleteAsync(ctx context.Context, fn func(int64, error)) error {
	am, err := s.engine.async("DeleteAsync")
	if err != nil {
		return err
	}
	if s.ast.Operation != types.OpDelete {
		return &types.UnsupportedOperationError{Operation: "DeleteAsync", Reason: "statement is a " + string(s.ast.Operation)}
	}
	ast, entity, err := s.bound()
	if err != nil {
		return err
	}
	q, err := s.engine.resolver(entity).deleteQuery(ast)
	if err != nil {
		return err
	}
	s.engine.trace(ctx, ast)
	am.DeleteAsync(ctx, q, fn)
	return nil
}

// InsertAsync stores a new record through the manager's async verb.
func (e *Engine) InsertAsync(ctx context.Context, entity string, rec Record, fn func(Record, error)) error {
	am, err := e.async("InsertAsync")
	if err != nil {
		return err
	}
	meta := e.entity(entity)
	stored, err := meta.Encode(rec)
	if err != nil {
		return err
	}
	key, _ := meta.IDColumn()
	am.InsertAsync(ctx, WriteCommand{Entity: meta.Table, Key: key, Record: Record(stored)}, func(out Record, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		if out == nil {
			out = Record(stored)
		}
		decoded, err := meta.Decode(out)
		if err != nil {
			fn(nil, err)
			return
		}
		fn(Record(decoded), nil)
	})
	return nil
}

// UpdateAsync replaces a stored record through the manager's async verb.
func (e *Engine) UpdateAsync(ctx context.Context, entity string, rec Record, fn func(int64, error)) error {
	am, err := e.async("UpdateAsync")
	if err != nil {
		return err
	}
	meta := e.entity(entity)
	stored, err := meta.Encode(rec)
	if err != nil {
		return err
	}
	cmd, err := updateCommand(meta, Record(stored))
	if err != nil {
		return err
	}
	am.UpdateAsync(ctx, cmd, fn)
	return nil
}
