package repoql

import (
	"context"
	"fmt"
	"reflect"

	"github.com/zoobzio/repoql/internal/types"
	"github.com/zoobzio/repoql/metadata"
)

// Insert stores a new record of entity. Keys may be logical names or
// columns. It returns the record as stored, including generated keys.
func (e *Engine) Insert(ctx context.Context, entity string, rec Record) (Record, error) {
	meta := e.entity(entity)
	stored, err := meta.Encode(rec)
	if err != nil {
		return nil, err
	}
	return e.insert(ctx, meta, Record(stored))
}

// Update replaces the stored record matching rec's identifier.
func (e *Engine) Update(ctx context.Context, entity string, rec Record) (int64, error) {
	meta := e.entity(entity)
	stored, err := meta.Encode(rec)
	if err != nil {
		return 0, err
	}
	return e.update(ctx, meta, Record(stored))
}

// Save inserts rec when its identifier is absent or zero, or when no
// stored record carries it, and updates otherwise.
func (e *Engine) Save(ctx context.Context, entity string, rec Record) (Record, error) {
	meta := e.entity(entity)
	key, err := meta.IDColumn()
	if err != nil {
		return nil, err
	}
	stored, err := meta.Encode(rec)
	if err != nil {
		return nil, err
	}

	id, ok := stored[key]
	if !ok || isZero(id) {
		return e.insert(ctx, meta, Record(stored))
	}

	where := types.Leaf(key, types.EQ, types.Literal{Value: id, Stored: true})
	n, err := e.manager.Count(ctx, SelectQuery{Entity: meta.Table, Where: &where})
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", meta.Name, err)
	}
	if n == 0 {
		return e.insert(ctx, meta, Record(stored))
	}
	if _, err := e.update(ctx, meta, Record(stored)); err != nil {
		return nil, err
	}
	decoded, err := meta.Decode(stored)
	if err != nil {
		return nil, err
	}
	return Record(decoded), nil
}

func (e *Engine) insert(ctx context.Context, meta *metadata.Entity, rec Record) (Record, error) {
	key, _ := meta.IDColumn()
	out, err := e.manager.Insert(ctx, WriteCommand{Entity: meta.Table, Key: key, Record: rec})
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", meta.Name, err)
	}
	if out == nil {
		out = rec
	}
	decoded, err := meta.Decode(out)
	if err != nil {
		return nil, err
	}
	return Record(decoded), nil
}

func (e *Engine) update(ctx context.Context, meta *metadata.Entity, rec Record) (int64, error) {
	cmd, err := updateCommand(meta, rec)
	if err != nil {
		return 0, err
	}
	n, err := e.manager.Update(ctx, cmd)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", meta.Name, err)
	}
	return n, nil
}

func updateCommand(meta *metadata.Entity, rec Record) (WriteCommand, error) {
	key, err := meta.IDColumn()
	if err != nil {
		return WriteCommand{}, err
	}
	if id, ok := rec[key]; !ok || isZero(id) {
		return WriteCommand{}, &types.IdentifierMissingError{Entity: meta.Name, Reason: "record has no value for " + key}
	}
	return WriteCommand{Entity: meta.Table, Key: key, Record: rec}, nil
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
