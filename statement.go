package repoql

import (
	"context"
	"fmt"

	"github.com/zoobzio/repoql/internal/bind"
	"github.com/zoobzio/repoql/internal/types"
	"github.com/zoobzio/repoql/metadata"
)

// Statement is a parsed query retained for repeated binding and
// execution. Bindings persist across executions; each execution works on
// its own copy of them. A Statement is not safe for concurrent binding.
type Statement struct {
	engine *Engine
	ast    *types.AST
	params *bind.Set
}

func newStatement(e *Engine, ast *types.AST) *Statement {
	return &Statement{engine: e, ast: ast, params: bind.NewSet(ast.Params)}
}

// AST returns the parsed query.
func (s *Statement) AST() *AST { return s.ast }

// Params returns the declared parameter names in order.
func (s *Statement) Params() []string { return s.params.Declared() }

// Remaining returns the declared parameters that are still unbound.
func (s *Statement) Remaining() []string { return s.params.Remaining() }

// Bind sets a named parameter. Binding a name again replaces its value.
func (s *Statement) Bind(name string, v any) error {
	return s.params.Bind(name, v)
}

// BindAll binds every entry of values, stopping at the first unknown name.
func (s *Statement) BindAll(values map[string]any) error {
	for name, v := range values {
		if err := s.params.Bind(name, v); err != nil {
			return err
		}
	}
	return nil
}

// WithArgs returns a statement whose parameters are bound by position, in
// declaration order.
func (s *Statement) WithArgs(args ...any) (*Statement, error) {
	ast, err := bind.Positional(s.ast, args, storageConverter(s.engine.entity(s.ast.Entity)))
	if err != nil {
		return nil, err
	}
	return newStatement(s.engine, ast), nil
}

// WithSorts returns a statement with sorts appended after the parsed ones.
// Bindings are copied.
func (s *Statement) WithSorts(sorts ...Sort) *Statement {
	return &Statement{engine: s.engine, ast: s.ast.WithSorts(sorts...), params: s.params.Clone()}
}

// WithPagination returns a statement reading the window p. Bindings are
// copied.
func (s *Statement) WithPagination(p Pagination) *Statement {
	return &Statement{engine: s.engine, ast: s.ast.WithPagination(p.Skip, p.Limit), params: s.params.Clone()}
}

// bound applies a copy of the bindings to the AST.
func (s *Statement) bound() (*types.AST, *metadata.Entity, error) {
	entity := s.engine.entity(s.ast.Entity)
	ast, err := s.params.Clone().Apply(s.ast, storageConverter(entity))
	if err != nil {
		return nil, nil, err
	}
	return ast, entity, nil
}

// Sequence binds the statement and returns its lazy select result. It
// fails for statements that are not queries.
func (s *Statement) Sequence() (*Sequence, error) {
	switch s.ast.Operation {
	case types.OpSelect, types.OpCount, types.OpExists:
	default:
		return nil, &types.UnsupportedOperationError{Operation: string(s.ast.Operation), Reason: "statement does not return records"}
	}
	ast, entity, err := s.bound()
	if err != nil {
		return nil, err
	}
	q, err := s.engine.resolver(entity).selectQuery(ast)
	if err != nil {
		return nil, err
	}
	return &Sequence{manager: s.engine.manager, entity: entity, query: q}, nil
}

// Execute binds and runs the statement. Selects return a lazy sequence;
// the manager is not called until it is read.
func (s *Statement) Execute(ctx context.Context) (*Result, error) {
	ast, entity, err := s.bound()
	if err != nil {
		return nil, err
	}
	log := s.engine.trace(ctx, ast)
	r := s.engine.resolver(entity)
	result := &Result{Operation: ast.Operation}

	switch ast.Operation {
	case types.OpSelect:
		q, err := r.selectQuery(ast)
		if err != nil {
			return nil, err
		}
		result.Records = &Sequence{manager: s.engine.manager, entity: entity, query: q}

	case types.OpCount:
		q, err := r.selectQuery(ast)
		if err != nil {
			return nil, err
		}
		n, err := s.engine.manager.Count(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", entity.Name, err)
		}
		result.Affected = n
		result.Exists = n > 0

	case types.OpExists:
		q, err := r.selectQuery(ast)
		if err != nil {
			return nil, err
		}
		q.Limit = 1
		exists, err := s.engine.exists(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("exists %s: %w", entity.Name, err)
		}
		result.Exists = exists

	case types.OpDelete:
		q, err := r.deleteQuery(ast)
		if err != nil {
			return nil, err
		}
		n, err := s.engine.manager.Delete(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", entity.Name, err)
		}
		result.Affected = n

	case types.OpInsert:
		records, err := r.records(ast)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			stored, err := s.engine.insert(ctx, entity, rec)
			if err != nil {
				return nil, err
			}
			result.Inserted = append(result.Inserted, stored)
		}
		result.Affected = int64(len(records))

	case types.OpUpdate:
		records, err := r.records(ast)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			n, err := s.engine.update(ctx, entity, rec)
			if err != nil {
				return nil, err
			}
			result.Affected += n
		}

	default:
		return nil, &types.UnsupportedOperationError{Operation: string(ast.Operation)}
	}

	log.DebugContext(ctx, "query dispatched", "affected", result.Affected)
	return result, nil
}

// ExecuteSingle runs a select and returns its only record. No record
// returns false; more than one fails with *NonUniqueResultError.
func (s *Statement) ExecuteSingle(ctx context.Context) (Record, bool, error) {
	if s.ast.Operation != types.OpSelect {
		return nil, false, &types.UnsupportedOperationError{Operation: string(s.ast.Operation), Reason: "single result requires a select"}
	}
	result, err := s.Execute(ctx)
	if err != nil {
		return nil, false, err
	}
	return Single[Record](ctx, result.Records)
}

func (e *Engine) exists(ctx context.Context, q SelectQuery) (bool, error) {
	cursor, err := e.manager.Select(ctx, q)
	if err != nil {
		return false, err
	}
	defer cursor.Close()
	found := cursor.Next()
	return found, cursor.Err()
}
