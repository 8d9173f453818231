// Package repoql derives and executes queries against a pluggable storage
// manager.
//
// Queries come from two places. Repository method names such as
// findByAgeGreaterThanAndNameIn are parsed into an AST by their grammar,
// and query text such as
//
//	select * from God where age between @low and @high order by name desc
//
// is parsed by the text parser. Both produce the same AST, which is bound,
// resolved against entity metadata and dispatched to a Manager.
//
// # Basic Usage
//
//	engine := repoql.New(store, registry)
//
//	stmt, err := engine.Prepare("delete from God where age = @age")
//	if err != nil {
//		return err
//	}
//	if err := stmt.Bind("age", 12); err != nil {
//		return err
//	}
//	result, err := stmt.Execute(ctx)
//	// result.Affected: number of records deleted
//
// # Result Shapes
//
// Selects are lazy. A Sequence is read through one of the terminal
// adapters: First, Single, List, FetchPage, Publish, or the async verbs
// when the manager implements AsyncManager. Blocking waits for any of them
// with a timeout.
//
// # Repositories
//
// Implement fills a struct of func fields from their names, tags and
// signatures:
//
//	type GodRepository struct {
//		FindByName     func(ctx context.Context, name string) ([]God, error)
//		CountByAgeLessThan func(ctx context.Context, age int) (int64, error)
//		Oldest         func(ctx context.Context) (*God, error) `query:"select * from God order by age desc"`
//	}
//
//	var repo GodRepository
//	err := repoql.Implement(engine, "God", &repo)
//
// # Caching
//
// Parsed method names and query text are cached for the life of the
// process. Parsing is pure, so entries never need invalidating.
package repoql

import "github.com/zoobzio/repoql/internal/types"

// AST represents the parsed form of a method name or query text.
// This is re-exported from internal/types for use by consumers.
type AST = types.AST

// Operation represents the kind of query or command.
type Operation = types.Operation

// Re-export operation constants for public API.
const (
	OpSelect = types.OpSelect
	OpDelete = types.OpDelete
	OpInsert = types.OpInsert
	OpUpdate = types.OpUpdate
	OpCount  = types.OpCount
	OpExists = types.OpExists
)

// Direction represents sort direction.
type Direction = types.Direction

// Re-export direction constants for public API.
const (
	ASC  = types.ASC
	DESC = types.DESC
)

// Sort is one entry of an ordering.
type Sort = types.Sort

// Operator represents condition comparators and combinators.
type Operator = types.Operator

// Re-export operator constants for public API.
const (
	EQ      = types.EQ
	GT      = types.GT
	GE      = types.GE
	LT      = types.LT
	LE      = types.LE
	LIKE    = types.LIKE
	IN      = types.IN
	BETWEEN = types.BETWEEN

	NOT = types.NOT
	AND = types.AND
	OR  = types.OR
)

// Condition is a node of a condition tree.
type Condition = types.Condition

// Value is the payload of a condition leaf or command.
type Value = types.Value

// Value implementations.
type (
	Literal     = types.Literal
	Param       = types.Param
	Range       = types.Range
	ValueList   = types.List
	Conditions  = types.Conditions
	Document    = types.Document
	Call        = types.Call
	Assignment  = types.Assignment
	Assignments = types.Assignments
)

// Error taxonomy. Match with errors.As.
type (
	QuerySyntaxError          = types.QuerySyntaxError
	UnboundParameterError     = types.UnboundParameterError
	UnknownParameterError     = types.UnknownParameterError
	NonUniqueResultError      = types.NonUniqueResultError
	IdentifierMissingError    = types.IdentifierMissingError
	TimeoutError              = types.TimeoutError
	UnsupportedOperationError = types.UnsupportedOperationError
	UnknownFieldError         = types.UnknownFieldError
)
