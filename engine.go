package repoql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/zoobzio/repoql/internal/cache"
	"github.com/zoobzio/repoql/internal/derive"
	"github.com/zoobzio/repoql/internal/textql"
	"github.com/zoobzio/repoql/internal/types"
	"github.com/zoobzio/repoql/metadata"
)

// Process-wide parse caches. Parsing is a pure function of its input, so
// entries are never invalidated.
var (
	derivedCache cache.Cache[*types.AST]
	queryCache   cache.Cache[*types.AST]
)

// ParseMethod parses a repository method name against entity, using the
// shared cache.
func ParseMethod(method, entity string) (*AST, error) {
	return derivedCache.Get(entity+"\x00"+method, func() (*types.AST, error) {
		return derive.Parse(method, entity)
	})
}

// MustParseMethod is like ParseMethod but panics on error.
func MustParseMethod(method, entity string) *AST {
	ast, err := ParseMethod(method, entity)
	if err != nil {
		panic(err)
	}
	return ast
}

// ParseQuery parses query text, using the shared cache.
func ParseQuery(text string) (*AST, error) {
	return queryCache.Get(text, func() (*types.AST, error) {
		return textql.Parse(text)
	})
}

// Engine executes parsed queries against a Manager.
type Engine struct {
	manager   Manager
	registry  *metadata.Registry
	functions map[string]Function
	logger    *slog.Logger
	timeout   time.Duration
	pool      *ants.Pool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTimeout sets the default wait of blocking executions. Zero or a
// negative duration waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithFunction registers a function callable from query text, replacing
// any built-in of the same name.
func WithFunction(name string, fn Function) Option {
	return func(e *Engine) { e.functions[name] = fn }
}

// WithPool runs blocking executions on pool instead of fresh goroutines.
// The engine does not release the pool.
func WithPool(pool *ants.Pool) Option {
	return func(e *Engine) { e.pool = pool }
}

// New creates an engine over manager. A nil registry treats every entity
// as a permissive one named after its table.
func New(manager Manager, registry *metadata.Registry, opts ...Option) *Engine {
	e := &Engine{
		manager:   manager,
		registry:  registry,
		functions: builtinFunctions(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Manager returns the manager the engine dispatches to.
func (e *Engine) Manager() Manager { return e.manager }

// Registry returns the entity registry, which may be nil.
func (e *Engine) Registry() *metadata.Registry { return e.registry }

// Query parses and executes a select that declares no parameters and
// returns its lazy sequence. Commands and parameterized queries go through
// Prepare.
func (e *Engine) Query(ctx context.Context, text string) (*Sequence, error) {
	stmt, err := e.Prepare(text)
	if err != nil {
		return nil, err
	}
	if stmt.ast.Operation != types.OpSelect {
		return nil, &types.UnsupportedOperationError{
			Operation: string(stmt.ast.Operation),
			Reason:    "Query returns records; use Prepare and Execute for commands",
		}
	}
	result, err := stmt.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Prepare parses text once for repeated binding and execution.
func (e *Engine) Prepare(text string) (*Statement, error) {
	ast, err := ParseQuery(text)
	if err != nil {
		return nil, err
	}
	return newStatement(e, ast), nil
}

// Derive parses a repository method name against entity.
func (e *Engine) Derive(entity, method string) (*Statement, error) {
	ast, err := ParseMethod(method, entity)
	if err != nil {
		return nil, err
	}
	return newStatement(e, ast), nil
}

// Statement wraps an already parsed AST.
func (e *Engine) Statement(ast *AST) (*Statement, error) {
	if err := ast.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return newStatement(e, ast), nil
}

// submit runs fn on the pool when one is configured.
func (e *Engine) submit(fn func()) error {
	if e.pool == nil {
		go fn()
		return nil
	}
	return e.pool.Submit(fn)
}

// trace logs one execution at debug level and returns a logger carrying
// its execution id.
func (e *Engine) trace(ctx context.Context, ast *AST) *slog.Logger {
	log := e.logger.With(
		slog.String("exec_id", uuid.NewString()),
		slog.String("entity", ast.Entity),
		slog.String("operation", string(ast.Operation)),
	)
	log.DebugContext(ctx, "executing query", slog.String("query", ast.String()))
	return log
}

func (e *Engine) entity(name string) *metadata.Entity {
	return e.registry.Resolve(name)
}
