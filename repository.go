package repoql

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/zoobzio/repoql/internal/types"
)

// Implement fills the func-typed fields of the struct repo points to with
// bodies executed by e against entity. Each field is resolved once:
//
//   - a field tagged query:"..." runs that query text
//   - a field named Save inserts or updates its argument
//   - any other field name is parsed as a method name (FindByName,
//     CountByAgeGreaterThan, DeleteByStatusIn, ...)
//
// The func signature selects the result shape:
//
//	func(ctx, args...) (T, bool, error)        first match, or false
//	func(ctx, args...) (*T, error)             first match, or nil
//	func(ctx, args...) ([]T, error)            every match
//	func(ctx, args..., Pagination) (*Page[T], error)
//	func(ctx, args...) *Publisher[T]           cold publisher
//	func(ctx, args...) (int64, error)          count, or rows affected
//	func(ctx, args...) (bool, error)           exists
//	func(ctx, args...) error                   delete or write
//	func(ctx, args..., func([]T, error)) error async through AsyncManager
//
// The leading context is optional. Arguments of type Sort, []Sort and
// Pagination are applied to the query instead of binding parameters. The
// tag repoql:"unique" makes the optional shapes fail on more than one
// match; timeout:"2s" runs the call through Blocking, and timeout:"none"
// blocks without a deadline even when the engine has a default.
func Implement(e *Engine, entity string, repo any) error {
	rv := reflect.ValueOf(repo)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("repository must be a non-nil pointer to a struct, got %T", repo)
	}
	sv := rv.Elem()
	st := sv.Type()

	for i := range st.NumField() {
		f := st.Field(i)
		if !f.IsExported() || f.Type.Kind() != reflect.Func {
			continue
		}
		m, err := describeCached(entity, st, i)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", st.Name(), f.Name, err)
		}
		sv.Field(i).Set(reflect.MakeFunc(f.Type, m.invoker(e)))
	}
	return nil
}

// opKind tags how a repository method obtains its query.
type opKind int

const (
	opDerived opKind = iota
	opQuery
	opSave
)

// shape is the terminal adapter a method's results pass through.
type shape int

const (
	shapeOptional shape = iota
	shapePointer
	shapeList
	shapePage
	shapePublisher
	shapeCount
	shapeExists
	shapeVoid
	shapeAsync
	shapeSave
)

// argKind says what a method parameter feeds.
type argKind int

const (
	argValue argKind = iota
	argContext
	argSort
	argSorts
	argPagination
	argCallback
)

var (
	contextType    = reflect.TypeFor[context.Context]()
	errorType      = reflect.TypeFor[error]()
	sortType       = reflect.TypeFor[Sort]()
	sortsType      = reflect.TypeFor[[]Sort]()
	paginationType = reflect.TypeFor[Pagination]()
	boolType       = reflect.TypeFor[bool]()
	pageType       = reflect.TypeFor[pageFactory]()
	publisherType  = reflect.TypeFor[publisherFactory]()
)

// method is the resolved descriptor of one repository field.
type method struct {
	name    string
	entity  string
	kind    opKind
	ast     *AST
	shape   shape
	elem    reflect.Type
	fn      reflect.Type
	args    []argKind
	unique  bool
	timeout time.Duration
	block   bool
}

type methodKey struct {
	entity string
	repo   reflect.Type
	field  int
}

var methods sync.Map // methodKey -> *method

func describeCached(entity string, st reflect.Type, i int) (*method, error) {
	key := methodKey{entity: entity, repo: st, field: i}
	if m, ok := methods.Load(key); ok {
		return m.(*method), nil
	}
	m, err := describe(entity, st.Field(i))
	if err != nil {
		return nil, err
	}
	actual, _ := methods.LoadOrStore(key, m)
	return actual.(*method), nil
}

func describe(entity string, f reflect.StructField) (*method, error) {
	m := &method{name: f.Name, entity: entity, fn: f.Type}

	switch text, ok := f.Tag.Lookup("query"); {
	case ok:
		ast, err := ParseQuery(text)
		if err != nil {
			return nil, err
		}
		m.kind, m.ast, m.entity = opQuery, ast, ast.Entity
	case f.Name == "Save":
		m.kind = opSave
	default:
		ast, err := ParseMethod(lowerFirst(f.Name), entity)
		if err != nil {
			return nil, err
		}
		m.kind, m.ast = opDerived, ast
	}

	m.unique = f.Tag.Get("repoql") == "unique"
	if raw, ok := f.Tag.Lookup("timeout"); ok {
		d := NoTimeout
		if raw != "none" {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid timeout tag %q: %w", raw, err)
			}
			d = parsed
		}
		m.timeout, m.block = d, true
	}

	if err := m.describeArgs(); err != nil {
		return nil, err
	}
	if err := m.describeShape(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *method) describeArgs() error {
	ft := m.fn
	n := ft.NumIn()
	m.args = make([]argKind, n)
	values := 0
	for i := range n {
		t := ft.In(i)
		switch {
		case i == 0 && t == contextType:
			m.args[i] = argContext
		case t == sortType:
			m.args[i] = argSort
		case t == sortsType:
			m.args[i] = argSorts
		case t == paginationType:
			m.args[i] = argPagination
		case i == n-1 && t.Kind() == reflect.Func:
			m.args[i] = argCallback
		default:
			m.args[i] = argValue
			values++
		}
	}

	if m.kind == opSave {
		if values != 1 {
			return fmt.Errorf("Save takes exactly one record argument, got %d", values)
		}
		return nil
	}
	if values != len(m.ast.Params) {
		return fmt.Errorf("%d value arguments for %d parameters %v", values, len(m.ast.Params), m.ast.Params)
	}
	return nil
}

func (m *method) describeShape() error {
	ft := m.fn
	outs := make([]reflect.Type, ft.NumOut())
	for i := range outs {
		outs[i] = ft.Out(i)
	}
	last := len(m.args) - 1
	async := last >= 0 && m.args[last] == argCallback

	if m.kind == opSave {
		switch {
		case len(outs) == 1 && outs[0] == errorType:
			m.shape = shapeSave
		case len(outs) == 2 && outs[1] == errorType:
			m.shape, m.elem = shapeSave, outs[0]
		default:
			return errors.New("Save must return error or (T, error)")
		}
		return nil
	}

	if async {
		if len(outs) != 1 || outs[0] != errorType {
			return errors.New("async methods must return only error")
		}
		cb := ft.In(last)
		if cb.NumIn() != 2 || cb.NumOut() != 0 || cb.In(1) != errorType {
			return fmt.Errorf("callback must be func(T, error), got %s", cb)
		}
		m.shape = shapeAsync
		switch m.ast.Operation {
		case types.OpSelect:
			if cb.In(0).Kind() != reflect.Slice {
				return fmt.Errorf("select callback must receive a slice, got %s", cb.In(0))
			}
			m.elem = cb.In(0).Elem()
		case types.OpCount, types.OpDelete:
			if !isInteger(cb.In(0)) {
				return fmt.Errorf("%s callback must receive an integer, got %s", m.ast.Operation, cb.In(0))
			}
			m.elem = cb.In(0)
		default:
			return &types.UnsupportedOperationError{Operation: string(m.ast.Operation), Reason: "no async form"}
		}
		return nil
	}

	switch {
	case len(outs) == 1 && outs[0].Implements(publisherType):
		m.shape = shapePublisher
	case len(outs) == 2 && outs[0].Implements(publisherType) && outs[1] == errorType:
		m.shape = shapePublisher
	case len(outs) == 1 && outs[0] == errorType:
		m.shape = shapeVoid
	case len(outs) == 3 && outs[1] == boolType && outs[2] == errorType:
		m.shape, m.elem = shapeOptional, outs[0]
	case len(outs) == 2 && outs[1] == errorType:
		out := outs[0]
		switch {
		case out.Implements(pageType):
			m.shape = shapePage
		case out == boolType:
			m.shape = shapeExists
		case isInteger(out):
			m.shape, m.elem = shapeCount, out
		case out.Kind() == reflect.Slice:
			m.shape, m.elem = shapeList, out.Elem()
		case out.Kind() == reflect.Pointer:
			m.shape, m.elem = shapePointer, out.Elem()
		default:
			return fmt.Errorf("unsupported result type %s", out)
		}
	default:
		return fmt.Errorf("unsupported signature %s", ft)
	}

	return m.checkOperation()
}

// checkOperation rejects shapes the query's operation cannot produce.
func (m *method) checkOperation() error {
	op := m.ast.Operation
	ok := false
	switch m.shape {
	case shapeOptional, shapePointer, shapeList, shapePage, shapePublisher:
		ok = op == types.OpSelect
	case shapeCount:
		ok = op != types.OpSelect && op != types.OpExists
	case shapeExists:
		ok = op == types.OpExists || op == types.OpCount
	case shapeVoid:
		ok = op != types.OpSelect && op != types.OpCount && op != types.OpExists
	}
	if !ok {
		return fmt.Errorf("%s query cannot return %s", op, m.fn)
	}
	if m.shape == shapePage && !m.has(argPagination) {
		return errors.New("page methods need a Pagination argument")
	}
	return nil
}

func (m *method) has(kind argKind) bool {
	for _, k := range m.args {
		if k == kind {
			return true
		}
	}
	return false
}

// call is one invocation with its arguments sorted by purpose.
type call struct {
	ctx        context.Context
	values     []any
	sorts      []Sort
	pagination *Pagination
	callback   reflect.Value
}

func (m *method) split(in []reflect.Value) call {
	c := call{ctx: context.Background()}
	for i, arg := range in {
		switch m.args[i] {
		case argContext:
			if ctx, ok := arg.Interface().(context.Context); ok && ctx != nil {
				c.ctx = ctx
			}
		case argSort:
			c.sorts = append(c.sorts, arg.Interface().(Sort))
		case argSorts:
			c.sorts = append(c.sorts, arg.Interface().([]Sort)...)
		case argPagination:
			p := arg.Interface().(Pagination)
			c.pagination = &p
		case argCallback:
			c.callback = arg
		default:
			c.values = append(c.values, arg.Interface())
		}
	}
	return c
}

// invoker builds the body installed by reflect.MakeFunc.
func (m *method) invoker(e *Engine) func([]reflect.Value) []reflect.Value {
	return func(in []reflect.Value) []reflect.Value {
		c := m.split(in)
		if !m.block {
			out, err := m.run(e, c)
			return m.results(out, err)
		}
		out, err := Blocking(c.ctx, e, m.timeout, func(ctx context.Context) ([]reflect.Value, error) {
			c.ctx = ctx
			return m.run(e, c)
		})
		return m.results(out, err)
	}
}

// results appends the error output, or zero values everywhere on error.
func (m *method) results(out []reflect.Value, err error) []reflect.Value {
	n := m.fn.NumOut()
	if err == nil && len(out) == n {
		return out
	}
	res := make([]reflect.Value, n)
	for i := range n {
		t := m.fn.Out(i)
		switch {
		case err == nil && i < len(out):
			res[i] = out[i]
		case t == errorType:
			res[i] = reflect.Zero(t)
			if err != nil {
				res[i] = reflect.ValueOf(&err).Elem()
			}
		default:
			res[i] = reflect.Zero(t)
		}
	}
	return res
}

func (m *method) statement(e *Engine, c call) (*Statement, error) {
	stmt, err := newStatement(e, m.ast).WithArgs(c.values...)
	if err != nil {
		return nil, err
	}
	if len(c.sorts) > 0 {
		stmt = stmt.WithSorts(c.sorts...)
	}
	if c.pagination != nil && m.shape != shapePage {
		stmt = stmt.WithPagination(*c.pagination)
	}
	return stmt, nil
}

// run executes one call and returns the non-error outputs.
func (m *method) run(e *Engine, c call) ([]reflect.Value, error) {
	if m.kind == opSave {
		return m.save(e, c)
	}
	stmt, err := m.statement(e, c)
	if m.shape == shapePublisher {
		return m.publisher(stmt, err), nil
	}
	if err != nil {
		return nil, err
	}

	switch m.shape {
	case shapeOptional, shapePointer:
		seq, err := stmt.Sequence()
		if err != nil {
			return nil, err
		}
		pick := First[Record]
		if m.unique {
			pick = Single[Record]
		}
		rec, found, err := pick(c.ctx, seq)
		if err != nil {
			return nil, err
		}
		return m.optional(rec, found)

	case shapeList:
		seq, err := stmt.Sequence()
		if err != nil {
			return nil, err
		}
		return m.list(c.ctx, seq)

	case shapePage:
		seq, err := stmt.Sequence()
		if err != nil {
			return nil, err
		}
		factory := reflect.Zero(m.fn.Out(0)).Interface().(pageFactory)
		page, err := factory.fetch(c.ctx, seq, *c.pagination)
		if err != nil {
			return nil, err
		}
		return []reflect.Value{reflect.ValueOf(page)}, nil

	case shapeCount, shapeExists, shapeVoid:
		result, err := stmt.Execute(c.ctx)
		if err != nil {
			return nil, err
		}
		switch m.shape {
		case shapeCount:
			return []reflect.Value{reflect.ValueOf(result.Affected).Convert(m.elem)}, nil
		case shapeExists:
			return []reflect.Value{reflect.ValueOf(result.Exists)}, nil
		}
		return nil, nil

	case shapeAsync:
		return nil, m.async(stmt, c)
	}
	return nil, fmt.Errorf("unhandled result shape %d", m.shape)
}

func (m *method) optional(rec Record, found bool) ([]reflect.Value, error) {
	if m.shape == shapePointer {
		if !found {
			return []reflect.Value{reflect.Zero(m.fn.Out(0))}, nil
		}
		ptr := reflect.New(m.elem)
		if err := decodeInto(ptr.Elem(), rec); err != nil {
			return nil, err
		}
		return []reflect.Value{ptr}, nil
	}
	v := reflect.New(m.elem).Elem()
	if found {
		if err := decodeInto(v, rec); err != nil {
			return nil, err
		}
	}
	return []reflect.Value{v, reflect.ValueOf(found)}, nil
}

func (m *method) list(ctx context.Context, seq *Sequence) ([]reflect.Value, error) {
	out := reflect.MakeSlice(reflect.SliceOf(m.elem), 0, 0)
	for rec, err := range seq.All(ctx) {
		if err != nil {
			return nil, err
		}
		item := reflect.New(m.elem).Elem()
		if err := decodeInto(item, rec); err != nil {
			return nil, err
		}
		out = reflect.Append(out, item)
	}
	return []reflect.Value{out}, nil
}

func (m *method) publisher(stmt *Statement, err error) []reflect.Value {
	var seq *Sequence
	if err == nil {
		seq, err = stmt.Sequence()
	}
	factory := reflect.Zero(m.fn.Out(0)).Interface().(publisherFactory)
	out := []reflect.Value{reflect.ValueOf(factory.publish(seq, err))}
	if m.fn.NumOut() == 2 {
		out = append(out, reflect.Zero(errorType))
	}
	return out
}

func (m *method) async(stmt *Statement, c call) error {
	cb := c.callback
	fail := func(err error) {
		cb.Call([]reflect.Value{reflect.Zero(cb.Type().In(0)), reflect.ValueOf(&err).Elem()})
	}
	count := func(n int64, err error) {
		if err != nil {
			fail(err)
			return
		}
		cb.Call([]reflect.Value{reflect.ValueOf(n).Convert(m.elem), reflect.Zero(errorType)})
	}

	switch m.ast.Operation {
	case types.OpCount:
		return stmt.CountAsync(c.ctx, count)
	case types.OpDelete:
		return stmt.DeleteAsync(c.ctx, count)
	}
	return stmt.SelectAsync(c.ctx, func(records []Record, err error) {
		if err != nil {
			fail(err)
			return
		}
		out := reflect.MakeSlice(reflect.SliceOf(m.elem), 0, len(records))
		for _, rec := range records {
			item := reflect.New(m.elem).Elem()
			if err := decodeInto(item, rec); err != nil {
				fail(err)
				return
			}
			out = reflect.Append(out, item)
		}
		cb.Call([]reflect.Value{out, reflect.Zero(errorType)})
	})
}

func (m *method) save(e *Engine, c call) ([]reflect.Value, error) {
	if len(c.values) != 1 {
		return nil, fmt.Errorf("save takes one record, got %d", len(c.values))
	}
	rec, err := Encode(c.values[0])
	if err != nil {
		return nil, err
	}
	stored, err := e.Save(c.ctx, m.entity, rec)
	if err != nil {
		return nil, err
	}
	if m.elem == nil {
		return nil, nil
	}
	out := reflect.New(m.elem).Elem()
	if err := decodeInto(out, stored); err != nil {
		return nil, err
	}
	return []reflect.Value{out}, nil
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
