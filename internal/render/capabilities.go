package render

// Capabilities describes the SQL features supported by a dialect.
type Capabilities struct {
	Returning         bool // INSERT ... RETURNING *
	OrderedPagination bool // OFFSET requires an ORDER BY clause
}

// Dialect is the per-database part of rendering.
type Dialect interface {
	Name() string
	// Quote quotes an identifier.
	Quote(ident string) string
	// Placeholder returns the placeholder of the n-th argument, 1-based.
	Placeholder(n int) string
	// Window renders the skip/limit clause, with a leading space, or "" when
	// both are zero.
	Window(skip, limit int64) string
	Capabilities() Capabilities
}
