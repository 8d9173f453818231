package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zoobzio/repoql"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params,omitempty"`
	Page   *PageRequest   `json:"page,omitempty"`
}

// DeriveRequest is the body of POST /entities/{entity}/derive. Args bind
// the derived parameters by position.
type DeriveRequest struct {
	Method string       `json:"method"`
	Args   []any        `json:"args,omitempty"`
	Page   *PageRequest `json:"page,omitempty"`
}

// PageRequest selects a window of a select.
type PageRequest struct {
	Skip  int64 `json:"skip"`
	Limit int64 `json:"limit"`
}

// QueryResponse is the result of a query. Only the fields meaningful for
// the operation are set.
type QueryResponse struct {
	Operation string          `json:"operation"`
	Records   []repoql.Record `json:"records,omitempty"`
	Count     *int64          `json:"count,omitempty"`
	Exists    *bool           `json:"exists,omitempty"`
	Affected  *int64          `json:"affected,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "EMPTY_QUERY", "query is required")
		return
	}

	stmt, err := s.engine.Prepare(req.Query)
	if err != nil {
		s.queryError(w, r, err)
		return
	}
	if err := stmt.BindAll(normalizeMap(req.Params)); err != nil {
		s.queryError(w, r, err)
		return
	}
	s.execute(w, r, stmt, req.Page)
}

func (s *Server) handleDerive(w http.ResponseWriter, r *http.Request) {
	var req DeriveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body: "+err.Error())
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "EMPTY_METHOD", "method is required")
		return
	}

	stmt, err := s.engine.Derive(chi.URLParam(r, "entity"), req.Method)
	if err != nil {
		s.queryError(w, r, err)
		return
	}
	stmt, err = stmt.WithArgs(normalizeSlice(req.Args)...)
	if err != nil {
		s.queryError(w, r, err)
		return
	}
	s.execute(w, r, stmt, req.Page)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, stmt *repoql.Statement, page *PageRequest) {
	if page != nil {
		p, err := repoql.TryPaginate(page.Skip, page.Limit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PAGE", err.Error())
			return
		}
		stmt = stmt.WithPagination(p)
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := stmt.Execute(ctx)
	if err != nil {
		s.queryError(w, r, err)
		return
	}

	resp := QueryResponse{Operation: string(result.Operation)}
	switch result.Operation {
	case repoql.OpSelect:
		resp.Records = []repoql.Record{}
		for rec, err := range result.Records.All(ctx) {
			if err != nil {
				s.queryError(w, r, err)
				return
			}
			resp.Records = append(resp.Records, rec)
		}
	case repoql.OpCount:
		resp.Count = &result.Affected
	case repoql.OpExists:
		resp.Exists = &result.Exists
	case repoql.OpInsert:
		resp.Records = result.Inserted
		resp.Affected = &result.Affected
	default:
		resp.Affected = &result.Affected
	}
	writeJSON(w, http.StatusOK, resp)
}

// queryError maps the engine's error taxonomy onto HTTP statuses. Anything
// outside it is a storage failure.
func (s *Server) queryError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		syntax      *repoql.QuerySyntaxError
		unbound     *repoql.UnboundParameterError
		unknown     *repoql.UnknownParameterError
		field       *repoql.UnknownFieldError
		unsupported *repoql.UnsupportedOperationError
		missingID   *repoql.IdentifierMissingError
		nonUnique   *repoql.NonUniqueResultError
		timeout     *repoql.TimeoutError
	)
	switch {
	case errors.As(err, &syntax):
		writeError(w, http.StatusBadRequest, "SYNTAX_ERROR", err.Error())
	case errors.As(err, &unbound), errors.As(err, &unknown):
		writeError(w, http.StatusBadRequest, "BIND_ERROR", err.Error())
	case errors.As(err, &field):
		writeError(w, http.StatusBadRequest, "UNKNOWN_FIELD", err.Error())
	case errors.As(err, &unsupported), errors.Is(err, errors.ErrUnsupported):
		writeError(w, http.StatusBadRequest, "UNSUPPORTED", err.Error())
	case errors.As(err, &missingID):
		writeError(w, http.StatusBadRequest, "MISSING_ID", err.Error())
	case errors.As(err, &nonUnique):
		writeError(w, http.StatusConflict, "NON_UNIQUE", err.Error())
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "TIMEOUT", err.Error())
	default:
		s.logger.Error("query failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
	}
}
