package admin

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maxpert/sqlmap/encoding"
	"github.com/maxpert/sqlmap/sqlmap"
	"github.com/maxpert/sqlmap/validate"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

// Reloader reloads templates from disk.
type Reloader interface {
	Reload() error
}

// AdminHandlers serves template inspection endpoints
type AdminHandlers struct {
	sqlmap   *sqlmap.SQLMap
	store    validate.IDLister
	checker  *validate.Checker
	reloader Reloader
	strict   bool
}

// NewAdminHandlers creates a new AdminHandlers instance. reloader may be nil.
func NewAdminHandlers(m *sqlmap.SQLMap, store validate.IDLister, checker *validate.Checker, reloader Reloader, strict bool) *AdminHandlers {
	return &AdminHandlers{
		sqlmap:   m,
		store:    store,
		checker:  checker,
		reloader: reloader,
		strict:   strict,
	}
}

// buildRequest is the body of POST /sql/{id}/build
type buildRequest struct {
	Data    sqlmap.Data    `json:"data" msgpack:"data"`
	Options sqlmap.Options `json:"options" msgpack:"options"`
}

// checkResponse is the body of GET /check
type checkResponse struct {
	Reports []validate.Report `json:"reports" msgpack:"reports"`
	Failed  int               `json:"failed" msgpack:"failed"`
}

// handleResolve returns the resolved definition for an id
func (h *AdminHandlers) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, err := h.sqlmap.Resolver().Resolve(id, r.URL.Query().Get("shard"))
	if err != nil {
		writeErrorResponse(w, r, statusFor(err), err.Error())
		return
	}
	writeResponse(w, r, http.StatusOK, def)
}

// handleBuild resolves and builds a statement from the posted data
func (h *AdminHandlers) handleBuild(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, "failed to read body")
		return
	}

	var req buildRequest
	if len(body) > 0 {
		if err := encoding.UnmarshalAs(r.Header.Get("Content-Type"), body, &req); err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	if req.Data == nil {
		req.Data = sqlmap.Data{}
	}
	if shard := r.URL.Query().Get("shard"); shard != "" {
		if _, ok := req.Data[sqlmap.ShardingKey]; !ok {
			req.Data[sqlmap.ShardingKey] = shard
		}
	}

	stmt, err := h.sqlmap.GetSQL(id, req.Data, req.Options)
	if err != nil {
		status := statusFor(err)
		if !sqlmap.IsNotFound(err) && !sqlmap.IsConfigDefect(err) {
			// anything else out of GetSQL is the builder rejecting the input
			status = http.StatusBadRequest
		}
		writeErrorResponse(w, r, status, err.Error())
		return
	}
	writeResponse(w, r, http.StatusOK, stmt)
}

// handleCheck lints every template in the store
func (h *AdminHandlers) handleCheck(w http.ResponseWriter, r *http.Request) {
	reports := h.checker.CheckAll(h.store, h.sqlmap.Resolver())
	writeResponse(w, r, http.StatusOK, checkResponse{
		Reports: reports,
		Failed:  validate.CountFailed(reports, h.strict),
	})
}

// handleReload reloads templates from disk
func (h *AdminHandlers) handleReload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		writeErrorResponse(w, r, http.StatusNotImplemented, "reload not available")
		return
	}
	if err := h.reloader.Reload(); err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeResponse(w, r, http.StatusOK, map[string]interface{}{"reloaded": true})
}

// statusFor maps resolution errors to HTTP status codes
func statusFor(err error) int {
	if sqlmap.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeResponse writes a successful response as JSON or msgpack depending on Accept
func writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	contentType := encoding.Negotiate(r.Header.Get("Accept"))
	body, err := encoding.MarshalAs(contentType, map[string]interface{}{"data": data})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeErrorResponse writes an error response
func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	contentType := encoding.Negotiate(r.Header.Get("Accept"))
	body, err := encoding.MarshalAs(contentType, map[string]interface{}{"error": message})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
		http.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
