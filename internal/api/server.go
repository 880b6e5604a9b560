package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/reporting"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/storage"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

// JournalStore is the read side of the repair journal the API exposes.
type JournalStore interface {
	List(ctx context.Context, sessionID string, limit, offset int) ([]storage.RepairRow, error)
	Summary(ctx context.Context, sessionID string) (map[validation.Outcome]int, error)
}

// Server exposes one validation session over HTTP.
type Server struct {
	Session        *validation.Session
	Document       string
	Journal        JournalStore               // optional
	Save           func(scene.Accessor) error // optional; persists the document
	Logger         *slog.Logger
	AllowedOrigins []string
	TokenHash      string // bcrypt; empty disables auth
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	withCORS := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if origin := s.pickCORSOrigin(r); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h(w, r)
		}
	}

	// Health
	mux.HandleFunc("GET /api/v1/health", withCORS(s.handleHealth))

	// Rules
	mux.HandleFunc("GET /api/v1/rules", withCORS(s.handleRules))
	mux.HandleFunc("POST /api/v1/rules/{id}/enabled", withCORS(withAuth(s, s.handleSetEnabled, "rules:toggle")))

	// Validation and findings
	mux.HandleFunc("POST /api/v1/validate", withCORS(withAuth(s, s.handleValidate, "validate")))
	mux.HandleFunc("GET /api/v1/findings", withCORS(s.handleFindings))
	mux.HandleFunc("GET /api/v1/report", withCORS(s.handleReport))

	// Repairs
	mux.HandleFunc("POST /api/v1/findings/{position}/repair", withCORS(withAuth(s, s.handleRepairOne, "repair:one")))
	mux.HandleFunc("POST /api/v1/repair-all", withCORS(withAuth(s, s.handleRepairAll, "repair:all")))
	mux.HandleFunc("POST /api/v1/save", withCORS(withAuth(s, s.handleSave, "save")))

	// Journal
	mux.HandleFunc("GET /api/v1/journal", withCORS(s.handleJournal))

	// Fallback 404
	mux.HandleFunc("/", withCORS(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	return mux
}

func (s *Server) pickCORSOrigin(r *http.Request) string {
	if len(s.AllowedOrigins) == 0 {
		return ""
	}
	origin := r.Header.Get("Origin")
	for _, ao := range s.AllowedOrigins {
		if ao == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(origin, ao) {
			return origin
		}
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"session":   s.Session.ID,
		"document":  s.Document,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	out := s.Session.Registry().Entries()
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

type enabledReq struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.err(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	var in enabledReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.err(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.Session.Registry().SetEnabled(id, in.Enabled); err != nil {
		s.err(w, http.StatusNotFound, err.Error())
		return
	}
	s.handleRules(w, r)
}

// POST /api/v1/validate runs the selection, or one rule with ?rule=<id>.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var err error
	if raw := r.URL.Query().Get("rule"); raw != "" {
		id, convErr := strconv.Atoi(raw)
		if convErr != nil {
			s.err(w, http.StatusBadRequest, "invalid rule id")
			return
		}
		if _, ok := s.Session.Registry().Rule(id); !ok {
			s.err(w, http.StatusNotFound, validation.ErrRuleNotFound.Error())
			return
		}
		sc := s.Session.Scene()
		if sc == nil {
			s.err(w, http.StatusConflict, validation.ErrNoDocument.Error())
			return
		}
		err = s.Session.Registry().RunOne(sc, id)
	} else {
		err = s.Session.Validate()
	}
	switch {
	case errors.Is(err, validation.ErrNoDocument):
		s.err(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.log().Error("validate failed", "err", err)
		s.err(w, http.StatusInternalServerError, "host error: "+err.Error())
		return
	}
	s.handleFindings(w, r)
}

func (s *Server) handleFindings(w http.ResponseWriter, r *http.Request) {
	items := s.Session.Registry().Findings()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reporting.NewReport(s.Session.ID, s.Document, s.Session.Registry()))
}

func (s *Server) handleRepairOne(w http.ResponseWriter, r *http.Request) {
	pos, err := strconv.Atoi(r.PathValue("position"))
	if err != nil {
		s.err(w, http.StatusBadRequest, "invalid position")
		return
	}
	err = s.Session.Dispatcher().RepairOne(r.Context(), pos)
	var failed *validation.RepairFailedError
	switch {
	case errors.As(err, &failed):
		s.err(w, http.StatusConflict, failed.Error())
		return
	case err != nil:
		s.log().Error("repair failed", "position", pos, "err", err)
		s.err(w, http.StatusInternalServerError, "host error: "+err.Error())
		return
	}
	s.handleFindings(w, r)
}

func (s *Server) handleRepairAll(w http.ResponseWriter, r *http.Request) {
	res, err := s.Session.Dispatcher().RepairAll(r.Context())
	body := map[string]any{"result": res, "items": s.Session.Registry().Findings()}
	if err != nil {
		s.log().Warn("repair pass had host faults", "err", err)
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.Save == nil {
		s.err(w, http.StatusNotImplemented, "saving is not configured")
		return
	}
	if err := s.Session.Exclusive(s.Save); err != nil {
		s.err(w, http.StatusInternalServerError, "save: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "document": s.Document})
}

// GET /api/v1/journal lists this session's repairs; ?session=all lists every
// session.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		s.err(w, http.StatusNotFound, "journal disabled")
		return
	}
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := max(parseInt(q.Get("offset"), 0), 0)
	session := q.Get("session")
	switch session {
	case "":
		session = s.Session.ID
	case "all":
		session = ""
	}

	rows, err := s.Journal.List(r.Context(), session, limit, offset)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	summary, err := s.Journal.Summary(r.Context(), session)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "summary": summary, "limit": limit, "offset": offset,
	})
}

func (s *Server) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
