package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/security"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/shared"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/storage"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

type fakeJournal struct {
	session string
	rows    []storage.RepairRow
}

func (f *fakeJournal) List(_ context.Context, sessionID string, limit, offset int) ([]storage.RepairRow, error) {
	f.session = sessionID
	return f.rows, nil
}

func (f *fakeJournal) Summary(_ context.Context, sessionID string) (map[validation.Outcome]int, error) {
	return map[validation.Outcome]int{validation.OutcomeRepaired: len(f.rows)}, nil
}

func newServer(t *testing.T) *Server {
	t.Helper()
	doc := &scene.Document{Name: "creature", Objects: []*scene.Object{
		{Name: "A", Kind: scene.KindMesh, Mesh: &scene.Mesh{Name: "a"}},
		{Name: "B", Kind: scene.KindMesh, Mesh: &scene.Mesh{Name: "A"}},
		{Name: "Rig", Kind: scene.KindArmature, Armature: &scene.Armature{Name: "Rig", Bones: []string{"ns: "}}},
	}}
	logger := shared.NewLogger(io.Discard, "text", "error")
	sess := validation.NewSession(logger, nil)
	sess.Load(doc)
	return &Server{Session: sess, Document: doc.Name, Logger: logger}
}

type listResp struct {
	Items []validation.Item `json:"items"`
	Count int               `json:"count"`
	Error string            `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, listResp) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out listResp
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthAndRules(t *testing.T) {
	h := newServer(t).Routes()

	rec, _ := do(t, h, http.MethodGet, "/api/v1/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"document":"creature"`)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/rules", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rules struct {
		Items []validation.Entry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	assert.Equal(t, []validation.Entry{
		{ID: 0, Name: "Object Data Names", Enabled: true},
		{ID: 1, Name: "Bone Names", Enabled: true},
	}, rules.Items)
}

func TestValidateAndRepair(t *testing.T) {
	h := newServer(t).Routes()

	rec, got := do(t, h, http.MethodPost, "/api/v1/validate", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, got.Count)

	rec, got = do(t, h, http.MethodPost, "/api/v1/findings/0/repair", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "failed to repair - Mesh name (a) did not match object name (A)", got.Error)

	rec, got = do(t, h, http.MethodPost, "/api/v1/findings/1/repair", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, got.Count)

	// Out of range is a no-op.
	rec, got = do(t, h, http.MethodPost, "/api/v1/findings/9/repair", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, got.Count)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/findings/x/repair", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRepairAll(t *testing.T) {
	h := newServer(t).Routes()
	do(t, h, http.MethodPost, "/api/v1/validate", "", "")

	rec, _ := do(t, h, http.MethodPost, "/api/v1/repair-all", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Result validation.BatchResult `json:"result"`
		Items  []validation.Item      `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, validation.BatchResult{Attempted: 2, Repaired: 1, Failed: 1, Skipped: 1}, body.Result)
	assert.Len(t, body.Items, 2)
}

func TestValidateSelection(t *testing.T) {
	h := newServer(t).Routes()

	rec, _ := do(t, h, http.MethodPost, "/api/v1/rules/0/enabled", `{"enabled":false}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, got := do(t, h, http.MethodPost, "/api/v1/validate", "", "")
	require.Equal(t, 1, got.Count)
	assert.Equal(t, "Bone Names", got.Items[0].Rule)

	// A single rule runs even when deselected.
	_, got = do(t, h, http.MethodPost, "/api/v1/validate?rule=0", "", "")
	assert.Equal(t, 2, got.Count)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/validate?rule=7", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, h, http.MethodPost, "/api/v1/validate?rule=x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, h, http.MethodPost, "/api/v1/rules/7/enabled", `{"enabled":true}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, h, http.MethodPost, "/api/v1/rules/0/enabled", `nope`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateWithoutDocument(t *testing.T) {
	s := newServer(t)
	s.Session.Close()
	rec, _ := do(t, s.Routes(), http.MethodPost, "/api/v1/validate", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuth(t *testing.T) {
	s := newServer(t)
	tok, err := security.NewToken(16)
	require.NoError(t, err)
	s.TokenHash, err = security.HashToken(tok)
	require.NoError(t, err)
	h := s.Routes()

	rec, _ := do(t, h, http.MethodPost, "/api/v1/validate", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = do(t, h, http.MethodPost, "/api/v1/validate", "", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = do(t, h, http.MethodPost, "/api/v1/validate", "", tok)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reads stay open.
	rec, _ = do(t, h, http.MethodGet, "/api/v1/findings", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSave(t *testing.T) {
	s := newServer(t)
	rec, _ := do(t, s.Routes(), http.MethodPost, "/api/v1/save", "", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	calls := 0
	s.Save = func(sc scene.Accessor) error {
		calls++
		names, err := sc.ObjectNames()
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "Rig"}, names)
		return nil
	}
	rec, _ = do(t, s.Routes(), http.MethodPost, "/api/v1/save", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)

	s.Save = func(scene.Accessor) error { return errors.New("disk full") }
	rec, got := do(t, s.Routes(), http.MethodPost, "/api/v1/save", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "save: disk full", got.Error)
}

func TestJournal(t *testing.T) {
	s := newServer(t)
	rec, _ := do(t, s.Routes(), http.MethodGet, "/api/v1/journal", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	j := &fakeJournal{rows: []storage.RepairRow{{ID: 1, Rule: "Bone Names", Outcome: validation.OutcomeRepaired}}}
	s.Journal = j
	rec, _ = do(t, s.Routes(), http.MethodGet, "/api/v1/journal", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, s.Session.ID, j.session)
	assert.Contains(t, rec.Body.String(), `"repaired":1`)

	do(t, s.Routes(), http.MethodGet, "/api/v1/journal?session=all", "", "")
	assert.Equal(t, "", j.session)
}

func TestReport(t *testing.T) {
	s := newServer(t)
	h := s.Routes()
	do(t, h, http.MethodPost, "/api/v1/validate", "", "")
	rec, _ := do(t, h, http.MethodGet, "/api/v1/report", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep struct {
		ID       string            `json:"id"`
		Findings []validation.Item `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, s.Session.ID, rep.ID)
	assert.Len(t, rep.Findings, 3)
}

func TestCORS(t *testing.T) {
	s := newServer(t)
	s.AllowedOrigins = []string{"http://localhost:5173"}
	h := s.Routes()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/validate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}

func TestSaveDuringRepairAll(t *testing.T) {
	doc := &scene.Document{Name: "crowd"}
	for i := 0; i < 200; i++ {
		doc.Objects = append(doc.Objects, &scene.Object{
			Name: fmt.Sprintf("Part%d", i),
			Kind: scene.KindMesh,
			Mesh: &scene.Mesh{Name: fmt.Sprintf("Mesh.%03d", i)},
		})
	}
	logger := shared.NewLogger(io.Discard, "text", "error")
	sess := validation.NewSession(logger, nil)
	sess.Load(doc)
	require.NoError(t, sess.Validate())

	s := &Server{Session: sess, Document: doc.Name, Logger: logger}
	s.Save = func(sc scene.Accessor) error {
		_, err := scene.Encode(sc.(*scene.Document), scene.FormatYAML)
		return err
	}
	h := s.Routes()

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, path := range []string{"/api/v1/repair-all", "/api/v1/save"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
			codes[i] = rec.Code
		}()
	}
	wg.Wait()
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
	assert.Empty(t, sess.Registry().Findings())
}
