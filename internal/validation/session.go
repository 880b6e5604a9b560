package validation

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/rules"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

// Session binds a Registry to whichever document is currently loaded.
type Session struct {
	ID string

	reg     *Registry
	journal Journal
	log     *slog.Logger

	mu sync.Mutex
	sc scene.Accessor
}

func NewSession(logger *slog.Logger, journal Journal) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With("session", id)
	return &Session{
		ID:      id,
		reg:     NewRegistry(logger, rules.Catalog),
		journal: journal,
		log:     logger,
	}
}

// Load is the document-load hook. Selection flags go back to all enabled and
// earlier findings are dropped, whatever was toggled before.
func (s *Session) Load(sc scene.Accessor) {
	s.mu.Lock()
	s.sc = sc
	s.mu.Unlock()
	s.reg.Initialize()
	s.log.Info("document loaded")
}

func (s *Session) Close() {
	s.reg.Teardown()
	s.mu.Lock()
	s.sc = nil
	s.mu.Unlock()
}

func (s *Session) Registry() *Registry { return s.reg }

func (s *Session) Scene() scene.Accessor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sc
}

// Validate runs the selected rules against the loaded document.
func (s *Session) Validate() error {
	sc := s.Scene()
	if sc == nil {
		return ErrNoDocument
	}
	return s.reg.RunSelected(sc)
}

// Exclusive runs fn against the loaded document while no registry or
// dispatcher operation is in flight. Use it for anything that reads the
// whole document, such as saving.
func (s *Session) Exclusive(fn func(scene.Accessor) error) error {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	sc := s.Scene()
	if sc == nil {
		return ErrNoDocument
	}
	return fn(sc)
}

// Dispatcher returns a dispatcher for the loaded document that journals
// under this session's id.
func (s *Session) Dispatcher() *Dispatcher {
	d := NewDispatcher(s.reg, s.Scene(), s.journal, s.log)
	d.sessionID = s.ID
	return d
}
