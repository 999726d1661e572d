package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TattooNOW/tattoonow-show/internal/broadcast"
	"github.com/TattooNOW/tattoonow-show/internal/models"
	"github.com/TattooNOW/tattoonow-show/internal/presenter"
	"github.com/TattooNOW/tattoonow-show/internal/rundown"
)

var ErrSessionNotFound = errors.New("no open session for show")

// ShowSource loads show descriptors
type ShowSource interface {
	GetShow(ctx context.Context, id string) (*models.Show, error)
}

// TapeSource resolves the tapes a show references
type TapeSource interface {
	FetchAll(ctx context.Context, ids []string) (map[string]*models.Tape, []TapeFailure)
}

// Session is one compiled show with its sync bus and the server-side
// controller replica. The controller is the notes-context source and the
// target of device commands.
type Session struct {
	ShowID       string
	Show         *models.Show
	Compilation  *rundown.Compilation
	TapeFailures []TapeFailure
	Bus          *broadcast.MemoryBus
	Controller   *presenter.Presentation
	OpenedAt     time.Time

	runner *presenter.Runner
}

func (s *Session) close() {
	s.runner.Stop()
	s.Bus.Close()
}

// SessionManager opens and caches one session per show
type SessionManager struct {
	mu       sync.Mutex
	shows    ShowSource
	tapes    TapeSource
	tick     time.Duration
	sessions map[string]*Session
}

// NewSessionManager creates a session manager. tick is the runner sampling
// interval; zero uses the presenter default.
func NewSessionManager(shows ShowSource, tapes TapeSource, tick time.Duration) *SessionManager {
	return &SessionManager{
		shows:    shows,
		tapes:    tapes,
		tick:     tick,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for showID, compiling it on first use
func (m *SessionManager) Open(ctx context.Context, showID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[showID]; ok {
		return s, nil
	}
	s, err := m.build(ctx, showID)
	if err != nil {
		return nil, err
	}
	m.sessions[showID] = s
	return s, nil
}

// Get returns an already open session
func (m *SessionManager) Get(showID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[showID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, showID)
	}
	return s, nil
}

// Reload recompiles showID. Windows attached to the old session lose their
// bus and must reconnect.
func (m *SessionManager) Reload(ctx context.Context, showID string) (*Session, error) {
	s, err := m.build(ctx, showID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	old := m.sessions[showID]
	m.sessions[showID] = s
	m.mu.Unlock()

	if old != nil {
		old.close()
	}
	log.Printf("Session reloaded: show=%s", showID)
	return s, nil
}

// Close stops and forgets the session for showID
func (m *SessionManager) Close(showID string) error {
	m.mu.Lock()
	s, ok := m.sessions[showID]
	delete(m.sessions, showID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, showID)
	}
	s.close()
	log.Printf("Session closed: show=%s", showID)
	return nil
}

// InvalidateTapes drops cached tapes when the tape source caches them
func (m *SessionManager) InvalidateTapes() {
	if inv, ok := m.tapes.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
}

// CloseAll stops every open session
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

func (m *SessionManager) build(ctx context.Context, showID string) (*Session, error) {
	show, err := m.shows.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	tapes, failures := m.tapes.FetchAll(ctx, show.TapeIDs())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	comp := rundown.Compile(show, tapes)
	bus := broadcast.NewMemoryBus()
	controller := presenter.New(comp.Slides, bus,
		presenter.WithOrigin("controller:"+uuid.NewString()),
		presenter.WithNotesContext(show.Episode))
	runner := presenter.NewRunner(controller, bus, m.tick)
	runner.Start(context.Background())

	log.Printf("Session opened: show=%s slides=%d diagnostics=%d tape failures=%d",
		showID, len(comp.Slides), len(comp.Diagnostics), len(failures))

	return &Session{
		ShowID:       showID,
		Show:         show,
		Compilation:  comp,
		TapeFailures: failures,
		Bus:          bus,
		Controller:   controller,
		OpenedAt:     time.Now(),
		runner:       runner,
	}, nil
}

// SessionNavigator drives the controller of one show, opening the session on
// demand. It lets a control bridge outlive session reloads.
type SessionNavigator struct {
	Sessions *SessionManager
	ShowID   string
}

func (n SessionNavigator) controller() *presenter.Presentation {
	s, err := n.Sessions.Open(context.Background(), n.ShowID)
	if err != nil {
		log.Printf("Control command dropped, show %s unavailable: %v", n.ShowID, err)
		return nil
	}
	return s.Controller
}

func (n SessionNavigator) NextSlide() bool {
	if p := n.controller(); p != nil {
		return p.NextSlide()
	}
	return false
}

func (n SessionNavigator) PreviousSlide() bool {
	if p := n.controller(); p != nil {
		return p.PreviousSlide()
	}
	return false
}

func (n SessionNavigator) ToggleQR() bool {
	if p := n.controller(); p != nil {
		return p.ToggleQR()
	}
	return false
}

func (n SessionNavigator) ToggleLowerThird() bool {
	if p := n.controller(); p != nil {
		return p.ToggleLowerThird()
	}
	return false
}

func (n SessionNavigator) TogglePortfolioLayout() models.PortfolioLayout {
	if p := n.controller(); p != nil {
		return p.TogglePortfolioLayout()
	}
	return models.LayoutGrid
}

func (n SessionNavigator) JumpToSegment(label string) bool {
	if p := n.controller(); p != nil {
		return p.JumpToSegment(label)
	}
	return false
}
