package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// GeofenceEditorService keeps admin editor sessions keyed by session ID.
type GeofenceEditorService struct {
	geofences *GeofenceService

	mu       sync.Mutex
	sessions map[string]*editorSession
}

type editorSession struct {
	editor   *GeofenceEditor
	lastSeen time.Time
}

// NewGeofenceEditorService creates a new GeofenceEditorService.
func NewGeofenceEditorService(geofences *GeofenceService) *GeofenceEditorService {
	return &GeofenceEditorService{
		geofences: geofences,
		sessions:  make(map[string]*editorSession),
	}
}

// Open loads the active geofence from the store and starts a session in viewing mode.
func (s *GeofenceEditorService) Open(ctx context.Context) (string, *GeofenceEditor, error) {
	g, err := s.geofences.Load(ctx)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	editor := NewGeofenceEditor(g, s.geofences.Saver(g.ID))

	s.mu.Lock()
	s.sessions[id] = &editorSession{editor: editor, lastSeen: time.Now()}
	s.mu.Unlock()

	slog.InfoContext(ctx, "geofence editor opened", "session_id", id, "geofence_id", g.ID, "vertices", len(g.Polygon))
	return id, editor, nil
}

// Get returns an open editor session.
func (s *GeofenceEditorService) Get(id string) (*GeofenceEditor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	sess.lastSeen = time.Now()
	return sess.editor, nil
}

// Close tears a session down; any in-flight save result is discarded.
func (s *GeofenceEditorService) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.editor.Close()
	return nil
}

// SweepIdle closes editor sessions not looked up since now minus maxIdle.
func (s *GeofenceEditorService) SweepIdle(now time.Time, maxIdle time.Duration) int {
	cutoff := now.Add(-maxIdle)
	s.mu.Lock()
	var idle []*GeofenceEditor
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			idle = append(idle, sess.editor)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, editor := range idle {
		editor.Close()
	}
	if len(idle) > 0 {
		slog.Info("idle geofence editors closed", "count", len(idle), "max_idle", maxIdle)
	}
	return len(idle)
}
