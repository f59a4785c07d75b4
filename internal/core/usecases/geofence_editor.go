package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/pkg/geospatial"
)

// EditorMode is the interaction mode of a GeofenceEditor.
type EditorMode string

const (
	EditorViewing EditorMode = "viewing"
	EditorEditing EditorMode = "editing"
)

// PolygonSaver persists a full vertex sequence.
type PolygonSaver interface {
	SavePolygon(ctx context.Context, polygon domain.Polygon) error
}

// PolygonSaverFunc adapts a function to PolygonSaver.
type PolygonSaverFunc func(ctx context.Context, polygon domain.Polygon) error

func (f PolygonSaverFunc) SavePolygon(ctx context.Context, polygon domain.Polygon) error {
	return f(ctx, polygon)
}

// EditorSnapshot is a read-only view of an editor for rendering.
type EditorSnapshot struct {
	GeofenceID string             `json:"geofence_id"`
	Name       string             `json:"name"`
	Mode       EditorMode         `json:"mode"`
	Vertices   domain.Polygon     `json:"vertices"`
	Baseline   domain.Polygon     `json:"baseline"`
	Dirty      bool               `json:"dirty"`
	Saving     bool               `json:"saving"`
	Summary    geospatial.Summary `json:"summary"`
}

// GeofenceEditor holds the working copy of a geofence polygon and the last
// persisted baseline. All mutations require editing mode.
type GeofenceEditor struct {
	mu sync.Mutex

	geofenceID string
	name       string
	saver      PolygonSaver

	current  domain.Polygon
	baseline domain.Polygon
	editing  bool
	dirty    bool
	saving   bool
	gen      uint64
	closed   bool
}

// NewGeofenceEditor starts a viewing session over a loaded geofence.
func NewGeofenceEditor(g *domain.Geofence, saver PolygonSaver) *GeofenceEditor {
	return &GeofenceEditor{
		geofenceID: g.ID,
		name:       g.Name,
		saver:      saver,
		current:    g.Polygon.Clone(),
		baseline:   g.Polygon.Clone(),
	}
}

// Snapshot returns copies of the editor state.
func (e *GeofenceEditor) Snapshot() EditorSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	mode := EditorViewing
	if e.editing {
		mode = EditorEditing
	}
	return EditorSnapshot{
		GeofenceID: e.geofenceID,
		Name:       e.name,
		Mode:       mode,
		Vertices:   e.current.Clone(),
		Baseline:   e.baseline.Clone(),
		Dirty:      e.dirty,
		Saving:     e.saving,
		Summary:    geospatial.Summarize(e.current),
	}
}

// Dirty reports whether the working copy differs from the baseline.
func (e *GeofenceEditor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Editing reports whether the editor is in editing mode.
func (e *GeofenceEditor) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// StartEditing enters editing mode. The working copy is unchanged.
func (e *GeofenceEditor) StartEditing() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrSessionNotFound
	}
	e.editing = true
	return nil
}

// AddVertex appends a vertex, as on a map click.
func (e *GeofenceEditor) AddVertex(pos domain.Coordinate) error {
	return e.mutate(func() error {
		if !pos.Valid() {
			return invalidCoordinate("vertex")
		}
		e.current = append(e.current, pos)
		return nil
	})
}

// MoveVertex replaces the vertex at index, as on a marker drag.
func (e *GeofenceEditor) MoveVertex(index int, pos domain.Coordinate) error {
	return e.mutate(func() error {
		if err := e.checkIndex(index); err != nil {
			return err
		}
		if !pos.Valid() {
			return invalidCoordinate("vertex")
		}
		e.current[index] = pos
		return nil
	})
}

// RemoveVertex deletes the vertex at index. It silently does nothing when the
// polygon would drop below a triangle.
func (e *GeofenceEditor) RemoveVertex(index int) error {
	return e.mutate(func() error {
		if err := e.checkIndex(index); err != nil {
			return err
		}
		if len(e.current) <= domain.MinPolygonVertices {
			return nil
		}
		e.current = append(e.current[:index], e.current[index+1:]...)
		return nil
	})
}

// ClearAll empties the working copy.
func (e *GeofenceEditor) ClearAll() error {
	return e.mutate(func() error {
		e.current = domain.Polygon{}
		return nil
	})
}

// Reset restores the working copy to the baseline and stays in editing mode.
func (e *GeofenceEditor) Reset() error {
	return e.mutate(func() error {
		e.current = e.baseline.Clone()
		return nil
	})
}

// Cancel discards edits, restores the baseline and leaves editing mode.
func (e *GeofenceEditor) Cancel() error {
	return e.mutate(func() error {
		e.current = e.baseline.Clone()
		e.editing = false
		return nil
	})
}

// Save persists the working copy. With fewer than three vertices it returns a
// ValidationError and stays in editing mode. A store failure leaves every
// field untouched and is returned as a PersistenceError.
func (e *GeofenceEditor) Save(ctx context.Context) error {
	e.mu.Lock()
	if err := e.guard(); err != nil {
		e.mu.Unlock()
		return err
	}
	if !e.current.Usable() {
		n := len(e.current)
		e.mu.Unlock()
		return &domain.ValidationError{
			Kind:  domain.InsufficientVertices,
			Field: "polygon",
			Msg:   fmt.Sprintf("a geofence needs at least %d points, got %d", domain.MinPolygonVertices, n),
		}
	}
	pending := e.current.Clone()
	gen := e.gen
	e.saving = true
	e.mu.Unlock()

	err := e.saver.SavePolygon(ctx, pending)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return domain.ErrStaleResult
	}
	e.saving = false
	if err != nil {
		return &domain.PersistenceError{Op: "save geofence", Err: err}
	}
	e.baseline = pending
	e.current = pending.Clone()
	e.editing = false
	e.dirty = false
	return nil
}

// Close tears the session down. An outstanding save completes against the
// store but its result is not applied.
func (e *GeofenceEditor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.saving = false
	e.gen++
}

func (e *GeofenceEditor) mutate(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	e.dirty = !e.current.Equal(e.baseline)
	return nil
}

func (e *GeofenceEditor) guard() error {
	switch {
	case e.closed:
		return domain.ErrSessionNotFound
	case !e.editing:
		return fmt.Errorf("%w: editor is not in editing mode", domain.ErrInvalidTransition)
	case e.saving:
		return domain.ErrSaveInProgress
	}
	return nil
}

func (e *GeofenceEditor) checkIndex(index int) error {
	if index < 0 || index >= len(e.current) {
		return &domain.ValidationError{
			Kind:  domain.InvalidInput,
			Field: "index",
			Msg:   fmt.Sprintf("vertex %d out of range [0,%d)", index, len(e.current)),
		}
	}
	return nil
}

func invalidCoordinate(field string) error {
	return &domain.ValidationError{
		Kind:  domain.InvalidCoordinate,
		Field: field,
		Msg:   "latitude must be within [-90,90] and longitude within [-180,180]",
	}
}
