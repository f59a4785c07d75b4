package http

import (
	"crypto/subtle"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/core/usecases"
)

type driverStatusBody struct {
	Status domain.DriverStatus `json:"status"`
}

// AdminAuthMiddleware requires "Authorization: Bearer <token>" on admin routes.
// An empty token leaves the routes open for local development.
func AdminAuthMiddleware(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		got, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return errUnauthorized(c, "admin token required")
		}
		return c.Next()
	}
}

// ListDriversHandler pages through drivers of one approval status.
func ListDriversHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := domain.DriverStatus(c.Query("status", string(domain.DriverPending)))
		pg := pageFromQuery(c)

		drivers, total, err := deps.Drivers.List(c.UserContext(), status, pg.Offset, pg.Limit)
		if err != nil {
			return handleError(c, err)
		}
		if drivers == nil {
			drivers = []domain.Driver{}
		}

		pg.Total = total
		SetLinkHeaders(c, pg, url.Values{"status": {string(status)}})
		c.Set("Cache-Control", "no-store")
		return c.JSON(PaginatedResponse{Data: drivers, Pagination: pg})
	}
}

// UpdateDriverStatusHandler approves, rejects or suspends a driver.
func UpdateDriverStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !validID(id) {
			return errNotFound(c, "driver not found")
		}
		var body driverStatusBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Drivers.UpdateStatus(c.UserContext(), id, body.Status); err != nil {
			return handleError(c, err)
		}
		d, err := deps.Drivers.Get(c.UserContext(), id)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(d)
	}
}

// OpenEditorHandler starts a geofence editor session on the stored polygon.
func OpenEditorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid, editor, err := deps.Editors.Open(c.UserContext())
		if err != nil {
			return handleError(c, err)
		}
		c.Location("/v1/admin/geofence/editor/" + sid)
		return c.Status(fiber.StatusCreated).JSON(editorResponse(sid, editor))
	}
}

// GetEditorHandler renders an editor session.
func GetEditorHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(*fiber.Ctx, *usecases.GeofenceEditor) error { return nil })
}

// StartEditingHandler switches the editor into editing mode.
func StartEditingHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(_ *fiber.Ctx, e *usecases.GeofenceEditor) error {
		return e.StartEditing()
	})
}

// AddVertexHandler appends a vertex.
func AddVertexHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(c *fiber.Ctx, e *usecases.GeofenceEditor) error {
		pt, err := parseVertex(c)
		if err != nil {
			return err
		}
		return e.AddVertex(pt)
	})
}

// MoveVertexHandler replaces the vertex at :idx.
func MoveVertexHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(c *fiber.Ctx, e *usecases.GeofenceEditor) error {
		idx, err := c.ParamsInt("idx")
		if err != nil {
			return &domain.ValidationError{Kind: domain.InvalidInput, Field: "index", Msg: "must be an integer"}
		}
		pt, err := parseVertex(c)
		if err != nil {
			return err
		}
		return e.MoveVertex(idx, pt)
	})
}

// RemoveVertexHandler deletes the vertex at :idx.
func RemoveVertexHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(c *fiber.Ctx, e *usecases.GeofenceEditor) error {
		idx, err := c.ParamsInt("idx")
		if err != nil {
			return &domain.ValidationError{Kind: domain.InvalidInput, Field: "index", Msg: "must be an integer"}
		}
		return e.RemoveVertex(idx)
	})
}

// ResetEditorHandler discards edits back to the baseline.
func ResetEditorHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(_ *fiber.Ctx, e *usecases.GeofenceEditor) error {
		return e.Reset()
	})
}

// ClearEditorHandler removes every vertex from the working copy.
func ClearEditorHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(_ *fiber.Ctx, e *usecases.GeofenceEditor) error {
		return e.ClearAll()
	})
}

// CancelEditorHandler reverts and leaves editing mode.
func CancelEditorHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(_ *fiber.Ctx, e *usecases.GeofenceEditor) error {
		return e.Cancel()
	})
}

// SaveEditorHandler persists the working copy.
func SaveEditorHandler(deps *Dependencies) fiber.Handler {
	return editorAction(deps, func(c *fiber.Ctx, e *usecases.GeofenceEditor) error {
		return e.Save(c.UserContext())
	})
}

// CloseEditorHandler ends an editor session.
func CloseEditorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Editors.Close(c.Params("sid")); err != nil {
			return handleError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func editorAction(deps *Dependencies, do func(*fiber.Ctx, *usecases.GeofenceEditor) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Params("sid")
		logWith(c, "editor_session", sid)
		editor, err := deps.Editors.Get(sid)
		if err != nil {
			return handleError(c, err)
		}
		if err := do(c, editor); err != nil {
			return handleError(c, err)
		}
		return c.JSON(editorResponse(sid, editor))
	}
}

func editorResponse(sid string, e *usecases.GeofenceEditor) fiber.Map {
	return fiber.Map{"session_id": sid, "editor": e.Snapshot()}
}

func parseVertex(c *fiber.Ctx) (domain.Coordinate, error) {
	var body coordBody
	if err := c.BodyParser(&body); err != nil {
		return domain.Coordinate{}, &domain.ValidationError{Kind: domain.InvalidInput, Msg: "invalid request body"}
	}
	return body.coordinate("vertex")
}
