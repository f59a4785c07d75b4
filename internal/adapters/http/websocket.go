package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"

	"github.com/pilartoda/trikeride/internal/core/ports"
)

const wsPingInterval = 30 * time.Second

// WebSocketGuard rejects plain HTTP requests and requests without a valid
// booking_id before the upgrade.
func WebSocketGuard(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if deps.Events == nil {
			return errUnavailable(c, "realtime feed not available")
		}
		bookingID := utils.CopyString(c.Query("booking_id"))
		if !validID(bookingID) {
			return errBadRequest(c, "booking_id must be a UUID")
		}
		// The hijacked connection keeps the ID after the request buffer is reused.
		c.Locals("booking_id", bookingID)
		return c.Next()
	}
}

// WebSocketHandler relays the status events of one booking to the client
// until either side goes away. Clients connect with /ws?booking_id=<uuid>.
func WebSocketHandler(events ports.EventSubscriber) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		bookingID, _ := c.Locals("booking_id").(string)
		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr, "booking_id", bookingID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		feed, stop, err := events.SubscribeBookingStatus(ctx, bookingID)
		if err != nil {
			slog.Warn("ws subscribe failed", "booking_id", bookingID, "error", err)
			_ = c.WriteJSON(map[string]string{"error": "subscribe failed"})
			return
		}
		defer stop()

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Reader: the client sends nothing we act on, but reading is how a
		// closed socket is noticed.
		go func() {
			defer cancel()
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("ws client disconnected", "remote", remoteAddr, "booking_id", bookingID)
				return
			case ev, ok := <-feed:
				if !ok {
					return
				}
				if err := writeJSON(ev); err != nil {
					return
				}
			case <-ticker.C:
				mu.Lock()
				err := c.WriteMessage(websocket.PingMessage, nil)
				mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}
}
