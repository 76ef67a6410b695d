package server

import (
	"context"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketFeedHandler streams new messages from the users the caller
// follows. RequireUser must run first.
// @Summary Live feed
// @Description Upgrade to a WebSocket that receives a FeedEvent for each new message by a followee
// @Tags feed
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/feed [get]
func (s *Server) WebSocketFeedHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		user, ok := conn.Locals(middleware.LocalsCurrentUser).(*models.User)
		if !ok || user == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		observability.FeedConnections.Inc()
		defer observability.FeedConnections.Dec()

		ctx, cancel := context.WithCancel(s.shutdownCtx)
		defer cancel()

		client := notifications.NewFeedClient(conn, user.ID)
		err := s.notifier.SubscribeFeed(ctx, user.ID, func(payload string) {
			client.TrySend([]byte(payload))
		})
		if err != nil {
			middleware.Logger.Error("feed subscribe failed",
				slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
			_ = conn.Close()
			return
		}

		middleware.Logger.Info("feed socket connected", slog.Uint64("user_id", uint64(user.ID)))
		done := make(chan struct{})
		go func() {
			defer close(done)
			client.WritePump(ctx)
		}()
		client.ReadPump()

		// The connection is recycled once this handler returns.
		cancel()
		<-done
		middleware.Logger.Info("feed socket closed", slog.Uint64("user_id", uint64(user.ID)))
	})

	return func(c *fiber.Ctx) error {
		if !s.notifier.Enabled() {
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				&models.AppError{Code: "UNAVAILABLE", Message: "Live feed is unavailable"})
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				&models.AppError{Code: "UPGRADE_REQUIRED", Message: "WebSocket upgrade required"})
		}
		return upgrade(c)
	}
}
