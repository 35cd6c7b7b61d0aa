package server

import (
	"encoding/json"
	"log/slog"
	"time"

	"commentguard/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// feedHello is the first frame an operator receives on the event feed.
type feedHello struct {
	Type            string    `json:"type"`
	Operator        string    `json:"operator"`
	SettingsVersion uint64    `json:"settings_version"`
	At              time.Time `json:"at"`
}

// WebsocketHandler streams moderation events to an authenticated operator.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		operator, ok := conn.Locals("operator").(string)
		if !ok || operator == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(operator, conn)
		if err != nil {
			middleware.Logger.Warn("event feed registration refused",
				slog.String("operator", operator), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		hello, err := json.Marshal(feedHello{
			Type:            "hello",
			Operator:        operator,
			SettingsVersion: s.settingsService.Version(),
			At:              time.Now().UTC(),
		})
		if err == nil {
			client.TrySend(hello)
		}

		go client.WritePump()
		client.ReadPump()
	})
}
