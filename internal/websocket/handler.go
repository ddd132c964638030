package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HouseholdFromRequest resolves the household a connection belongs to,
// usually from the request's session.
type HouseholdFromRequest func(r *http.Request) (int64, bool)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients scoped to the caller's household.
func HandleWebSocket(hub *Hub, household HouseholdFromRequest, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID, ok := household(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Allow connections from any origin (household LAN)
		})
		if err != nil {
			logger.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, householdID)
		client.Run(r.Context())
	}
}
