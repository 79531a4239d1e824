package handler

import (
	"net/http"

	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/gorilla/websocket"
)

// buildUpgrader returns a WebSocket upgrader honoring the configured
// allowed origins. An empty origin list permits all origins (dev default).
func buildUpgrader(cfg *config.Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(cfg.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}
