package handler

import (
	"github.com/labstack/echo/v4"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health    *HealthHandler
	Seat      *SeatHandler
	Assistant *AssistantHandler
}

// RegisterRoutes はAPIルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Check)

	api := e.Group("/api")
	api.GET("/days", h.Seat.Days)
	api.GET("/seats-:day", h.Seat.GetSeats)
	api.GET("/seats-:day/summary", h.Seat.Summary)
	api.POST("/save-seats-:day", h.Seat.SaveSeats)
	api.POST("/chat-assistant", h.Assistant.Chat)
}
