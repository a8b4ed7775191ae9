package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/day"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/pkg/logger"
)

const (
	msgInvalidFormat = "Format invalide (80 places attendues)"
	msgReadFailed    = "Erreur serveur lors de la lecture des places"
	msgSaveFailed    = "Erreur serveur lors de la sauvegarde"
)

type SeatHandler struct {
	service ReservationServiceInterface
	binder  echo.DefaultBinder
}

func NewSeatHandler(s ReservationServiceInterface) *SeatHandler {
	return &SeatHandler{service: s}
}

// SeatPayload は1座席分のJSON表現
type SeatPayload struct {
	Reserved *bool `json:"reserved" validate:"required"`
}

// SaveSeatsRequest は保存リクエスト。本文はJSON配列そのもの
type SaveSeatsRequest struct {
	Seats []SeatPayload `validate:"len=80,dive"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DayResponse struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

type SummaryResponse struct {
	Day      string `json:"day"`
	Label    string `json:"label"`
	Total    int    `json:"total"`
	Reserved int    `json:"reserved"`
	Free     int    `json:"free"`
}

func toSeatPayloads(seats []seat.Seat) []SeatPayload {
	resp := make([]SeatPayload, len(seats))
	for i, s := range seats {
		reserved := s.Reserved
		resp[i] = SeatPayload{Reserved: &reserved}
	}
	return resp
}

func toSeats(payloads []SeatPayload) []seat.Seat {
	seats := make([]seat.Seat, len(payloads))
	for i, p := range payloads {
		seats[i] = seat.Seat{Reserved: *p.Reserved}
	}
	return seats
}

// Days は設定された公演日一覧を返す
func (h *SeatHandler) Days(c echo.Context) error {
	days := h.service.Days()
	resp := make([]DayResponse, len(days))
	for i, d := range days {
		resp[i] = DayResponse{Token: d.Token, Label: d.Label}
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSeats は公演日の80席分の状態を返す
func (h *SeatHandler) GetSeats(c echo.Context) error {
	token := c.Param("day")
	seats, err := h.service.GetSeats(c.Request().Context(), token)
	if err != nil {
		return h.errorResponse(c, token, err, msgReadFailed)
	}
	return c.JSON(http.StatusOK, toSeatPayloads(seats))
}

// SaveSeats は公演日の80席分の状態を全置換する
func (h *SeatHandler) SaveSeats(c echo.Context) error {
	token := c.Param("day")

	var req SaveSeatsRequest
	if err := h.binder.BindBody(c, &req.Seats); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResponse{Message: msgInvalidFormat})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResponse{Message: msgInvalidFormat})
	}

	message, err := h.service.SaveSeats(c.Request().Context(), token, toSeats(req.Seats))
	if err != nil {
		return h.errorResponse(c, token, err, msgSaveFailed)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// Summary は公演日の予約数・空席数を返す
func (h *SeatHandler) Summary(c echo.Context) error {
	token := c.Param("day")
	s, err := h.service.Summary(c.Request().Context(), token)
	if err != nil {
		return h.errorResponse(c, token, err, msgReadFailed)
	}
	return c.JSON(http.StatusOK, SummaryResponse{
		Day: s.Day.Token, Label: s.Day.Label,
		Total: s.Total, Reserved: s.Reserved, Free: s.Free,
	})
}

// errorResponse はドメインエラーをHTTPステータスと利用者向けメッセージに変換する
func (h *SeatHandler) errorResponse(c echo.Context, token string, err error, storageMessage string) error {
	switch {
	case errors.Is(err, day.ErrInvalidDay):
		return c.JSON(http.StatusBadRequest, MessageResponse{
			Message: fmt.Sprintf("Jour invalide: %s. Doit être %s.", token, h.service.DescribeDays()),
		})
	case errors.Is(err, seat.ErrInvalidSeatCount):
		return c.JSON(http.StatusBadRequest, MessageResponse{Message: msgInvalidFormat})
	default:
		logger.FromContext(c.Request().Context()).Error("座席処理エラー",
			zap.String("day", token), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, MessageResponse{Message: storageMessage})
	}
}
