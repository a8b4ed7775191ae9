package handler

import (
	"context"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/application"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/day"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/seat"
)

// ReservationServiceInterface は座席予約サービスのインターフェース
type ReservationServiceInterface interface {
	Days() []day.Day
	DescribeDays() string
	GetSeats(ctx context.Context, token string) ([]seat.Seat, error)
	SaveSeats(ctx context.Context, token string, seats []seat.Seat) (string, error)
	Summary(ctx context.Context, token string) (*application.Summary, error)
}

// AssistantServiceInterface はAIアシスタントサービスのインターフェース
type AssistantServiceInterface interface {
	Ask(ctx context.Context, userQuery, knowledgeBase string) (string, error)
}
