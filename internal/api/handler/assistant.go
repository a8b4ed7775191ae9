package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/application"
)

const (
	msgAssistantMissingFields = "Requête invalide: userQuery et knowledgeBase sont requis."
	msgAssistantNotConfigured = "Assistant non configuré sur le serveur."
	msgAssistantRateLimited   = "Trop de requêtes, veuillez réessayer dans un instant."
	msgAssistantFailed        = "Erreur lors de la communication avec l'assistant."
)

type AssistantHandler struct {
	service AssistantServiceInterface
}

func NewAssistantHandler(s AssistantServiceInterface) *AssistantHandler {
	return &AssistantHandler{service: s}
}

type ChatRequest struct {
	UserQuery     string `json:"userQuery" validate:"required"`
	KnowledgeBase string `json:"knowledgeBase" validate:"required"`
}

type ChatResponse struct {
	Text string `json:"text"`
}

// Chat は知識ベースを前提にした質問をアシスタントへ中継する
func (h *AssistantHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResponse{Message: msgAssistantMissingFields})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResponse{Message: msgAssistantMissingFields})
	}

	text, err := h.service.Ask(c.Request().Context(), req.UserQuery, req.KnowledgeBase)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrAssistantNotConfigured):
			return c.JSON(http.StatusInternalServerError, MessageResponse{Message: msgAssistantNotConfigured})
		case errors.Is(err, application.ErrAssistantRateLimited):
			return c.JSON(http.StatusTooManyRequests, MessageResponse{Message: msgAssistantRateLimited})
		default:
			return c.JSON(http.StatusInternalServerError, MessageResponse{Message: msgAssistantFailed})
		}
	}
	return c.JSON(http.StatusOK, ChatResponse{Text: text})
}
