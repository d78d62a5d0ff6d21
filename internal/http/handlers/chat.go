package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type ChatHandler struct {
	tutorService services.TutorService
}

func NewChatHandler(tutorService services.TutorService) *ChatHandler {
	return &ChatHandler{tutorService: tutorService}
}

func (ch *ChatHandler) Chat(c *gin.Context) {
	var req services.ChatInput
	if !bindJSON(c, &req) {
		return
	}
	reply, err := ch.tutorService.Chat(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, reply)
}
