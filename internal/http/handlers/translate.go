package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type TranslateHandler struct {
	translationService services.TranslationService
}

func NewTranslateHandler(translationService services.TranslationService) *TranslateHandler {
	return &TranslateHandler{translationService: translationService}
}

func (th *TranslateHandler) Translate(c *gin.Context) {
	var req struct {
		Text   string   `json:"text"`
		Texts  []string `json:"texts"`
		Target string   `json:"target"`
		Source string   `json:"source"`
	}
	if !bindJSON(c, &req) {
		return
	}
	texts := req.Texts
	if req.Text != "" {
		texts = append([]string{req.Text}, texts...)
	}
	res, err := th.translationService.Translate(c.Request.Context(), services.TranslateInput{
		Texts:  texts,
		Target: req.Target,
		Source: req.Source,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"translations": res})
}
