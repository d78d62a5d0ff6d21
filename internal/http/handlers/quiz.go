package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type QuizHandler struct {
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

func (qh *QuizHandler) GetLessonQuiz(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	moduleOrder, ok := queryInt(c, "module_order", 0)
	if !ok {
		return
	}
	lessonOrder, ok := queryInt(c, "lesson_order", 0)
	if !ok {
		return
	}
	if moduleOrder < 1 || lessonOrder < 1 {
		response.RespondErr(c, apierr.Newf(apierr.KindValidation, "module_order and lesson_order are required"))
		return
	}
	res, err := qh.quizService.GetLesson(c.Request.Context(), id, types.LessonKey{ModuleOrder: moduleOrder, LessonOrder: lessonOrder})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

// SubmitAnswer stores one answer. Any is_correct sent by the client is ignored.
func (qh *QuizHandler) SubmitAnswer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.QuizAnswer
	if !bindJSON(c, &req) {
		return
	}
	res, err := qh.quizService.Submit(c.Request.Context(), id, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"response": res})
}

func (qh *QuizHandler) SubmitBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Answers []services.QuizAnswer `json:"answers"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := qh.quizService.SubmitBatch(c.Request.Context(), id, req.Answers)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
