package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type ProgressHandler struct {
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

func (ph *ProgressHandler) GetProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := ph.progressService.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// SetLesson marks one lesson complete or incomplete.
func (ph *ProgressHandler) SetLesson(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ModuleOrder int   `json:"module_order"`
		LessonOrder int   `json:"lesson_order"`
		Completed   *bool `json:"completed"`
	}
	if !bindJSON(c, &req) {
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	key := types.LessonKey{ModuleOrder: req.ModuleOrder, LessonOrder: req.LessonOrder}
	view, err := ph.progressService.SetLesson(c.Request.Context(), id, key, completed)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// ReplaceProgress overwrites the completed set.
func (ph *ProgressHandler) ReplaceProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		CompletedLessons []types.LessonKey `json:"completed_lessons"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := ph.progressService.Replace(c.Request.Context(), id, req.CompletedLessons)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}
