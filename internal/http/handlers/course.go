package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type CourseHandler struct {
	courseService      services.CourseService
	generationService  services.GenerationService
	translationService services.TranslationService
}

func NewCourseHandler(
	courseService services.CourseService,
	generationService services.GenerationService,
	translationService services.TranslationService,
) *CourseHandler {
	return &CourseHandler{
		courseService:      courseService,
		generationService:  generationService,
		translationService: translationService,
	}
}

func (ch *CourseHandler) ListUserCourses(c *gin.Context) {
	courses, err := ch.courseService.ListMine(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

func (ch *CourseHandler) ListPublicCourses(c *gin.Context) {
	limit, ok := queryInt(c, "limit", services.MaxPublicPageSize)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	courses, err := ch.courseService.ListPublic(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses, "limit": limit, "offset": offset})
}

func (ch *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	course, err := ch.courseService.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

func (ch *CourseHandler) GenerateOutline(c *gin.Context) {
	var req services.OutlineInput
	if !bindJSON(c, &req) {
		return
	}
	course, err := ch.generationService.GenerateOutline(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	status := http.StatusCreated
	if req.CourseID != nil {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"course": course})
}

func (ch *CourseHandler) GenerateLessons(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.LessonBatchInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := ch.generationService.GenerateLessons(c.Request.Context(), id, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

func (ch *CourseHandler) SetVisibility(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Visibility string `json:"visibility"`
	}
	if !bindJSON(c, &req) {
		return
	}
	course, err := ch.courseService.SetVisibility(c.Request.Context(), id, req.Visibility)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

func (ch *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ch.courseService.Delete(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (ch *CourseHandler) TranslateCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Target string `json:"target"`
	}
	if !bindJSON(c, &req) {
		return
	}
	course, err := ch.translationService.TranslateCourse(c.Request.Context(), id, req.Target)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}
