package domain

import (
	"github.com/yungbote/coursegen-backend/internal/domain/billing"
	"github.com/yungbote/coursegen-backend/internal/domain/certificate"
	"github.com/yungbote/coursegen-backend/internal/domain/course"
	"github.com/yungbote/coursegen-backend/internal/domain/progress"
	"github.com/yungbote/coursegen-backend/internal/domain/quiz"
	"github.com/yungbote/coursegen-backend/internal/domain/user"
)

type User = user.User
type UserProvider = user.Provider
type Plan = user.Plan
type PlanLimits = user.Limits

const (
	ProviderLocal  = user.ProviderLocal
	ProviderGoogle = user.ProviderGoogle

	PlanFree    = user.PlanFree
	PlanMonthly = user.PlanMonthly
	PlanYearly  = user.PlanYearly
)

type Course = course.Course
type Module = course.Module
type Lesson = course.Lesson
type LessonContent = course.LessonContent
type LessonKey = course.LessonKey
type MediaItem = course.MediaItem
type MediaKind = course.MediaKind
type QuizQuestion = course.QuizQuestion
type Visibility = course.Visibility

const (
	VisibilityPrivate  = course.VisibilityPrivate
	VisibilityUnlisted = course.VisibilityUnlisted
	VisibilityPublic   = course.VisibilityPublic

	MediaImage = course.MediaImage
	MediaVideo = course.MediaVideo
)

type Progress = progress.Progress
type QuizResponse = quiz.QuizResponse
type Certificate = certificate.Certificate
type PaymentEvent = billing.PaymentEvent

func NormalizeEmail(email string) string { return user.NormalizeEmail(email) }

func ParsePlan(s string) Plan { return user.ParsePlan(s) }
