package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const MaxQuizBatch = 200

// QuizAnswer is one submitted answer. Correctness is never taken from the client.
type QuizAnswer struct {
	ModuleOrder   int `json:"module_order"`
	LessonOrder   int `json:"lesson_order"`
	QuestionIndex int `json:"question_index"`
	SelectedIndex int `json:"selected_index"`
}

func (a QuizAnswer) lesson() types.LessonKey {
	return types.LessonKey{ModuleOrder: a.ModuleOrder, LessonOrder: a.LessonOrder}
}

type LessonScore struct {
	ModuleOrder  int `json:"module_order"`
	LessonOrder  int `json:"lesson_order"`
	Correct      int `json:"correct"`
	Total        int `json:"total"`
	ScorePercent int `json:"score_percent"`
}

type LessonQuiz struct {
	LessonScore
	Responses []*types.QuizResponse `json:"responses"`
}

type QuizBatchResult struct {
	Responses []*types.QuizResponse `json:"responses"`
	Lessons   []LessonScore         `json:"lessons"`
}

type QuizService interface {
	Submit(ctx context.Context, courseID uuid.UUID, answer QuizAnswer) (*types.QuizResponse, error)
	SubmitBatch(ctx context.Context, courseID uuid.UUID, answers []QuizAnswer) (*QuizBatchResult, error)
	GetLesson(ctx context.Context, courseID uuid.UUID, key types.LessonKey) (*LessonQuiz, error)
}

type quizService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo repos.CourseRepo
	quizRepo   repos.QuizResponseRepo
}

func NewQuizService(db *gorm.DB, log *logger.Logger, courseRepo repos.CourseRepo, quizRepo repos.QuizResponseRepo) QuizService {
	serviceLog := log.With("service", "QuizService")
	return &quizService{db: db, log: serviceLog, courseRepo: courseRepo, quizRepo: quizRepo}
}

func (qs *quizService) Submit(ctx context.Context, courseID uuid.UUID, answer QuizAnswer) (*types.QuizResponse, error) {
	res, err := qs.SubmitBatch(ctx, courseID, []QuizAnswer{answer})
	if err != nil {
		return nil, err
	}
	return res.Responses[0], nil
}

func (qs *quizService) SubmitBatch(ctx context.Context, courseID uuid.UUID, answers []QuizAnswer) (*QuizBatchResult, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, apierr.Newf(apierr.KindValidation, "at least one answer is required")
	}
	if len(answers) > MaxQuizBatch {
		return nil, apierr.Newf(apierr.KindValidation, "at most %d answers per request", MaxQuizBatch)
	}

	var result *QuizBatchResult
	err = qs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := loadReadable(ctx, qs.courseRepo, tx, courseID)
		if err != nil {
			return err
		}
		// The last answer to a question wins within one batch.
		byKey := make(map[QuizAnswer]int, len(answers))
		rows := make([]*types.QuizResponse, 0, len(answers))
		for _, a := range answers {
			q, err := lookupQuestion(c, a)
			if err != nil {
				return err
			}
			correct := a.SelectedIndex == q.AnswerIndex
			score := 0
			if correct {
				score = 1
			}
			row := &types.QuizResponse{
				UserID:        userID,
				CourseID:      c.ID,
				ModuleOrder:   a.ModuleOrder,
				LessonOrder:   a.LessonOrder,
				QuestionIndex: a.QuestionIndex,
				SelectedIndex: a.SelectedIndex,
				IsCorrect:     correct,
				Score:         score,
			}
			k := a
			k.SelectedIndex = 0
			if i, dup := byKey[k]; dup {
				rows[i] = row
				continue
			}
			byKey[k] = len(rows)
			rows = append(rows, row)
		}
		if err := qs.quizRepo.Upsert(ctx, tx, rows); err != nil {
			return fmt.Errorf("save quiz responses: %w", err)
		}

		lessons := make(map[types.LessonKey]struct{})
		for _, r := range rows {
			lessons[types.LessonKey{ModuleOrder: r.ModuleOrder, LessonOrder: r.LessonOrder}] = struct{}{}
		}
		result = &QuizBatchResult{Responses: rows}
		stored := make(map[QuizAnswer]*types.QuizResponse)
		for key := range lessons {
			saved, err := qs.quizRepo.ListByLesson(ctx, tx, userID, c.ID, key)
			if err != nil {
				return fmt.Errorf("load quiz responses: %w", err)
			}
			for _, r := range saved {
				stored[QuizAnswer{ModuleOrder: r.ModuleOrder, LessonOrder: r.LessonOrder, QuestionIndex: r.QuestionIndex}] = r
			}
			result.Lessons = append(result.Lessons, scoreLesson(c, key, saved))
		}
		// Report the stored rows so ids match what later reads return.
		for i, r := range rows {
			if s, ok := stored[QuizAnswer{ModuleOrder: r.ModuleOrder, LessonOrder: r.LessonOrder, QuestionIndex: r.QuestionIndex}]; ok {
				rows[i] = s
			}
		}
		sort.Slice(result.Lessons, func(i, j int) bool {
			a, b := result.Lessons[i], result.Lessons[j]
			if a.ModuleOrder != b.ModuleOrder {
				return a.ModuleOrder < b.ModuleOrder
			}
			return a.LessonOrder < b.LessonOrder
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (qs *quizService) GetLesson(ctx context.Context, courseID uuid.UUID, key types.LessonKey) (*LessonQuiz, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	c, err := loadReadable(ctx, qs.courseRepo, nil, courseID)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Lesson(key); !ok {
		return nil, apierr.Newf(apierr.KindNotFound, "module %d lesson %d not found", key.ModuleOrder, key.LessonOrder)
	}
	saved, err := qs.quizRepo.ListByLesson(ctx, nil, userID, c.ID, key)
	if err != nil {
		return nil, fmt.Errorf("load quiz responses: %w", err)
	}
	if saved == nil {
		saved = []*types.QuizResponse{}
	}
	return &LessonQuiz{LessonScore: scoreLesson(c, key, saved), Responses: saved}, nil
}

func lookupQuestion(c *types.Course, a QuizAnswer) (*types.QuizQuestion, error) {
	lesson, ok := c.Lesson(a.lesson())
	if !ok {
		return nil, apierr.Newf(apierr.KindValidation, "module %d lesson %d does not exist in this course", a.ModuleOrder, a.LessonOrder)
	}
	if lesson.Content == nil || a.QuestionIndex < 0 || a.QuestionIndex >= len(lesson.Content.Quiz) {
		return nil, apierr.Newf(apierr.KindValidation, "question %d does not exist in module %d lesson %d", a.QuestionIndex, a.ModuleOrder, a.LessonOrder)
	}
	q := lesson.Content.Quiz[a.QuestionIndex]
	if a.SelectedIndex < 0 || a.SelectedIndex >= len(q.Options) {
		return nil, apierr.Newf(apierr.KindValidation, "selected_index out of range")
	}
	return &q, nil
}

func scoreLesson(c *types.Course, key types.LessonKey, saved []*types.QuizResponse) LessonScore {
	s := LessonScore{ModuleOrder: key.ModuleOrder, LessonOrder: key.LessonOrder}
	if l, ok := c.Lesson(key); ok && l.Content != nil {
		s.Total = len(l.Content.Quiz)
	}
	for _, r := range saved {
		if r.IsCorrect && r.QuestionIndex < s.Total {
			s.Correct++
		}
	}
	if s.Total > 0 {
		s.ScorePercent = int(math.Round(100 * float64(s.Correct) / float64(s.Total)))
	}
	return s
}
