package user

type Plan string

const (
	PlanFree    Plan = "free"
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// MaxLessonsPerModule applies to every plan.
const MaxLessonsPerModule = 5

// Limits are write-time quotas. Zero means unlimited.
type Limits struct {
	MaxCourses int `json:"max_courses"`
	MaxModules int `json:"max_modules"`
	MaxLessons int `json:"max_lessons_per_module"`
}

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanMonthly, PlanYearly:
		return true
	}
	return false
}

func (p Plan) Paid() bool {
	return p == PlanMonthly || p == PlanYearly
}

func (p Plan) Limits() Limits {
	if p.Paid() {
		return Limits{MaxCourses: 0, MaxModules: 8, MaxLessons: MaxLessonsPerModule}
	}
	return Limits{MaxCourses: 1, MaxModules: 2, MaxLessons: MaxLessonsPerModule}
}

// ParsePlan falls back to free for unknown values.
func ParsePlan(s string) Plan {
	p := Plan(s)
	if p.Valid() {
		return p
	}
	return PlanFree
}
