package course

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CanRead reports whether userID may read the course. uuid.Nil is anonymous.
func (c *Course) CanRead(userID uuid.UUID) bool {
	if c == nil {
		return false
	}
	if userID != uuid.Nil && c.UserID == userID {
		return true
	}
	return c.Visibility == VisibilityPublic || c.Visibility == VisibilityUnlisted
}

func (c *Course) IsOwner(userID uuid.UUID) bool {
	return c != nil && userID != uuid.Nil && c.UserID == userID
}

// ModuleList returns the stored modules; never nil.
func (c *Course) ModuleList() []Module {
	if c == nil {
		return []Module{}
	}
	mods := c.Modules.Data()
	if mods == nil {
		return []Module{}
	}
	return mods
}

func (c *Course) SetModules(mods []Module) {
	if mods == nil {
		mods = []Module{}
	}
	c.Modules = datatypes.NewJSONType(mods)
}

func (c *Course) Lesson(key LessonKey) (*Lesson, bool) {
	mods := c.ModuleList()
	for mi := range mods {
		if mods[mi].Order != key.ModuleOrder {
			continue
		}
		for li := range mods[mi].Lessons {
			if mods[mi].Lessons[li].Order == key.LessonOrder {
				l := mods[mi].Lessons[li]
				return &l, true
			}
		}
	}
	return nil, false
}

func (c *Course) LessonKeys() []LessonKey {
	var keys []LessonKey
	for _, m := range c.ModuleList() {
		for _, l := range m.Lessons {
			keys = append(keys, LessonKey{ModuleOrder: m.Order, LessonOrder: l.Order})
		}
	}
	return keys
}

func (c *Course) TotalLessons() int {
	n := 0
	for _, m := range c.ModuleList() {
		n += len(m.Lessons)
	}
	return n
}
