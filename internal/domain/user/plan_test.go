package user

import "testing"

func TestPlanLimits(t *testing.T) {
	if l := PlanFree.Limits(); l.MaxCourses != 1 || l.MaxModules != 2 || l.MaxLessons != 5 {
		t.Fatalf("free limits: %+v", l)
	}
	for _, p := range []Plan{PlanMonthly, PlanYearly} {
		if l := p.Limits(); l.MaxCourses != 0 || l.MaxModules != 8 {
			t.Fatalf("%s limits: %+v", p, l)
		}
	}
	if ParsePlan("enterprise") != PlanFree {
		t.Fatalf("unknown plans fall back to free")
	}
}

func TestDisplayName(t *testing.T) {
	u := &User{Email: "ada@example.com"}
	if u.DisplayName() != "ada" {
		t.Fatalf("DisplayName=%q", u.DisplayName())
	}
	u.FirstName, u.LastName = "Ada", "Lovelace"
	if u.DisplayName() != "Ada Lovelace" {
		t.Fatalf("DisplayName=%q", u.DisplayName())
	}
}
