package envutil

import (
	"testing"
	"time"
)

func TestEnvParsing(t *testing.T) {
	t.Setenv("EU_INT", " 42 ")
	t.Setenv("EU_BAD_INT", "x")
	t.Setenv("EU_BOOL", "on")
	t.Setenv("EU_SECS", "0")
	t.Setenv("EU_LIST", "a, ,b,")
	t.Setenv("EU_FLOAT", "0.25")

	if got := Int("EU_INT", 1); got != 42 {
		t.Fatalf("Int=%d", got)
	}
	if got := Int("EU_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback=%d", got)
	}
	if !Bool("EU_BOOL", false) {
		t.Fatalf("Bool: expected true")
	}
	if got := Seconds("EU_SECS", 5*time.Second); got != 5*time.Second {
		t.Fatalf("Seconds=%s", got)
	}
	if got := List("EU_LIST", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List=%v", got)
	}
	if got := Float("EU_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float=%v", got)
	}
	if got := String("EU_MISSING", "def"); got != "def" {
		t.Fatalf("String=%q", got)
	}
}
