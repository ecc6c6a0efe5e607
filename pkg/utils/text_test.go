package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("çğüşöı", 3); got != "çğü..." {
		t.Errorf("multibyte truncate got %s", got)
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := CollapseSpace("  a\n\tb   c "); got != "a b c" {
		t.Errorf("got %q", got)
	}
}
