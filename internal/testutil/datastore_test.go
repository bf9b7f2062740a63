package testutil

import (
	"strings"
	"testing"
)

func TestNewTestDSN(t *testing.T) {
	dsn := NewTestDSN("TestName")
	if !strings.HasPrefix(dsn, "file:TestName?") {
		t.Errorf("NewTestDSN did not generate expected DSN, got: %s", dsn)
	}
	for _, want := range []string{"mode=memory", "cache=shared"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("NewTestDSN missing %s, got: %s", want, dsn)
		}
	}
}

func TestNewTestDSN_SubtestName(t *testing.T) {
	dsn := NewTestDSN("TestName/sub case")
	if !strings.HasPrefix(dsn, "file:TestName_sub_case?") {
		t.Errorf("NewTestDSN did not sanitize the name, got: %s", dsn)
	}
}
