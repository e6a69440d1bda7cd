package am

import (
	"os"
	"testing"
)

// chdir changes the working directory for the duration of the test,
// matching testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("chdir: restoring working directory: %v", err)
		}
	})
}
