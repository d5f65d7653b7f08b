package version

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestParseGDBVersion(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"upstream", "GNU gdb (GDB) 13.2\nCopyright (C) 2023 Free Software Foundation, Inc.\n", "13.2.0"},
		{"ubuntu", "GNU gdb (Ubuntu 12.1-0ubuntu1~22.04) 12.1\n", "12.1.0"},
		{"fedora", "GNU gdb (GDB) Fedora Linux 14.2-1.fc40\n", "14.2.0"},
		{"three part", "GNU gdb (GDB) 8.3.1\n", "8.3.1"},
		{"arm toolchain", "GNU gdb (Arm GNU Toolchain 13.2.rel1 (Build arm-13.7)) 13.2.90.20231008-git\n", "13.2.90"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseGDBVersion(tt.output)
			if err != nil {
				t.Fatalf("ParseGDBVersion failed: %v", err)
			}
			if v.String() != tt.want {
				t.Errorf("got %s, want %s", v, tt.want)
			}
		})
	}
}

func TestParseGDBVersion_NoVersion(t *testing.T) {
	if _, err := ParseGDBVersion("gdb: command not found"); err == nil {
		t.Error("expected error")
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"9.1", true},
		{"12.1", true},
		{"9.0", false},
		{"8.3.1", false},
	}
	for _, tt := range tests {
		if got := Satisfies(semver.MustParse(tt.version)); got != tt.want {
			t.Errorf("Satisfies(%s) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestCheckGDB_MissingBinary(t *testing.T) {
	_, err := CheckGDB(context.Background(), filepath.Join(t.TempDir(), "no-such-gdb"))
	if err == nil {
		t.Error("expected error for a missing binary")
	}
}
