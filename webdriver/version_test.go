package webdriver

import (
	"testing"

	"github.com/blang/semver"
	"github.com/google/go-cmp/cmp"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    semver.Version
		wantErr bool
	}{
		{in: "120.0.6099.109 (3419140ab665596f21b385ce136419fde0924272-refs/branch-heads/6099@{#1497})", want: semver.Version{Major: 120, Minor: 0, Patch: 6099}},
		{in: "v0.34.0", want: semver.Version{Major: 0, Minor: 34, Patch: 0}},
		{in: "115", want: semver.Version{Major: 115}},
		{in: "3.141", want: semver.Version{Major: 3, Minor: 141}},
		{in: "", wantErr: true},
		{in: "latest", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseVersion(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseVersion(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseVersion(%q) returned error: %v", tc.in, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseVersion(%q) diff (-want/+got):\n%s", tc.in, diff)
		}
	}
}

func TestDriverVersion(t *testing.T) {
	gecko := Capabilities{"moz:geckodriverVersion": "0.34.0"}
	v, err := DriverVersion(gecko)
	if err != nil {
		t.Fatalf("DriverVersion(gecko) returned error: %v", err)
	}
	if v.Minor != 34 {
		t.Errorf("DriverVersion(gecko) = %v, want 0.34.0", v)
	}
	if _, err := DriverVersion(Capabilities{}); err == nil {
		t.Error("DriverVersion(empty) returned nil error")
	}
}
