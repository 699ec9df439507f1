package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}
	if info.BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestApplyVCS(t *testing.T) {
	tests := []struct {
		name     string
		info     Info
		settings []debug.BuildSetting
		want     Info
	}{
		{
			name: "fills defaults",
			info: Info{Commit: "unknown", BuildTime: "unknown"},
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2024-05-01T12:00:00Z"},
				{Key: "vcs.modified", Value: "true"},
			},
			want: Info{Commit: "0123456789abcdef", BuildTime: "2024-05-01T12:00:00Z", Modified: true},
		},
		{
			name: "ldflags win",
			info: Info{Commit: "abc123", BuildTime: "yesterday"},
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2024-05-01T12:00:00Z"},
			},
			want: Info{Commit: "abc123", BuildTime: "yesterday"},
		},
		{
			name: "no vcs stamp",
			info: Info{Commit: "unknown", BuildTime: "unknown"},
			want: Info{Commit: "unknown", BuildTime: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.info
			applyVCS(&got, tt.settings)
			if got != tt.want {
				t.Errorf("applyVCS() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, Version+" (") {
		t.Errorf("String() = %q, want prefix %q", s, Version+" (")
	}
	if !strings.Contains(s, ") built at ") {
		t.Errorf("String() = %q, missing build time", s)
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortCommit(long) = %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("shortCommit(short) = %q", got)
	}
}
