package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{
			name: "dev build",
			info: Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown", GoVersion: "go1.24.0", Platform: "windows/amd64"},
			want: "screenrec dev go1.24.0 windows/amd64",
		},
		{
			name: "release build",
			info: Info{Version: "1.2.0", GitCommit: "abcdef0123", BuildDate: "2025-01-27", GoVersion: "go1.24.0", Platform: "darwin/arm64"},
			want: "screenrec 1.2.0 (abcdef0) built 2025-01-27 go1.24.0 darwin/arm64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if !strings.HasPrefix(tt.info.String(), "screenrec ") {
				t.Error("missing program name")
			}
		})
	}
}
