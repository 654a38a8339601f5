package debug

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/altarhq/altar/pkg/tenancy"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "tenancy", map[string]bool{"tenancy": true}},
		{"multiple", "tenancy,storage", map[string]bool{"tenancy": true, "storage": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " tenancy , storage ", map[string]bool{"tenancy": true, "storage": true}},
		{"uppercase normalized", "TENANCY,Storage", map[string]bool{"tenancy": true, "storage": true}},
		{"empty segments", "tenancy,,storage", map[string]bool{"tenancy": true, "storage": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	// Save and restore.
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("tenancy,storage")

	if !Enabled("tenancy") {
		t.Error("tenancy should be enabled")
	}
	if !Enabled("storage") {
		t.Error("storage should be enabled")
	}
	if Enabled("auth") {
		t.Error("auth should not be enabled")
	}
	if Enabled("all") {
		t.Error("all should not be enabled (not in categories)")
	}
}

func TestEnabled_All(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("all")

	if !Enabled("tenancy") {
		t.Error("tenancy should be enabled via 'all'")
	}
	if !Enabled("sitehost") {
		t.Error("sitehost should be enabled via 'all'")
	}
	if !Enabled("anything") {
		t.Error("anything should be enabled via 'all'")
	}
}

func TestEnabled_Empty(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	if Enabled("tenancy") {
		t.Error("nothing should be enabled when no categories set")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLog_DisabledCategory(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	// Should not panic or produce output.
	Log("tenancy", "test message", "key", "value")
	Trace(context.Background(), "storage", "trace message", "key", "value")
}

func TestLogContext_TagsTenant(t *testing.T) {
	origCats := categories
	origLogger := slog.Default()
	defer func() {
		categories = origCats
		slog.SetDefault(origLogger)
	}()

	var buf bytes.Buffer
	slog.SetDefault(slog.New(tenancy.NewLogHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	categories = parseCategories("tenancy")

	ctx := tenancy.WithTenant(context.Background(), "tnt_alice")
	LogContext(ctx, "tenancy", "denied", "model", "guest")

	out := buf.String()
	for _, want := range []string{"msg=denied", "debug=tenancy", "model=guest", "tenant_id=tnt_alice"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
