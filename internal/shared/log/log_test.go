package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestModuleTag(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWriter(&buf, "client")
	Module(&parent, "session").Info().Msg("session authenticated")

	out := buf.String()
	if !strings.Contains(out, "SESSION") || !strings.Contains(out, "session authenticated") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestModuleWithoutParent(t *testing.T) {
	if l := Module(nil, "api"); l.GetLevel() != zerolog.Disabled {
		t.Fatalf("expected disabled logger, got %s", l.GetLevel())
	}
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	if err := SetLevel("WARN"); err != nil {
		t.Fatalf("SetLevel err: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn, got %s", zerolog.GlobalLevel())
	}
	if err := SetLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
