package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hammamikhairi/kidzstage/internal/logger"
)

func TestCLINotifierPrints(t *testing.T) {
	var lines []string
	n := NewCLINotifier(logger.New(logger.LevelOff, nil), func(format string, a ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, a...))
	})

	n.Notify(context.Background(), "I'm listening!")
	n.NotifyUrgent(context.Background(), "Microphone missing")

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "I'm listening!") {
		t.Errorf("notice line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "! Microphone missing") {
		t.Errorf("urgent line = %q", lines[1])
	}
}
