package timeouts_test

import (
	"testing"
	"time"

	"github.com/dalemusser/lodgehub/internal/app/system/timeouts"
)

func TestDefaults(t *testing.T) {
	timeouts.Reset()
	if got := timeouts.Ping(); got != timeouts.DefaultPing {
		t.Errorf("Ping: got %v, want %v", got, timeouts.DefaultPing)
	}
	if got := timeouts.Batch(); got != timeouts.DefaultBatch {
		t.Errorf("Batch: got %v, want %v", got, timeouts.DefaultBatch)
	}
}

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	timeouts.Reset()
	defer timeouts.Reset()

	timeouts.Configure(timeouts.Config{Batch: 5 * time.Minute})

	if got := timeouts.Batch(); got != 5*time.Minute {
		t.Errorf("Batch: got %v, want 5m", got)
	}
	// Unset values keep their defaults.
	if got := timeouts.Short(); got != timeouts.DefaultShort {
		t.Errorf("Short: got %v, want default %v", got, timeouts.DefaultShort)
	}
}
