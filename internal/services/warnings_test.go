package services

import (
	"context"
	"sync"
	"testing"

	"github.com/epeers/mfenrich/internal/models"
)

func TestWarningCollector_BasicUsage(t *testing.T) {
	ctx, wc := NewWarningContext(context.Background())

	AddWarning(ctx, models.WarnUnresolvedFund, "fund %q unresolved", "Mystery Fund")
	AddWarning(ctx, models.WarnFuzzySchemeMatch, "fuzzy matched")

	warnings := wc.GetWarnings()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
	if warnings[0].Code != models.WarnUnresolvedFund {
		t.Errorf("expected code %s, got %s", models.WarnUnresolvedFund, warnings[0].Code)
	}
	if warnings[0].Message != `fund "Mystery Fund" unresolved` {
		t.Errorf("message = %q", warnings[0].Message)
	}
}

func TestWarningCollector_NoCollectorNoPanic(t *testing.T) {
	// AddWarning with a plain context should not panic
	AddWarning(context.Background(), models.WarnUnresolvedFund, "silently dropped")
}

func TestWarningCollector_ConcurrentSafe(t *testing.T) {
	ctx, wc := NewWarningContext(context.Background())

	var wg sync.WaitGroup
	n := 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			AddWarning(ctx, models.WarnRetriedTransient, "concurrent warning")
		}()
	}
	wg.Wait()

	if got := len(wc.GetWarnings()); got != n {
		t.Errorf("expected %d warnings, got %d", n, got)
	}
}
