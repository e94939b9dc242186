package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SafeInvoke poses a query and never returns an error: a provider
// failure yields a placeholder answer plus a diagnostic note. The slot
// is the zero-based query position within the run.
func SafeInvoke(ctx context.Context, p Provider, query string, slot int) (answer, note string) {
	answer, err := p.Invoke(ctx, query)
	if err != nil {
		zap.L().Warn("provider call failed",
			zap.String("provider", p.ID()),
			zap.Int("slot", slot),
			zap.Error(err))
		return fmt.Sprintf("[ERROR] %v", err), fmt.Sprintf("Q%d %s: %v", slot+1, p.ID(), err)
	}
	return answer, ""
}

// DryRunAnswer is the deterministic answer substituted for every
// provider call when a campaign runs in dry-run mode.
func DryRunAnswer(query string) string {
	return "[DRY_RUN] " + query
}
