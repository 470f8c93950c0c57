package member

import (
	"context"
	"fmt"
)

// Ledger moves a member's cumulative score. Implementations must apply the
// change and the zero floor in a single atomic step.
type Ledger interface {
	// AddScore sets total_score = max(total_score + delta, 0) and returns the
	// new total. found is false when the member does not exist.
	AddScore(ctx context.Context, memberID string, delta int) (newTotal int, found bool, err error)
}

// Movement describes one ledger change.
type Movement struct {
	MemberID string
	Delta    int
	NewTotal int
}

// ApplyDelta moves memberID's total by delta. An empty member, a zero delta
// or a member that no longer exists is a no-op and returns ok=false.
func ApplyDelta(ctx context.Context, l Ledger, memberID string, delta int) (Movement, bool, error) {
	if memberID == "" || delta == 0 {
		return Movement{}, false, nil
	}

	total, found, err := l.AddScore(ctx, memberID, delta)
	if err != nil {
		return Movement{}, false, fmt.Errorf("apply ledger delta %+d to %s: %w", delta, memberID, err)
	}
	if !found {
		return Movement{}, false, nil
	}

	return Movement{MemberID: memberID, Delta: delta, NewTotal: total}, true, nil
}
