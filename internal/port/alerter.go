package port

import (
	"context"

	"github.com/rl1809/inventory/internal/core/domain"
)

// CompensationAlerter tells operators that inventory must be fixed by hand.
type CompensationAlerter interface {
	CompensationFailed(ctx context.Context, state domain.RollbackState, cause error) error
}
