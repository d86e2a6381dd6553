package ports

import (
	"context"
	"time"

	"github.com/sheetviz/access-api/internal/core/domain"
)

// UserRepository is the user directory. It is the sole writer of persisted
// role and admin request state.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns every user in insertion order.
	List(ctx context.Context) ([]domain.User, error)

	// UpdateAccess overwrites the role/status pair. Last write wins.
	UpdateAccess(ctx context.Context, id string, role domain.Role, status domain.AdminRequestStatus, at time.Time) error

	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
