package identity

import "context"

// Repository is the persistence boundary for doctors.
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	GetByUsername(ctx context.Context, username string) (*Doctor, error)
	Exists(ctx context.Context, username, email string) (bool, error)
}
