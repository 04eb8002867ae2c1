package prescription

import "context"

// Repository is the persistence boundary for prescriptions.
type Repository interface {
	// ListByDoctor returns the doctor's prescriptions, newest first.
	ListByDoctor(ctx context.Context, doctorID int64) ([]*Prescription, error)
	Create(ctx context.Context, p *Prescription) error
	Update(ctx context.Context, p *Prescription) (bool, error)
	Delete(ctx context.Context, id, doctorID int64) (bool, error)
}
