package appointment

import "context"

// Repository is the persistence boundary for appointments.
type Repository interface {
	// ListByDoctor returns the doctor's appointments ordered by fecha
	// descending, hora ascending, with the patient name joined in.
	ListByDoctor(ctx context.Context, doctorID int64) ([]*Appointment, error)
	Create(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) (bool, error)
	Delete(ctx context.Context, id, doctorID int64) (bool, error)
}
