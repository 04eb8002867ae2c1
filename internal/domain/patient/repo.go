package patient

import "context"

// Repository is the persistence boundary for patients and their notes.
type Repository interface {
	ListByDoctor(ctx context.Context, doctorID int64) ([]*Patient, error)
	Create(ctx context.Context, p *Patient) error
	// Update modifies a patient scoped to its owner and reports whether a
	// row matched.
	Update(ctx context.Context, p *Patient) (bool, error)
	// Delete removes a patient and every dependent record in one
	// transaction. Reports whether the patient existed for this doctor.
	Delete(ctx context.Context, id, doctorID int64) (bool, error)
	// OwnedBy reports whether the patient belongs to the doctor.
	OwnedBy(ctx context.Context, id, doctorID int64) (bool, error)
	AddNote(ctx context.Context, patientID int64, texto, fecha string) error
}
