package patient

import "time"

// Note is a free-text annotation attached to a patient.
type Note struct {
	Texto string `json:"texto"`
	Fecha string `json:"fecha"`
}

// Patient is one patient record, always owned by a single doctor.
type Patient struct {
	ID        int64     `json:"id"`
	DoctorID  int64     `json:"-"`
	Nombre    string    `json:"nombre"`
	Email     string    `json:"email"`
	Telefono  string    `json:"telefono"`
	CreatedAt time.Time `json:"created_at"`
	Notas     []Note    `json:"notas"`
}

// CreateRequest is the POST /api/patients payload.
type CreateRequest struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
}

// UpdateRequest is the PUT /api/patients payload. The record id travels in
// the body, matching the client.
type UpdateRequest struct {
	ID       int64  `json:"id"`
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
}

// DeleteRequest is the DELETE /api/patients payload.
type DeleteRequest struct {
	ID int64 `json:"id"`
}

// NoteRequest is the POST /api/patients/:id/notes payload.
type NoteRequest struct {
	Texto string `json:"texto"`
	Fecha string `json:"fecha"`
}
