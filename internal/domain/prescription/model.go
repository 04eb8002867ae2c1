package prescription

import "time"

// Prescription is a medication order for one patient. Duracion is the
// treatment length in days.
type Prescription struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"paciente_id"`
	DoctorID    int64     `json:"-"`
	PatientName string    `json:"paciente_nombre,omitempty"`
	Medicamento string    `json:"medicamento"`
	Dosis       string    `json:"dosis"`
	Frecuencia  string    `json:"frecuencia"`
	Duracion    int       `json:"duracion"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRequest is the POST /api/prescriptions payload.
type CreateRequest struct {
	PatientID   int64  `json:"patient_id"`
	Medicamento string `json:"medicamento"`
	Dosis       string `json:"dosis"`
	Frecuencia  string `json:"frecuencia"`
	Duracion    int    `json:"duracion"`
}

// UpdateRequest is the PUT /api/prescriptions payload.
type UpdateRequest struct {
	ID          int64  `json:"id"`
	PatientID   int64  `json:"patient_id"`
	Medicamento string `json:"medicamento"`
	Dosis       string `json:"dosis"`
	Frecuencia  string `json:"frecuencia"`
	Duracion    int    `json:"duracion"`
}

// DeleteRequest is the DELETE /api/prescriptions payload.
type DeleteRequest struct {
	ID int64 `json:"id"`
}
