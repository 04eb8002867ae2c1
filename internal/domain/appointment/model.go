package appointment

// Appointment is a scheduled visit. Fecha is a calendar day (YYYY-MM-DD)
// and Hora a wall-clock time (HH:MM); both travel as strings end to end.
type Appointment struct {
	ID          int64  `json:"id"`
	PatientID   int64  `json:"paciente_id"`
	DoctorID    int64  `json:"-"`
	PatientName string `json:"paciente_nombre,omitempty"`
	Fecha       string `json:"fecha"`
	Hora        string `json:"hora"`
	Motivo      string `json:"motivo"`
}

// CreateRequest is the POST /api/appointments payload.
type CreateRequest struct {
	PatientID int64  `json:"patient_id"`
	Fecha     string `json:"fecha"`
	Hora      string `json:"hora"`
	Motivo    string `json:"motivo"`
}

// UpdateRequest is the PUT /api/appointments payload.
type UpdateRequest struct {
	ID        int64  `json:"id"`
	PatientID int64  `json:"patient_id"`
	Fecha     string `json:"fecha"`
	Hora      string `json:"hora"`
	Motivo    string `json:"motivo"`
}

// DeleteRequest is the DELETE /api/appointments payload.
type DeleteRequest struct {
	ID int64 `json:"id"`
}
