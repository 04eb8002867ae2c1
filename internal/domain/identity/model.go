package identity

import "time"

// Doctor is the authenticated user of the office panel. The panel is
// single-tenant: every doctor sees only records they own.
type Doctor struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Specialization string    `json:"specialization"`
	CreatedAt      time.Time `json:"created_at"`
}

// LoginRequest is the POST /api/login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the POST /api/register payload.
type RegisterRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Nombre       string `json:"nombre"`
	Especialidad string `json:"especialidad"`
}

// UserInfo is the user object returned by GET /api/user and inside the
// login response. The doctors table stores the display name in one
// column, so apellido is always empty.
type UserInfo struct {
	ID           int64  `json:"id"`
	Nombre       string `json:"nombre"`
	Apellido     string `json:"apellido"`
	Especialidad string `json:"especialidad"`
	Email        string `json:"email"`
}
