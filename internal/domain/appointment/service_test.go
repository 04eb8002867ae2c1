package appointment

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/medpanel/medpanel/internal/platform/monitor"
)

type mockRepo struct {
	appointments map[int64]*Appointment
	nextID       int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[int64]*Appointment), nextID: 1}
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID int64) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fecha != out[j].Fecha {
			return out[i].Fecha > out[j].Fecha
		}
		return out[i].Hora < out[j].Hora
	})
	return out, nil
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = m.nextID
	m.nextID++
	m.appointments[a.ID] = a
	return nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) (bool, error) {
	existing, ok := m.appointments[a.ID]
	if !ok || existing.DoctorID != a.DoctorID {
		return false, nil
	}
	m.appointments[a.ID] = a
	return true, nil
}

func (m *mockRepo) Delete(_ context.Context, id, doctorID int64) (bool, error) {
	a, ok := m.appointments[id]
	if !ok || a.DoctorID != doctorID {
		return false, nil
	}
	delete(m.appointments, id)
	return true, nil
}

// mockPatients owns patient ids per doctor.
type mockPatients struct {
	owned map[int64]int64 // patient id -> doctor id
}

func (m *mockPatients) OwnedBy(_ context.Context, id, doctorID int64) (bool, error) {
	return m.owned[id] == doctorID, nil
}

func newTestService(repo *mockRepo) *Service {
	patients := &mockPatients{owned: map[int64]int64{10: 1, 11: 1, 20: 2}}
	return NewService(repo, patients, monitor.Nop())
}

func TestCreateAppointment(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), 1, CreateRequest{
		PatientID: 10, Fecha: "2026-09-15", Hora: "10:30", Motivo: "Control",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == 0 || a.DoctorID != 1 {
		t.Errorf("appointment = %+v", a)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	svc := newTestService(newMockRepo())
	cases := []struct {
		name string
		req  CreateRequest
		msg  string
	}{
		{"missing fields", CreateRequest{PatientID: 10}, "Todos los campos son obligatorios"},
		{"bad patient id", CreateRequest{Fecha: "2026-09-15", Hora: "10:30", Motivo: "x"}, "Todos los campos son obligatorios"},
		{"bad date", CreateRequest{PatientID: 10, Fecha: "15/09/2026", Hora: "10:30", Motivo: "x"}, "Formato de fecha inválido (YYYY-MM-DD)"},
		{"month out of range", CreateRequest{PatientID: 10, Fecha: "2025-13-01", Hora: "10:30", Motivo: "x"}, "Formato de fecha inválido (YYYY-MM-DD)"},
		{"day out of range", CreateRequest{PatientID: 10, Fecha: "2026-02-30", Hora: "10:30", Motivo: "x"}, "Formato de fecha inválido (YYYY-MM-DD)"},
		{"bad time", CreateRequest{PatientID: 10, Fecha: "2026-09-15", Hora: "10.30", Motivo: "x"}, "Formato de hora inválido (HH:MM)"},
		{"hour out of range", CreateRequest{PatientID: 10, Fecha: "2026-09-15", Hora: "25:00", Motivo: "x"}, "Formato de hora inválido (HH:MM)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, tc.req)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Msg != tc.msg {
				t.Errorf("got %v, want %q", err, tc.msg)
			}
		})
	}
}

func TestCreateAppointmentForeignPatient(t *testing.T) {
	svc := newTestService(newMockRepo())

	// Patient 20 belongs to doctor 2.
	_, err := svc.Create(context.Background(), 1, CreateRequest{
		PatientID: 20, Fecha: "2026-09-15", Hora: "10:30", Motivo: "Control",
	})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("got %v, want ErrPatientNotFound", err)
	}
}

func TestListOrdering(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	seed := []CreateRequest{
		{PatientID: 10, Fecha: "2026-09-15", Hora: "14:00", Motivo: "a"},
		{PatientID: 10, Fecha: "2026-09-16", Hora: "09:00", Motivo: "b"},
		{PatientID: 10, Fecha: "2026-09-15", Hora: "08:00", Motivo: "c"},
	}
	for _, req := range seed {
		if _, err := svc.Create(context.Background(), 1, req); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	list, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, len(list))
	for i, a := range list {
		got[i] = a.Fecha + " " + a.Hora
	}
	want := []string{"2026-09-16 09:00", "2026-09-15 08:00", "2026-09-15 14:00"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestUpdateAppointment(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	a, _ := svc.Create(context.Background(), 1, CreateRequest{
		PatientID: 10, Fecha: "2026-09-15", Hora: "10:30", Motivo: "Control",
	})

	err := svc.Update(context.Background(), 1, UpdateRequest{
		ID: a.ID, PatientID: 11, Fecha: "2026-09-16", Hora: "11:00", Motivo: "Seguimiento",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.appointments[a.ID].Hora != "11:00" {
		t.Errorf("hora = %q", repo.appointments[a.ID].Hora)
	}
}

func TestUpdateForeignAppointment(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	a, _ := svc.Create(context.Background(), 1, CreateRequest{
		PatientID: 10, Fecha: "2026-09-15", Hora: "10:30", Motivo: "Control",
	})

	// Doctor 2 owns patient 20 but not the appointment.
	err := svc.Update(context.Background(), 2, UpdateRequest{
		ID: a.ID, PatientID: 20, Fecha: "2026-09-16", Hora: "11:00", Motivo: "x",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if repo.appointments[a.ID].Motivo != "Control" {
		t.Error("foreign update must not touch the record")
	}
}

func TestUpdateToForeignPatient(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	a, _ := svc.Create(context.Background(), 1, CreateRequest{
		PatientID: 10, Fecha: "2026-09-15", Hora: "10:30", Motivo: "Control",
	})

	// Doctor 1 cannot move the appointment onto doctor 2's patient.
	err := svc.Update(context.Background(), 1, UpdateRequest{
		ID: a.ID, PatientID: 20, Fecha: "2026-09-16", Hora: "11:00", Motivo: "x",
	})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("got %v, want ErrPatientNotFound", err)
	}
}

func TestDeleteAppointment(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	a, _ := svc.Create(context.Background(), 1, CreateRequest{
		PatientID: 10, Fecha: "2026-09-15", Hora: "10:30", Motivo: "Control",
	})

	if err := svc.Delete(context.Background(), 1, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), 1, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestDeleteValidation(t *testing.T) {
	svc := newTestService(newMockRepo())
	err := svc.Delete(context.Background(), 1, 0)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Msg != "ID de cita inválido" {
		t.Errorf("got %v", err)
	}
}
