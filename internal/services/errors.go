package services

import (
	"errors"

	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/store"
)

// storeError converts a repository error into the error returned to handlers.
func storeError(err error, entity, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return exceptions.ErrNotFound(err, entity)
	case errors.Is(err, store.ErrUnavailable):
		return exceptions.ErrStoreUnavailable(err)
	default:
		return exceptions.ErrStoreOperation(err, op)
	}
}

func parseID(raw, field string) (identity.ID, error) {
	if raw == "" {
		return identity.ID{}, exceptions.ErrMissingField(field)
	}
	id, err := identity.Parse(raw)
	if err != nil {
		return identity.ID{}, exceptions.ErrInvalidObjectID(err, field)
	}
	return id, nil
}

// parseDoctorIDs validates the doctorId query values. At least one valid id
// is required.
func parseDoctorIDs(raw []string) ([]identity.ID, error) {
	ids, err := identity.ParseMany(raw)
	if err != nil {
		return nil, exceptions.ErrInvalidObjectID(err, "doctorId")
	}
	if len(ids) == 0 {
		return nil, exceptions.ErrInvalidObjectID(identity.ErrInvalid, "doctorId")
	}
	return ids, nil
}

func appointmentStatusNames() []string {
	out := make([]string, len(models.AppointmentStatuses))
	for i, s := range models.AppointmentStatuses {
		out[i] = string(s)
	}
	return out
}

func queueStatusNames() []string {
	out := make([]string, len(models.QueueStatuses))
	for i, s := range models.QueueStatuses {
		out[i] = string(s)
	}
	return out
}
