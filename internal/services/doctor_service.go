package services

import (
	"context"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// DoctorService reads the doctor directory through a small expiring cache;
// doctors change rarely and every login and profile read looks them up.
type DoctorService struct {
	repos Repositories
	cache *expirable.LRU[identity.ID, models.Doctor]
	now   func() time.Time
	log   *zap.Logger
}

func NewDoctorService(repos Repositories, cacheSize int, cacheTTL time.Duration, log *zap.Logger) *DoctorService {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	return &DoctorService{
		repos: repos,
		cache: expirable.NewLRU[identity.ID, models.Doctor](cacheSize, nil, cacheTTL),
		now:   time.Now,
		log:   log,
	}
}

func (s *DoctorService) List(ctx context.Context) ([]models.Doctor, error) {
	doctors, err := s.repos.Doctors.List(ctx)
	if err != nil {
		return nil, storeError(err, "Doctors", "list doctors")
	}
	for _, d := range doctors {
		s.cache.Add(d.ID, d)
	}
	return doctors, nil
}

// FindByIDs returns the doctors that exist among ids, in the order of ids.
// Unknown ids are skipped.
func (s *DoctorService) FindByIDs(ctx context.Context, ids []identity.ID) ([]models.Doctor, error) {
	found := make(map[identity.ID]models.Doctor, len(ids))
	var missing []identity.ID
	for _, id := range ids {
		if d, ok := s.cache.Get(id); ok {
			found[id] = d
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		fetched, err := s.repos.Doctors.FindByIDs(ctx, missing)
		if err != nil {
			return nil, storeError(err, "Doctors", "find doctors")
		}
		for _, d := range fetched {
			s.cache.Add(d.ID, d)
			found[d.ID] = d
		}
	}

	out := make([]models.Doctor, 0, len(found))
	for _, id := range ids {
		if d, ok := found[id]; ok {
			out = append(out, d)
			delete(found, id)
		}
	}
	return out, nil
}

// Upsert creates or replaces a doctor and reports whether it was created.
func (s *DoctorService) Upsert(ctx context.Context, d *models.Doctor) (bool, error) {
	created, err := s.repos.Doctors.Upsert(ctx, d, s.now().UTC())
	if err != nil {
		return false, storeError(err, "Doctor", "upsert doctor")
	}
	s.cache.Remove(d.ID)
	return created, nil
}
