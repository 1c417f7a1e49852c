package store

import (
	"context"
	"strings"
	"sync"

	"parentdoctor/backend/internal/chat"
)

// MemoryProfileStore is an in-process ProfileStore for local runs and tests.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]chat.ChildProfile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]chat.ChildProfile)}
}

func (s *MemoryProfileStore) GetProfile(_ context.Context, familyID string) (*chat.ChildProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[strings.TrimSpace(familyID)]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

// UpsertProfile applies the same per-field COALESCE as the SQL stores.
func (s *MemoryProfileStore) UpsertProfile(_ context.Context, familyID string, profile chat.ChildProfile) error {
	key := strings.TrimSpace(familyID)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.profiles[key]
	var persisted *chat.ChildProfile
	if ok {
		persisted = &current
	}
	merged, _ := chat.ProfileReconciler{}.Reconcile(profile, persisted)
	s.profiles[key] = merged
	return nil
}

// StaticDoctorDirectory serves a fixed list.
type StaticDoctorDirectory struct {
	doctors []chat.Doctor
}

func NewStaticDoctorDirectory(doctors ...chat.Doctor) *StaticDoctorDirectory {
	copied := make([]chat.Doctor, len(doctors))
	copy(copied, doctors)
	return &StaticDoctorDirectory{doctors: copied}
}

func (d *StaticDoctorDirectory) ListRecommendable(context.Context) ([]chat.Doctor, error) {
	out := make([]chat.Doctor, len(d.doctors))
	copy(out, d.doctors)
	return out, nil
}
