package inconsistency

import (
	"context"
	"errors"
	"time"

	"github.com/annaehugo/freepharma/internal/models"
	"github.com/annaehugo/freepharma/internal/repository"
)

// ErrNotFound is returned for lookups of unknown inconsistencies.
var ErrNotFound = errors.New("inconsistency not found")

// Store is the persistence surface the service needs; the gorm repository
// satisfies it.
type Store interface {
	GetInconsistency(ctx context.Context, id string) (*models.Inconsistency, error)
	ListInconsistencies(ctx context.Context, filter repository.InconsistencyFilter) ([]models.Inconsistency, error)
	SaveInconsistency(ctx context.Context, inc *models.Inconsistency) error
}

// Service implements the operator-facing inconsistency lifecycle: findings
// are created by the checker (or manually), then resolved or reopened by
// explicit action. They are never auto-deleted.
type Service struct {
	repo Store
	now  func() time.Time
}

// New creates an inconsistency service.
func New(repo Store) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns inconsistencies matching the filter.
func (s *Service) List(ctx context.Context, filter repository.InconsistencyFilter) ([]models.Inconsistency, error) {
	return s.repo.ListInconsistencies(ctx, filter)
}

// Get returns one inconsistency or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.Inconsistency, error) {
	inc, err := s.repo.GetInconsistency(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc == nil {
		return nil, ErrNotFound
	}
	return inc, nil
}

// Resolve marks the finding RESOLVED with resolution notes and timestamp.
func (s *Service) Resolve(ctx context.Context, id, notes string) (*models.Inconsistency, error) {
	inc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	inc.Status = models.IncResolved
	inc.ResolvedAt = &now
	inc.ResolutionNotes = notes
	if err := s.repo.SaveInconsistency(ctx, inc); err != nil {
		return nil, err
	}
	return inc, nil
}

// Reopen puts a resolved finding back into circulation, clearing its
// resolution timestamp and keeping the reason in the notes.
func (s *Service) Reopen(ctx context.Context, id, reason string) (*models.Inconsistency, error) {
	inc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	inc.Status = models.IncReopened
	inc.ResolvedAt = nil
	inc.ResolutionNotes = reason
	if err := s.repo.SaveInconsistency(ctx, inc); err != nil {
		return nil, err
	}
	return inc, nil
}
