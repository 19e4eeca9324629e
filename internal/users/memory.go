package users

import (
	"context"
	"sync"
	"time"

	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository is an in-memory UserRepository used for tests and for
// running without MongoDB. Uniqueness is enforced under the write lock, so
// concurrent inserts behave like the Mongo unique indexes.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.User
	byPhone    map[string]string
	byExternal map[models.ExternalIdentity]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]*models.User),
		byPhone:    make(map[string]string),
		byExternal: make(map[models.ExternalIdentity]string),
	}
}

func (m *MemoryRepository) Insert(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Phone != "" {
		if _, ok := m.byPhone[u.Phone]; ok {
			return nil, autherr.ErrDuplicatePhone
		}
	}
	if u.ExternalIdentity != nil {
		if _, ok := m.byExternal[*u.ExternalIdentity]; ok {
			return nil, autherr.ErrDuplicateExternalIdentity
		}
	}
	rec := u.Clone()
	rec.ID = primitive.NewObjectID().Hex()
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	m.byID[rec.ID] = rec
	if rec.Phone != "" {
		m.byPhone[rec.Phone] = rec.ID
	}
	if rec.ExternalIdentity != nil {
		m.byExternal[*rec.ExternalIdentity] = rec.ID
	}
	return rec.Clone(), nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[id].Clone(), nil
}

func (m *MemoryRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPhone[phone]
	if !ok {
		return nil, nil
	}
	return m.byID[id].Clone(), nil
}

func (m *MemoryRepository) GetByExternalIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byExternal[models.ExternalIdentity{Provider: provider, ProviderUserID: providerUserID}]
	if !ok {
		return nil, nil
	}
	return m.byID[id].Clone(), nil
}

func (m *MemoryRepository) Patch(ctx context.Context, id string, p Patch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Roles != nil {
		u.Roles = append([]models.Role(nil), p.Roles...)
	}
	u.UpdatedAt = time.Now().UTC()
	return u.Clone(), nil
}

// Len returns the number of stored users.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
