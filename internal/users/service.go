package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/internal/password"
)

// Service encapsulates user-related business logic
type Service struct {
	repo   UserRepository
	hasher password.Hasher
}

func NewService(r UserRepository, h password.Hasher) *Service {
	return &Service{repo: r, hasher: h}
}

// ProfileUpdate carries optional profile fields; empty strings are ignored.
type ProfileUpdate struct {
	DisplayName string
	Avatar      string
}

func (s *Service) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.repo.GetByPhone(ctx, phone)
}

func (s *Service) FindByExternalIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	return s.repo.GetByExternalIdentity(ctx, provider, providerUserID)
}

// CreateWithPassword stores a new phone/password user. The plaintext is
// hashed before it reaches the repository. A phone that is already taken
// yields autherr.ErrDuplicatePhone from the repository insert itself.
func (s *Service) CreateWithPassword(ctx context.Context, phone, plaintext, displayName string) (*models.User, error) {
	phone = strings.TrimSpace(phone)
	if plaintext == "" {
		return nil, autherr.ErrPasswordPolicy
	}
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = defaultDisplayName(phone)
	}
	u := &models.User{
		Phone:              phone,
		PasswordHash:       hash,
		DisplayName:        displayName,
		Roles:              []models.Role{models.RoleTenant},
		VerificationStatus: models.VerificationNotSubmitted,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Insert(ctx, u)
}

// CreateFromExternalIdentity stores a new federated user without a password.
func (s *Service) CreateFromExternalIdentity(ctx context.Context, ext models.ExternalIdentity, displayName, avatar string) (*models.User, error) {
	if displayName == "" {
		displayName = defaultDisplayName(ext.ProviderUserID)
	}
	u := &models.User{
		ExternalIdentity:   &ext,
		DisplayName:        displayName,
		Avatar:             avatar,
		Roles:              []models.Role{models.RoleTenant},
		VerificationStatus: models.VerificationNotSubmitted,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Insert(ctx, u)
}

// UpdateProfileFields overwrites only the fields that are supplied and
// non-empty. With nothing to change it returns the current record.
func (s *Service) UpdateProfileFields(ctx context.Context, id string, upd ProfileUpdate) (*models.User, error) {
	var p Patch
	if upd.DisplayName != "" {
		p.DisplayName = &upd.DisplayName
	}
	if upd.Avatar != "" {
		p.Avatar = &upd.Avatar
	}
	return s.patch(ctx, id, p)
}

// ChangePassword replaces the password; the hash is always recomputed.
func (s *Service) ChangePassword(ctx context.Context, id, plaintext string) (*models.User, error) {
	if plaintext == "" {
		return nil, autherr.ErrPasswordPolicy
	}
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, id, Patch{PasswordHash: &hash})
}

// SetRoles replaces the user's role set. An empty set is rejected.
func (s *Service) SetRoles(ctx context.Context, id string, roles []models.Role) (*models.User, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: roles must not be empty", autherr.ErrInvalidUser)
	}
	return s.patch(ctx, id, Patch{Roles: roles})
}

func (s *Service) patch(ctx context.Context, id string, p Patch) (*models.User, error) {
	var (
		u   *models.User
		err error
	)
	if p.empty() {
		u, err = s.repo.GetByID(ctx, id)
	} else {
		u, err = s.repo.Patch(ctx, id, p)
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, autherr.ErrUserNotFound
	}
	return u, nil
}

// defaultDisplayName builds "user_<last 4 characters of key>".
func defaultDisplayName(key string) string {
	r := []rune(key)
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	return "user_" + string(r)
}
