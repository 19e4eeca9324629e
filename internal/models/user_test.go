package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/stretchr/testify/require"
)

func TestUserValidate(t *testing.T) {
	u := &User{Phone: "13800000000", Roles: []Role{RoleTenant}}
	require.NoError(t, u.Validate())

	noKey := &User{Roles: []Role{RoleTenant}}
	require.True(t, errors.Is(noKey.Validate(), autherr.ErrInvalidUser))

	noRoles := &User{Phone: "13800000000"}
	require.True(t, errors.Is(noRoles.Validate(), autherr.ErrInvalidUser))

	fed := &User{ExternalIdentity: &ExternalIdentity{Provider: "wechat", ProviderUserID: "o-1"}, Roles: []Role{RoleTenant}}
	require.NoError(t, fed.Validate())
}

func TestUserJSON_OmitsPasswordHash(t *testing.T) {
	u := &User{ID: "u1", Phone: "13800000000", PasswordHash: "$2a$10$secret", Roles: []Role{RoleTenant}}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	require.NotContains(t, string(b), "secret")
	require.NotContains(t, string(b), "passwordHash")
}

func TestHasAnyRole(t *testing.T) {
	u := &User{Roles: []Role{RoleTenant, RoleLandlord}}
	require.True(t, u.HasAnyRole([]Role{RoleAdmin, RoleLandlord}))
	require.False(t, u.HasAnyRole([]Role{RoleAdmin}))
	require.False(t, u.HasAnyRole(nil))
}

func TestParseRoles(t *testing.T) {
	roles, err := ParseRoles([]string{"Tenant", "admin", "tenant"})
	require.NoError(t, err)
	require.Equal(t, []Role{RoleTenant, RoleAdmin}, roles)

	_, err = ParseRoles([]string{"root"})
	require.True(t, errors.Is(err, autherr.ErrUnknownRole))

	_, err = ParseRoles(nil)
	require.True(t, errors.Is(err, autherr.ErrInvalidUser))
}

func TestClone_IsDeep(t *testing.T) {
	u := &User{Roles: []Role{RoleTenant}, ExternalIdentity: &ExternalIdentity{Provider: "p", ProviderUserID: "x"}}
	c := u.Clone()
	c.Roles[0] = RoleAdmin
	c.ExternalIdentity.ProviderUserID = "y"
	require.Equal(t, RoleTenant, u.Roles[0])
	require.Equal(t, "x", u.ExternalIdentity.ProviderUserID)
}
