package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs-lzh/eventpro/internal/model"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", model.RoleClient)

	got, err := f.users.GetByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	got, err = f.users.GetByEmail("ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = f.users.GetByID(999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	exists, err := f.users.ExistsByEmail("alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.users.ExistsByEmail("bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepo_UniqueEmail(t *testing.T) {
	f := newFixture(t)
	f.user("alice", model.RoleClient)

	dup := &model.User{Email: "alice@example.com", Name: "Other", HashedPassword: "x", Role: model.RoleClient, RegisteredAt: baseTime}
	assert.Error(t, f.users.Create(dup))
}

func TestUserRepo_ListsAndCounts(t *testing.T) {
	f := newFixture(t)
	f.user("alice", model.RoleClient)
	bob := f.user("bob", model.RoleClient)
	f.user("olga", model.RoleOrganizer)
	f.user("root", model.RoleAdmin)

	bob.Active = false
	require.NoError(t, f.users.Save(bob))

	clients, err := f.users.ListByRole(model.RoleClient)
	require.NoError(t, err)
	assert.Len(t, clients, 2)

	active, err := f.users.ListActiveByRole(model.RoleClient)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].Name)

	found, err := f.users.Search("OLG")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, model.RoleOrganizer, found[0].Role)

	counts, err := f.users.CountByRole()
	require.NoError(t, err)
	assert.Equal(t, map[model.UserRole]int64{
		model.RoleClient:    2,
		model.RoleOrganizer: 1,
		model.RoleAdmin:     1,
	}, counts)

	n, err := f.users.CountActive()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUserRepo_UpdatePassword(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", model.RoleClient)

	require.NoError(t, f.users.UpdatePassword(alice.ID, "$2a$10$other"))

	got, err := f.users.GetByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$other", got.HashedPassword)
}
