package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_IDsByRoleAndSearch(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	admin := &model.User{Name: "Admin One", Email: "a@example.com", Role: model.RoleAdmin}
	lect := &model.User{Name: "Dr. Mathurin", Email: "m@example.com", Role: model.RoleLecturer}
	stu := &model.User{Name: "Nok", Email: "n@example.com", Role: model.RoleStudent}
	for _, u := range []*model.User{admin, lect, stu} {
		require.NoError(t, repo.Create(ctx, u))
	}
	// 停用的管理员不参与分配
	inactive := false
	require.NoError(t, repo.Create(ctx, &model.User{Name: "Gone", Email: "g@example.com", Role: model.RoleAdmin, IsActive: &inactive}))

	ids, err := repo.IDsByRole(ctx, model.RoleAdmin, model.RoleLecturer)
	require.NoError(t, err)
	assert.Equal(t, []uint{admin.ID, lect.ID}, ids)

	ids, err = repo.IDsByRole(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = repo.SearchIDsByName(ctx, []string{"math"})
	require.NoError(t, err)
	assert.Equal(t, []uint{lect.ID}, ids)

	// 姓名搜索对非 ASCII 字母同样不区分大小写
	accented := &model.User{Name: "Élodie Straße", Email: "e@example.com", Role: model.RoleLecturer}
	require.NoError(t, repo.Create(ctx, accented))
	for _, q := range []string{"Élodie", "élodie", "ÉLODIE", "STRASSE"} {
		ids, err = repo.SearchIDsByName(ctx, []string{q})
		require.NoError(t, err)
		assert.Equal(t, []uint{accented.ID}, ids, "query %q", q)
	}

	_, err = repo.Get(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}
