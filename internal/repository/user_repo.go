package repository

import (
	"context"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"gorm.io/gorm"
)

// UserRepository 用户 Repository 接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uint) (*model.User, error)
	// ListByIDs 批量读取用户，不存在的 ID 直接忽略
	ListByIDs(ctx context.Context, ids []uint) ([]model.User, error)
	// IDsByRole 返回指定角色的启用用户 ID，按 ID 升序
	IDsByRole(ctx context.Context, roles ...string) ([]uint, error)
	// SearchIDsByName 姓名命中任一分词的用户 ID
	SearchIDsByName(ctx context.Context, tokens []string) ([]uint, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户 Repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Get(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users)
	return users, result.Error
}

func (r *userRepository) IDsByRole(ctx context.Context, roles ...string) ([]uint, error) {
	var ids []uint
	if len(roles) == 0 {
		return ids, nil
	}
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("role IN ? AND is_active = ?", roles, true).
		Order("id ASC").
		Pluck("id", &ids)
	return ids, result.Error
}

func (r *userRepository) SearchIDsByName(ctx context.Context, tokens []string) ([]uint, error) {
	var ids []uint
	q := r.db.WithContext(ctx).Model(&model.User{})
	result := anyTokenLike(q, tokens, "search_name").Pluck("id", &ids)
	return ids, result.Error
}
