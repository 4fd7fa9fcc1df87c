package service

import (
	"context"
	"fmt"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
)

// IdentityService 将已认证的用户 ID 解析为调用者身份
type IdentityService interface {
	Resolve(ctx context.Context, userID uint) (domain.Caller, error)
}

type identityService struct {
	userRepo   repository.UserRepository
	courseRepo repository.CourseRepository
}

// NewIdentityService 创建身份解析服务
func NewIdentityService(userRepo repository.UserRepository, courseRepo repository.CourseRepository) IdentityService {
	return &identityService{userRepo: userRepo, courseRepo: courseRepo}
}

// Resolve 读取用户角色和选课信息，角色以数据库为准
func (s *identityService) Resolve(ctx context.Context, userID uint) (domain.Caller, error) {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return domain.Caller{}, lookupErr("user", err)
	}
	if !user.Active() {
		return domain.Caller{}, fmt.Errorf("%w: user %d is disabled", ErrForbidden, userID)
	}
	courses, err := s.courseRepo.EnrolledCourseIDs(ctx, userID)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("failed to load enrolled courses: %w", err)
	}
	sections, err := s.courseRepo.EnrolledSectionIDs(ctx, userID)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("failed to load enrolled sections: %w", err)
	}
	return domain.Caller{
		ID:               user.ID,
		Name:             user.Name,
		Role:             user.Role,
		EnrolledCourses:  courses,
		EnrolledSections: sections,
	}, nil
}
