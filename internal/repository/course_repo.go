package repository

import (
	"context"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"gorm.io/gorm"
)

// CourseRepository 课程与教学班 Repository 接口
type CourseRepository interface {
	CreateCourse(ctx context.Context, course *model.Course) error
	CreateSection(ctx context.Context, section *model.Section) error
	AddCourseMember(ctx context.Context, member *model.CourseMember) error
	AddSectionMember(ctx context.Context, member *model.SectionMember) error

	GetCourse(ctx context.Context, id uint) (*model.Course, error)
	GetSection(ctx context.Context, id uint) (*model.Section, error)
	CoursesByIDs(ctx context.Context, ids []uint) ([]model.Course, error)
	SectionsByIDs(ctx context.Context, ids []uint) ([]model.Section, error)

	// CourseStaff 课程教师，按 Position、ID 排序
	CourseStaff(ctx context.Context, courseID uint) ([]model.User, error)
	// SectionStaff 教学班教师，按 Position、ID 排序
	SectionStaff(ctx context.Context, sectionID uint) ([]model.User, error)

	// EnrolledSectionIDs 用户以学生身份加入的教学班
	EnrolledSectionIDs(ctx context.Context, userID uint) ([]uint, error)
	// EnrolledCourseIDs 用户以学生身份加入的课程（含通过教学班加入的）
	EnrolledCourseIDs(ctx context.Context, userID uint) ([]uint, error)
	// TaughtSectionIDs 用户任教的教学班（教学班教师或所属课程教师）
	TaughtSectionIDs(ctx context.Context, userID uint) ([]uint, error)

	SearchCourseIDsByName(ctx context.Context, tokens []string) ([]uint, error)
	SearchSectionIDsByName(ctx context.Context, tokens []string) ([]uint, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository 创建课程 Repository
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) CreateCourse(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) CreateSection(ctx context.Context, section *model.Section) error {
	return r.db.WithContext(ctx).Create(section).Error
}

func (r *courseRepository) AddCourseMember(ctx context.Context, member *model.CourseMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *courseRepository) AddSectionMember(ctx context.Context, member *model.SectionMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *courseRepository) GetCourse(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &course, nil
}

func (r *courseRepository) GetSection(ctx context.Context, id uint) (*model.Section, error) {
	var section model.Section
	if err := r.db.WithContext(ctx).First(&section, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &section, nil
}

func (r *courseRepository) CoursesByIDs(ctx context.Context, ids []uint) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Order("code ASC, id ASC").Find(&courses)
	return courses, result.Error
}

func (r *courseRepository) SectionsByIDs(ctx context.Context, ids []uint) ([]model.Section, error) {
	var sections []model.Section
	if len(ids) == 0 {
		return sections, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC, id ASC").Find(&sections)
	return sections, result.Error
}

func (r *courseRepository) CourseStaff(ctx context.Context, courseID uint) ([]model.User, error) {
	var users []model.User
	result := r.db.WithContext(ctx).
		Joins("JOIN course_members ON course_members.user_id = users.id").
		Where("course_members.course_id = ? AND course_members.kind = ?", courseID, model.MemberStaff).
		Order("course_members.position ASC, course_members.id ASC").
		Find(&users)
	return users, result.Error
}

func (r *courseRepository) SectionStaff(ctx context.Context, sectionID uint) ([]model.User, error) {
	var users []model.User
	result := r.db.WithContext(ctx).
		Joins("JOIN section_members ON section_members.user_id = users.id").
		Where("section_members.section_id = ? AND section_members.kind = ?", sectionID, model.MemberStaff).
		Order("section_members.position ASC, section_members.id ASC").
		Find(&users)
	return users, result.Error
}

func (r *courseRepository) EnrolledSectionIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	result := r.db.WithContext(ctx).Model(&model.SectionMember{}).
		Where("user_id = ? AND kind = ?", userID, model.MemberStudent).
		Order("section_id ASC").
		Pluck("section_id", &ids)
	return ids, result.Error
}

func (r *courseRepository) EnrolledCourseIDs(ctx context.Context, userID uint) ([]uint, error) {
	var direct []uint
	if err := r.db.WithContext(ctx).Model(&model.CourseMember{}).
		Where("user_id = ? AND kind = ?", userID, model.MemberStudent).
		Pluck("course_id", &direct).Error; err != nil {
		return nil, err
	}
	var viaSection []uint
	if err := r.db.WithContext(ctx).Model(&model.Section{}).
		Joins("JOIN section_members ON section_members.section_id = sections.id").
		Where("section_members.user_id = ? AND section_members.kind = ?", userID, model.MemberStudent).
		Pluck("sections.course_id", &viaSection).Error; err != nil {
		return nil, err
	}
	return uniqueIDs(append(direct, viaSection...)), nil
}

func (r *courseRepository) TaughtSectionIDs(ctx context.Context, userID uint) ([]uint, error) {
	var direct []uint
	if err := r.db.WithContext(ctx).Model(&model.SectionMember{}).
		Where("user_id = ? AND kind = ?", userID, model.MemberStaff).
		Pluck("section_id", &direct).Error; err != nil {
		return nil, err
	}
	var viaCourse []uint
	if err := r.db.WithContext(ctx).Model(&model.Section{}).
		Joins("JOIN course_members ON course_members.course_id = sections.course_id").
		Where("course_members.user_id = ? AND course_members.kind = ?", userID, model.MemberStaff).
		Pluck("sections.id", &viaCourse).Error; err != nil {
		return nil, err
	}
	return uniqueIDs(append(direct, viaCourse...)), nil
}

func (r *courseRepository) SearchCourseIDsByName(ctx context.Context, tokens []string) ([]uint, error) {
	var ids []uint
	q := r.db.WithContext(ctx).Model(&model.Course{})
	result := anyTokenLike(q, tokens, "search_name").Pluck("id", &ids)
	return ids, result.Error
}

func (r *courseRepository) SearchSectionIDsByName(ctx context.Context, tokens []string) ([]uint, error) {
	var ids []uint
	q := r.db.WithContext(ctx).Model(&model.Section{})
	result := anyTokenLike(q, tokens, "search_name").Pluck("id", &ids)
	return ids, result.Error
}

// uniqueIDs 去重并保持首次出现的顺序
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
