package reviewer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"k8s.io/klog/v2"
)

// Populations 参与审核人选择的各类人群，教师列表按任教顺序排列
type Populations struct {
	SectionStaff []uint
	CourseStaff  []uint
	Admins       []uint
	Lecturers    []uint
}

// Picker 返回 [0, n) 内的下标，仅用于兜底随机选择
type Picker func(n int) int

// Select 根据模板的目标角色选出审核人。
// 教学班教师优先于课程教师；候选为空时在管理员和教师全集中随机选择。
// 只有候选和兜底人群都为空时返回 false。
func Select(targets []string, pop Populations, pick Picker) (uint, bool) {
	var candidates []uint
	if slices.Contains(targets, model.RoleLecturer) {
		switch {
		case len(pop.SectionStaff) > 0:
			candidates = append(candidates, pop.SectionStaff...)
		case len(pop.CourseStaff) > 0:
			candidates = append(candidates, pop.CourseStaff...)
		}
	}
	if slices.Contains(targets, model.RoleAdmin) {
		candidates = append(candidates, pop.Admins...)
	}
	if len(candidates) > 0 {
		return candidates[0], true
	}

	fallback := make([]uint, 0, len(pop.Admins)+len(pop.Lecturers))
	for _, id := range append(slices.Clone(pop.Admins), pop.Lecturers...) {
		if !slices.Contains(fallback, id) {
			fallback = append(fallback, id)
		}
	}
	if len(fallback) == 0 {
		return 0, false
	}
	if pick == nil {
		pick = rand.IntN
	}
	i := pick(len(fallback))
	if i < 0 || i >= len(fallback) {
		i = 0
	}
	return fallback[i], true
}

type staffSource interface {
	SectionStaff(ctx context.Context, sectionID uint) ([]model.User, error)
	CourseStaff(ctx context.Context, courseID uint) ([]model.User, error)
}

type roleSource interface {
	IDsByRole(ctx context.Context, roles ...string) ([]uint, error)
}

// Router 从存储加载人群后调用 Select
type Router struct {
	staff staffSource
	users roleSource
	pick  Picker
}

// NewRouter 创建审核人路由，pick 为空时使用 math/rand
func NewRouter(staff staffSource, users roleSource, pick Picker) *Router {
	if pick == nil {
		pick = rand.IntN
	}
	return &Router{staff: staff, users: users, pick: pick}
}

// SelectReviewer 为一次提交选出审核人，没有任何可用人选时返回 nil
func (r *Router) SelectReviewer(ctx context.Context, template *model.FormTemplate, courseID, sectionID *uint) (*uint, error) {
	targets := template.Targets()
	var pop Populations
	var err error

	if slices.Contains(targets, model.RoleLecturer) {
		if sectionID != nil {
			if pop.SectionStaff, err = r.staffIDs(r.staff.SectionStaff(ctx, *sectionID)); err != nil {
				return nil, fmt.Errorf("load section staff: %w", err)
			}
		}
		if len(pop.SectionStaff) == 0 && courseID != nil {
			if pop.CourseStaff, err = r.staffIDs(r.staff.CourseStaff(ctx, *courseID)); err != nil {
				return nil, fmt.Errorf("load course staff: %w", err)
			}
		}
	}
	if pop.Admins, err = r.users.IDsByRole(ctx, model.RoleAdmin); err != nil {
		return nil, fmt.Errorf("load admins: %w", err)
	}
	if pop.Lecturers, err = r.users.IDsByRole(ctx, model.RoleLecturer); err != nil {
		return nil, fmt.Errorf("load lecturers: %w", err)
	}

	id, ok := Select(targets, pop, r.pick)
	if !ok {
		klog.Warningf("没有可分配的审核人: templateID=%d", template.ID)
		return nil, nil
	}
	klog.V(6).Infof("审核人分配完成: templateID=%d, reviewerID=%d, targets=%v", template.ID, id, targets)
	return &id, nil
}

func (r *Router) staffIDs(users []model.User, err error) ([]uint, error) {
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
