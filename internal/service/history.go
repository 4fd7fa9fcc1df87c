package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"github.com/Thanaruk598-0/CPmail/internal/service/authz"
	"github.com/Thanaruk598-0/CPmail/internal/service/statemachine"
)

// DefaultHistoryPageSize 历史查询默认每页条数
const DefaultHistoryPageSize = 10

// FilterAll 状态或分类筛选的“全部”取值
const FilterAll = "all"

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize 按字母和数字连续段切分搜索词，统一做大小写折叠
func Tokenize(q string) []string {
	matches := tokenPattern.FindAllString(model.FoldText(q), -1)
	if len(matches) == 0 {
		return nil
	}
	return matches
}

// HistoryScope 历史查询的视角
type HistoryScope string

const (
	ScopeSubmitter HistoryScope = "submitter"
	ScopeReviewer  HistoryScope = "reviewer"
)

// HistoryFilter 历史查询条件，日期为 YYYY-MM-DD
type HistoryFilter struct {
	Q        string `json:"q" form:"q"`
	Status   string `json:"status" form:"status"`
	Category string `json:"category" form:"category"`
	From     string `json:"from" form:"from"`
	To       string `json:"to" form:"to"`
	Page     int    `json:"page" form:"page"`
}

// StatusTotals 各状态数量，不受筛选条件影响
type StatusTotals struct {
	All       int64 `json:"all"`
	Pending   int64 `json:"pending"`
	Approved  int64 `json:"approved"`
	Rejected  int64 `json:"rejected"`
	Cancelled int64 `json:"cancelled"`
}

// Pagination 分页信息，页码从 1 开始
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// HistoryRow 历史列表中的一行
type HistoryRow struct {
	ID            uint          `json:"id"`
	TemplateID    uint          `json:"template_id"`
	TemplateName  string        `json:"template_name"`
	Category      string        `json:"category"`
	Status        string        `json:"status"`
	Submitter     PersonDTO     `json:"submitter"`
	Reviewer      *PersonDTO    `json:"reviewer,omitempty"`
	Course        *CourseOption `json:"course,omitempty"`
	Section       *SectionDTO   `json:"section,omitempty"`
	Reason        string        `json:"reason"`
	ReviewComment string        `json:"review_comment,omitempty"`
	SubmittedAt   time.Time     `json:"submitted_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// HistoryResult 历史查询结果
type HistoryResult struct {
	Totals        StatusTotals  `json:"totals"`
	Rows          []HistoryRow  `json:"rows"`
	FilteredTotal int64         `json:"filtered_total"`
	Pagination    Pagination    `json:"pagination"`
	Filters       HistoryFilter `json:"filters"`
}

// HistoryService 历史查询服务接口
type HistoryService interface {
	Query(ctx context.Context, rc domain.RequestContext, scope HistoryScope, filter HistoryFilter) (*HistoryResult, error)
}

type historyService struct {
	formRepo     repository.FormRepository
	templateRepo repository.TemplateRepository
	userRepo     repository.UserRepository
	courseRepo   repository.CourseRepository
	pageSize     int
}

// NewHistoryService 创建历史查询服务，pageSize 非正数时使用默认值
func NewHistoryService(formRepo repository.FormRepository, templateRepo repository.TemplateRepository, userRepo repository.UserRepository, courseRepo repository.CourseRepository, pageSize int) HistoryService {
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	return &historyService{
		formRepo:     formRepo,
		templateRepo: templateRepo,
		userRepo:     userRepo,
		courseRepo:   courseRepo,
		pageSize:     pageSize,
	}
}

// Query 统计与筛选分开计算：分类或文本没有命中时仍返回完整的状态统计
func (s *historyService) Query(ctx context.Context, rc domain.RequestContext, scope HistoryScope, filter HistoryFilter) (*HistoryResult, error) {
	filter = normalizeFilter(filter)
	formScope, err := s.scopeFor(ctx, rc, scope)
	if err != nil {
		return nil, err
	}

	criteria := repository.FormCriteria{Scope: formScope}
	if filter.Status != FilterAll {
		if !statemachine.IsValid(filter.Status) {
			return nil, validationf("unknown status %q", filter.Status)
		}
		criteria.Status = filter.Status
	}
	if filter.Category != FilterAll && !model.IsValidCategory(filter.Category) {
		return nil, validationf("unknown category %q", filter.Category)
	}
	if filter.From != "" {
		day, err := rc.ParseDay(filter.From)
		if err != nil {
			return nil, validationf("invalid from date %q", filter.From)
		}
		from := rc.StartOfDay(day)
		criteria.CreatedFrom = &from
	}
	if filter.To != "" {
		day, err := rc.ParseDay(filter.To)
		if err != nil {
			return nil, validationf("invalid to date %q", filter.To)
		}
		// 截止日期比较的是最后更新时间
		to := rc.EndOfDay(day)
		criteria.UpdatedTo = &to
	}

	counts, err := s.formRepo.CountByStatus(ctx, formScope)
	if err != nil {
		return nil, fmt.Errorf("failed to count forms: %w", err)
	}
	result := &HistoryResult{
		Totals:     toTotals(counts),
		Rows:       []HistoryRow{},
		Pagination: Pagination{Page: filter.Page, PageSize: s.pageSize, TotalPages: 1},
		Filters:    filter,
	}

	if filter.Category != FilterAll {
		ids, err := s.templateRepo.IDsByCategory(ctx, filter.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve category: %w", err)
		}
		if len(ids) == 0 {
			return result, nil
		}
		criteria.TemplateIDs = ids
	}
	if tokens := Tokenize(filter.Q); len(tokens) > 0 {
		match, err := s.matchText(ctx, scope, tokens)
		if err != nil {
			return nil, err
		}
		if match.Empty() {
			return result, nil
		}
		criteria.Text = match
	}

	criteria.Offset = (filter.Page - 1) * s.pageSize
	criteria.Limit = s.pageSize
	forms, total, err := s.formRepo.Search(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search forms: %w", err)
	}
	result.FilteredTotal = total
	result.Pagination.TotalPages = totalPages(total, s.pageSize)
	if err := s.attachAssignedReviewers(ctx, forms); err != nil {
		return nil, err
	}
	for i := range forms {
		result.Rows = append(result.Rows, toHistoryRow(&forms[i]))
	}
	return result, nil
}

// scopeFor 提交人只看本人；教师看指派给自己或任教班级的表单；管理员看全部
func (s *historyService) scopeFor(ctx context.Context, rc domain.RequestContext, scope HistoryScope) (repository.FormScope, error) {
	callerID := rc.Caller.ID
	switch scope {
	case ScopeSubmitter:
		if callerID == 0 {
			return repository.FormScope{}, fmt.Errorf("%w: anonymous caller", ErrForbidden)
		}
		return repository.FormScope{SubmitterID: &callerID}, nil
	case ScopeReviewer:
		if err := authorize(authz.Authorize(rc.Caller, authz.ActionReviewQueue, authz.Resource{})); err != nil {
			return repository.FormScope{}, err
		}
		if rc.Caller.Role == model.RoleAdmin {
			return repository.FormScope{}, nil
		}
		sections, err := s.courseRepo.TaughtSectionIDs(ctx, callerID)
		if err != nil {
			return repository.FormScope{}, fmt.Errorf("failed to load taught sections: %w", err)
		}
		return repository.FormScope{ReviewerID: &callerID, SectionIDs: sections}, nil
	}
	return repository.FormScope{}, validationf("unknown history scope %q", scope)
}

// matchText 解析各关联实体的命中 ID；提交人姓名只在审核视角下参与搜索
func (s *historyService) matchText(ctx context.Context, scope HistoryScope, tokens []string) (*repository.TextMatch, error) {
	var match repository.TextMatch
	var err error
	if match.TemplateIDs, err = s.templateRepo.SearchIDsByTitle(ctx, tokens); err != nil {
		return nil, fmt.Errorf("failed to search templates: %w", err)
	}
	if match.ReviewerIDs, err = s.userRepo.SearchIDsByName(ctx, tokens); err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	if scope == ScopeReviewer {
		match.SubmitterIDs = match.ReviewerIDs
	}
	if match.CourseIDs, err = s.courseRepo.SearchCourseIDsByName(ctx, tokens); err != nil {
		return nil, fmt.Errorf("failed to search courses: %w", err)
	}
	if match.SectionIDs, err = s.courseRepo.SearchSectionIDsByName(ctx, tokens); err != nil {
		return nil, fmt.Errorf("failed to search sections: %w", err)
	}
	return &match, nil
}

// attachAssignedReviewers reviewer_id 为空的旧记录按旧审核人列表补齐审核人
func (s *historyService) attachAssignedReviewers(ctx context.Context, forms []model.Form) error {
	var ids []uint
	for i := range forms {
		if forms[i].Reviewer != nil {
			continue
		}
		if id := forms[i].AssignedReviewerID(); id != nil && !slices.Contains(ids, *id) {
			ids = append(ids, *id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load reviewers: %w", err)
	}
	byID := make(map[uint]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range forms {
		if forms[i].Reviewer != nil {
			continue
		}
		if id := forms[i].AssignedReviewerID(); id != nil {
			forms[i].Reviewer = byID[*id]
		}
	}
	return nil
}

func normalizeFilter(f HistoryFilter) HistoryFilter {
	f.Q = strings.TrimSpace(f.Q)
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	if f.Status == "" {
		f.Status = FilterAll
	}
	f.Category = strings.TrimSpace(f.Category)
	if f.Category == "" || strings.EqualFold(f.Category, FilterAll) {
		f.Category = FilterAll
	}
	f.From = strings.TrimSpace(f.From)
	f.To = strings.TrimSpace(f.To)
	if f.Page < 1 {
		f.Page = 1
	}
	return f
}

func totalPages(total int64, pageSize int) int {
	pages := int(math.Ceil(float64(total) / float64(pageSize)))
	return max(pages, 1)
}

func toTotals(counts map[string]int64) StatusTotals {
	t := StatusTotals{
		Pending:   counts[model.FormStatusPending],
		Approved:  counts[model.FormStatusApproved],
		Rejected:  counts[model.FormStatusRejected],
		Cancelled: counts[model.FormStatusCancelled],
	}
	for _, n := range counts {
		t.All += n
	}
	return t
}

func toHistoryRow(f *model.Form) HistoryRow {
	row := HistoryRow{
		ID:            f.ID,
		TemplateID:    f.TemplateID,
		TemplateName:  f.Template.DisplayName(),
		Status:        f.Status,
		Submitter:     PersonDTO{ID: f.SubmitterID},
		Reason:        f.Reason,
		ReviewComment: f.ReviewComment,
		SubmittedAt:   f.SubmittedAt,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
	if f.Template != nil {
		row.Category = f.Template.Category
	}
	if f.Submitter != nil {
		row.Submitter = toPerson(f.Submitter)
	}
	if f.Reviewer != nil {
		p := toPerson(f.Reviewer)
		row.Reviewer = &p
	}
	if f.Course != nil {
		c := toCourseOption(f.Course)
		row.Course = &c
	}
	if f.Section != nil {
		row.Section = &SectionDTO{ID: f.Section.ID, Name: f.Section.Name}
	}
	return row
}
