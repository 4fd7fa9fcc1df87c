package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"github.com/Thanaruk598-0/CPmail/internal/service/authz"
)

// DefaultReportDays 未指定起始日期时统计最近的天数
const DefaultReportDays = 30

// UntitledTemplate 模板已删除时的统计名称
const UntitledTemplate = "Untitled Form"

// ReportFilter 审核报表筛选条件
type ReportFilter struct {
	From      string `form:"from"`
	To        string `form:"to"`
	SectionID uint   `form:"section"`
}

// TemplateStat 单个模板的统计
type TemplateStat struct {
	TemplateID   uint   `json:"template_id"`
	Title        string `json:"title"`
	Total        int64  `json:"total"`
	Pending      int64  `json:"pending"`
	Approved     int64  `json:"approved"`
	Rejected     int64  `json:"rejected"`
	Cancelled    int64  `json:"cancelled"`
	ApprovalRate int    `json:"approval_rate"`
}

// ReviewerReport 审核报表
type ReviewerReport struct {
	From             string         `json:"from"`
	To               string         `json:"to"`
	Sections         []SectionDTO   `json:"sections"`
	TotalSubmissions int64          `json:"total_submissions"`
	PendingReview    int64          `json:"pending_review"`
	Approved         int64          `json:"approved"`
	Rejected         int64          `json:"rejected"`
	Cancelled        int64          `json:"cancelled"`
	ApprovalRate     int            `json:"approval_rate"`
	ActiveSubmitters int64          `json:"active_submitters"`
	Templates        []TemplateStat `json:"templates"`
}

// ReportService 审核报表服务接口
type ReportService interface {
	Reviewer(ctx context.Context, rc domain.RequestContext, filter ReportFilter) (*ReviewerReport, error)
}

type reportService struct {
	formRepo     repository.FormRepository
	templateRepo repository.TemplateRepository
	courseRepo   repository.CourseRepository
}

// NewReportService 创建报表服务
func NewReportService(formRepo repository.FormRepository, templateRepo repository.TemplateRepository, courseRepo repository.CourseRepository) ReportService {
	return &reportService{formRepo: formRepo, templateRepo: templateRepo, courseRepo: courseRepo}
}

// ApprovalRate 通过数占已审核数的百分比，四舍五入；没有已审核记录时为 0
func ApprovalRate(approved, rejected int64) int {
	reviewed := approved + rejected
	if reviewed == 0 {
		return 0
	}
	return int(math.Round(float64(approved) / float64(reviewed) * 100))
}

// Reviewer 教师统计任教班级的表单，管理员统计全部；时间按创建时间筛选
func (s *reportService) Reviewer(ctx context.Context, rc domain.RequestContext, filter ReportFilter) (*ReviewerReport, error) {
	if err := authorize(authz.Authorize(rc.Caller, authz.ActionReviewQueue, authz.Resource{})); err != nil {
		return nil, err
	}

	from, to, err := reportRange(rc, filter)
	if err != nil {
		return nil, err
	}
	report := &ReviewerReport{
		From:      rc.FormatDay(from),
		To:        rc.FormatDay(to),
		Sections:  []SectionDTO{},
		Templates: []TemplateStat{},
	}

	var scope repository.FormScope
	if rc.Caller.Role != model.RoleAdmin {
		ids, err := s.courseRepo.TaughtSectionIDs(ctx, rc.Caller.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load taught sections: %w", err)
		}
		// 与审核历史一致：任教班级加上指派给自己的表单
		callerID := rc.Caller.ID
		scope = repository.FormScope{ReviewerID: &callerID, SectionIDs: ids}
		sections, err := s.courseRepo.SectionsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load sections: %w", err)
		}
		for _, sec := range sections {
			report.Sections = append(report.Sections, SectionDTO{ID: sec.ID, Name: sec.Name})
		}
		if filter.SectionID != 0 && !slices.Contains(ids, filter.SectionID) {
			return nil, fmt.Errorf("%w: section %d is not taught by caller", ErrForbidden, filter.SectionID)
		}
	}

	criteria := repository.FormCriteria{Scope: scope, CreatedFrom: &from, CreatedTo: &to}
	if filter.SectionID != 0 {
		criteria.SectionID = &filter.SectionID
	}

	counts, err := s.formRepo.CountByTemplateAndStatus(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate forms: %w", err)
	}
	if report.ActiveSubmitters, err = s.formRepo.CountSubmitters(ctx, criteria); err != nil {
		return nil, fmt.Errorf("failed to count submitters: %w", err)
	}
	titles, err := s.templateTitles(ctx)
	if err != nil {
		return nil, err
	}

	// 同名模板合并统计
	byTitle := make(map[string]*TemplateStat)
	for _, c := range counts {
		title, ok := titles[c.TemplateID]
		if !ok {
			title = UntitledTemplate
		}
		stat, ok := byTitle[title]
		if !ok {
			stat = &TemplateStat{TemplateID: c.TemplateID, Title: title}
			byTitle[title] = stat
		}
		stat.Total += c.Count
		report.TotalSubmissions += c.Count
		switch c.Status {
		case model.FormStatusPending:
			stat.Pending += c.Count
			report.PendingReview += c.Count
		case model.FormStatusApproved:
			stat.Approved += c.Count
			report.Approved += c.Count
		case model.FormStatusRejected:
			stat.Rejected += c.Count
			report.Rejected += c.Count
		case model.FormStatusCancelled:
			stat.Cancelled += c.Count
			report.Cancelled += c.Count
		}
	}
	for _, stat := range byTitle {
		stat.ApprovalRate = ApprovalRate(stat.Approved, stat.Rejected)
		report.Templates = append(report.Templates, *stat)
	}
	slices.SortFunc(report.Templates, func(a, b TemplateStat) int {
		if a.Total != b.Total {
			if a.Total > b.Total {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Title, b.Title)
	})
	report.ApprovalRate = ApprovalRate(report.Approved, report.Rejected)
	return report, nil
}

func (s *reportService) templateTitles(ctx context.Context) (map[uint]string, error) {
	templates, err := s.templateRepo.List(ctx, repository.TemplateFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	titles := make(map[uint]string, len(templates))
	for i := range templates {
		titles[templates[i].ID] = templates[i].DisplayName()
	}
	return titles, nil
}

// reportRange 默认统计最近 30 天，到当天结束为止
func reportRange(rc domain.RequestContext, filter ReportFilter) (time.Time, time.Time, error) {
	to := rc.EndOfDay(rc.Now)
	from := rc.StartOfDay(rc.Now.AddDate(0, 0, -DefaultReportDays))
	if s := strings.TrimSpace(filter.From); s != "" {
		day, err := rc.ParseDay(s)
		if err != nil {
			return from, to, validationf("invalid from date %q", s)
		}
		from = rc.StartOfDay(day)
	}
	if s := strings.TrimSpace(filter.To); s != "" {
		day, err := rc.ParseDay(s)
		if err != nil {
			return from, to, validationf("invalid to date %q", s)
		}
		to = rc.EndOfDay(day)
	}
	if from.After(to) {
		return from, to, validationf("from date is after to date")
	}
	return from, to, nil
}
