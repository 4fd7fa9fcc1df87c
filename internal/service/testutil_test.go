package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/eventbus"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/pkg/database"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"github.com/Thanaruk598-0/CPmail/internal/service/reviewer"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

// recordingBus 记录发布的表单事件
type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.FormEvent
}

func (b *recordingBus) Publish(_ context.Context, event eventbus.FormEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

// world 一门课程、一个教学班和各类用户组成的测试数据
type world struct {
	db            *gorm.DB
	templateRepo  repository.TemplateRepository
	userRepo      repository.UserRepository
	courseRepo    repository.CourseRepository
	formRepo      repository.FormRepository
	notifyRepo    repository.NotificationRepository
	bus           *recordingBus
	identity      IdentityService
	templates     TemplateService
	submissions   SubmissionService
	forms         FormService
	history       HistoryService
	notifications NotificationService
	reports       ReportService

	student   *model.User // 已选课并在教学班内
	outsider  *model.User // 未选课的学生
	secLec    *model.User // 教学班教师
	courseLec *model.User // 课程教师
	otherLec  *model.User // 与该课程无关的教师
	admin     *model.User

	course  *model.Course
	section *model.Section
	leave   *model.FormTemplate
	draft   *model.FormTemplate
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db, err := database.InitDB("sqlite", ":memory:")
	require.NoError(t, err)

	w := &world{
		db:           db,
		templateRepo: repository.NewTemplateRepository(db),
		userRepo:     repository.NewUserRepository(db),
		courseRepo:   repository.NewCourseRepository(db),
		formRepo:     repository.NewFormRepository(db),
		notifyRepo:   repository.NewNotificationRepository(db),
		bus:          &recordingBus{},
	}
	w.identity = NewIdentityService(w.userRepo, w.courseRepo)
	w.templates = NewTemplateService(w.templateRepo)
	router := reviewer.NewRouter(w.courseRepo, w.userRepo, func(int) int { return 0 })
	w.submissions = NewSubmissionService(w.templates, w.courseRepo, w.formRepo, router)
	w.forms = NewFormService(w.formRepo, w.courseRepo, w.userRepo, w.bus)
	w.history = NewHistoryService(w.formRepo, w.templateRepo, w.userRepo, w.courseRepo, 10)
	w.notifications = NewNotificationService(w.notifyRepo, 20)
	w.reports = NewReportService(w.formRepo, w.templateRepo, w.courseRepo)

	w.student = w.addUser(t, "Alice Student", model.RoleStudent)
	w.outsider = w.addUser(t, "Bob Outsider", model.RoleStudent)
	w.secLec = w.addUser(t, "Somchai Section", model.RoleLecturer)
	w.courseLec = w.addUser(t, "Napat Course", model.RoleLecturer)
	w.otherLec = w.addUser(t, "Kanya Other", model.RoleLecturer)
	w.admin = w.addUser(t, "Root Admin", model.RoleAdmin)

	ctx := context.Background()
	w.course = &model.Course{Code: "CS101", Name: "Computer Programming"}
	require.NoError(t, w.courseRepo.CreateCourse(ctx, w.course))
	w.section = &model.Section{CourseID: w.course.ID, Name: "Sec A"}
	require.NoError(t, w.courseRepo.CreateSection(ctx, w.section))
	require.NoError(t, w.courseRepo.AddCourseMember(ctx, &model.CourseMember{CourseID: w.course.ID, UserID: w.courseLec.ID, Kind: model.MemberStaff}))
	require.NoError(t, w.courseRepo.AddCourseMember(ctx, &model.CourseMember{CourseID: w.course.ID, UserID: w.student.ID, Kind: model.MemberStudent}))
	require.NoError(t, w.courseRepo.AddSectionMember(ctx, &model.SectionMember{SectionID: w.section.ID, UserID: w.secLec.ID, Kind: model.MemberStaff}))
	require.NoError(t, w.courseRepo.AddSectionMember(ctx, &model.SectionMember{SectionID: w.section.ID, UserID: w.student.ID, Kind: model.MemberStudent}))

	w.leave = &model.FormTemplate{
		Title:        "Sick Leave Request",
		Category:     string(model.CategoryRequest),
		Status:       model.TemplateStatusActive,
		AllowedRoles: datatypes.NewJSONType([]string{model.RoleStudent}),
		TargetRoles:  datatypes.NewJSONType([]string{model.RoleLecturer}),
		Fields: datatypes.NewJSONType([]model.FieldDefinition{
			{Key: "detail", Label: "Detail", Type: model.FieldText, Required: true},
			{Key: "leave_date", Label: "Leave date", Type: model.FieldDate},
			{Key: "kind", Label: "Kind", Type: model.FieldSelect, Options: []string{"sick", "personal"}},
			{Key: "office_note", Label: "Office note", Type: model.FieldText, Locked: true},
			{Label: "Medical certificate", Type: model.FieldFile},
		}),
	}
	require.NoError(t, w.templateRepo.Create(ctx, w.leave))
	w.draft = &model.FormTemplate{
		Title:    "Draft Survey",
		Category: string(model.CategorySurvey),
		Status:   model.TemplateStatusDraft,
		Fields:   datatypes.NewJSONType([]model.FieldDefinition{{Key: "q1", Label: "Q1", Type: model.FieldText}}),
	}
	require.NoError(t, w.templateRepo.Create(ctx, w.draft))
	return w
}

func (w *world) addUser(t *testing.T, name, role string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, w.userRepo.Create(context.Background(), u))
	return u
}

// rc 通过身份解析构造请求上下文
func (w *world) rc(t *testing.T, u *model.User) domain.RequestContext {
	t.Helper()
	caller, err := w.identity.Resolve(context.Background(), u.ID)
	require.NoError(t, err)
	return domain.NewRequestContext(caller, testNow, "en", time.UTC)
}

// submit 以学生身份走完整提交流程
func (w *world) submit(t *testing.T, values RawValues) uint {
	t.Helper()
	id, err := w.submissions.Create(context.Background(), w.rc(t, w.student), SubmissionRequest{
		TemplateID: w.leave.ID,
		CourseID:   w.course.ID,
		Values:     values,
		Reason:     "fever",
	})
	require.NoError(t, err)
	return id
}

// seedForm 直接写入一条表单记录，用于控制时间和状态
func (w *world) seedForm(t *testing.T, tpl *model.FormTemplate, status string, createdAt time.Time) *model.Form {
	t.Helper()
	reviewerID := w.secLec.ID
	form := &model.Form{
		SubmitterID: w.student.ID,
		TemplateID:  tpl.ID,
		CourseID:    &w.course.ID,
		SectionID:   &w.section.ID,
		Data:        datatypes.NewJSONType(model.FormData{}),
		Status:      status,
		ReviewerID:  &reviewerID,
		SubmittedAt: createdAt,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, w.formRepo.Create(context.Background(), form))
	return form
}

func validLeave() RawValues {
	return RawValues{"detail": {"flu"}, "leave_date": {"2024-03-14"}, "kind": {"sick"}}
}
