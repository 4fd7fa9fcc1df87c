package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type formFixture struct {
	db       *gorm.DB
	repo     FormRepository
	student  *model.User
	lecturer *model.User
	template *model.FormTemplate
	survey   *model.FormTemplate
	course   *model.Course
	section  *model.Section
	baseTime time.Time
}

func newFormFixture(t *testing.T) *formFixture {
	t.Helper()
	db := newTestDB(t)
	f := &formFixture{
		db:       db,
		repo:     NewFormRepository(db),
		student:  &model.User{Name: "Nok", Email: "nok@example.com", Role: model.RoleStudent},
		lecturer: &model.User{Name: "Dr. Somchai", Email: "somchai@example.com", Role: model.RoleLecturer},
		template: activeTemplate("Leave request", model.CategoryRequest),
		survey:   activeTemplate("Teaching survey", model.CategorySurvey),
		course:   &model.Course{Code: "CS101", Name: "Programming"},
		baseTime: time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC),
	}
	mustCreate(t, db, f.student)
	mustCreate(t, db, f.lecturer)
	mustCreate(t, db, f.template)
	mustCreate(t, db, f.survey)
	mustCreate(t, db, f.course)
	f.section = &model.Section{CourseID: f.course.ID, Name: "Sec 1"}
	mustCreate(t, db, f.section)
	return f
}

// addForm 按天递增创建时间插入表单
func (f *formFixture) addForm(t *testing.T, tpl *model.FormTemplate, status string, day int) *model.Form {
	t.Helper()
	created := f.baseTime.AddDate(0, 0, day)
	form := &model.Form{
		SubmitterID: f.student.ID,
		TemplateID:  tpl.ID,
		CourseID:    &f.course.ID,
		SectionID:   &f.section.ID,
		ReviewerID:  &f.lecturer.ID,
		Status:      status,
		Data: datatypes.NewJSONType(model.FormData{
			"reason": {Kind: model.FieldText, Value: "sick"},
		}),
		SubmittedAt: created,
		CreatedAt:   created,
		UpdatedAt:   created.Add(time.Hour),
	}
	require.NoError(t, f.repo.Create(context.Background(), form))
	return form
}

func TestFormRepository_CreateAndGet(t *testing.T) {
	f := newFormFixture(t)
	form := f.addForm(t, f.template, model.FormStatusPending, 0)

	got, err := f.repo.Get(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusPending, got.Status)
	require.NotNil(t, got.Template)
	assert.Equal(t, "Leave request", got.Template.Title)
	require.NotNil(t, got.Reviewer)
	assert.Equal(t, "Dr. Somchai", got.Reviewer.Name)
	assert.Equal(t, "sick", got.Data.Data()["reason"].Value)

	_, err = f.repo.Get(context.Background(), 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFormRepository_UpdateAppendsComment(t *testing.T) {
	f := newFormFixture(t)
	form := f.addForm(t, f.template, model.FormStatusPending, 0)
	ctx := context.Background()

	updated, err := f.repo.Update(ctx, form.ID, func(fm *model.Form) (*model.ReviewComment, error) {
		fm.Status = model.FormStatusApproved
		fm.ReviewComment = "ok"
		return &model.ReviewComment{UserID: f.lecturer.ID, Action: model.CommentApprove, Message: "ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusApproved, updated.Status)

	got, err := f.repo.Get(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusApproved, got.Status)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, model.CommentApprove, got.Comments[0].Action)
	require.NotNil(t, got.Comments[0].User)
	assert.Equal(t, f.lecturer.ID, got.Comments[0].User.ID)
}

func TestFormRepository_UpdateRollsBackOnError(t *testing.T) {
	f := newFormFixture(t)
	form := f.addForm(t, f.template, model.FormStatusPending, 0)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := f.repo.Update(ctx, form.ID, func(fm *model.Form) (*model.ReviewComment, error) {
		fm.Status = model.FormStatusRejected
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := f.repo.Get(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusPending, got.Status)

	_, err = f.repo.Update(ctx, 12345, func(fm *model.Form) (*model.ReviewComment, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormRepository_SearchOrderingAndPaging(t *testing.T) {
	f := newFormFixture(t)
	ctx := context.Background()
	var approved []*model.Form
	for i := 0; i < 3; i++ {
		approved = append(approved, f.addForm(t, f.template, model.FormStatusApproved, i))
	}
	f.addForm(t, f.template, model.FormStatusPending, 3)
	f.addForm(t, f.survey, model.FormStatusPending, 4)

	forms, total, err := f.repo.Search(ctx, FormCriteria{Status: model.FormStatusApproved, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, forms, 3)
	assert.Equal(t, approved[2].ID, forms[0].ID)
	assert.Equal(t, approved[0].ID, forms[2].ID)

	forms, total, err = f.repo.Search(ctx, FormCriteria{Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, forms, 2)
	assert.Equal(t, approved[2].ID, forms[0].ID)

	forms, total, err = f.repo.Search(ctx, FormCriteria{TemplateIDs: []uint{f.survey.ID}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, f.survey.ID, forms[0].TemplateID)

	_, total, err = f.repo.Search(ctx, FormCriteria{TemplateIDs: []uint{}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestFormRepository_SearchDateBounds(t *testing.T) {
	f := newFormFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.addForm(t, f.template, model.FormStatusPending, i)
	}

	// 创建时间 >= 第 1 天零点，更新时间 <= 第 3 天末
	from := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 3, 23, 59, 59, 0, time.UTC)
	_, total, err := f.repo.Search(ctx, FormCriteria{CreatedFrom: &from, UpdatedTo: &to, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestFormRepository_TextMatchAndScope(t *testing.T) {
	f := newFormFixture(t)
	ctx := context.Background()
	f.addForm(t, f.template, model.FormStatusPending, 0)
	f.addForm(t, f.survey, model.FormStatusApproved, 1)

	_, total, err := f.repo.Search(ctx, FormCriteria{Text: &TextMatch{TemplateIDs: []uint{f.survey.ID}}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = f.repo.Search(ctx, FormCriteria{Text: &TextMatch{ReviewerIDs: []uint{f.lecturer.ID}}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = f.repo.Search(ctx, FormCriteria{Text: &TextMatch{}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	other := uint(999)
	counts, err := f.repo.CountByStatus(ctx, FormScope{SubmitterID: &other})
	require.NoError(t, err)
	assert.Empty(t, counts)

	counts, err = f.repo.CountByStatus(ctx, FormScope{ReviewerID: &other, SectionIDs: []uint{f.section.ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.FormStatusPending])
	assert.Equal(t, int64(1), counts[model.FormStatusApproved])

	counts, err = f.repo.CountByStatus(ctx, FormScope{SectionIDs: []uint{}})
	require.NoError(t, err)
	assert.Empty(t, counts)

	_, total, err = f.repo.Search(ctx, FormCriteria{Scope: FormScope{SectionIDs: []uint{f.section.ID}}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestFormRepository_Aggregates(t *testing.T) {
	f := newFormFixture(t)
	ctx := context.Background()
	f.addForm(t, f.template, model.FormStatusApproved, 0)
	f.addForm(t, f.template, model.FormStatusRejected, 1)
	f.addForm(t, f.survey, model.FormStatusApproved, 2)

	rows, err := f.repo.CountByTemplateAndStatus(ctx, FormCriteria{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	n, err := f.repo.CountSubmitters(ctx, FormCriteria{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
