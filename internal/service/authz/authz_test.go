package authz

import (
	"testing"

	"github.com/Thanaruk598-0/CPmail/internal/domain"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

var (
	student  = domain.Caller{ID: 1, Role: model.RoleStudent}
	lecturer = domain.Caller{ID: 2, Role: model.RoleLecturer}
	other    = domain.Caller{ID: 3, Role: model.RoleLecturer}
	admin    = domain.Caller{ID: 4, Role: model.RoleAdmin}
)

func TestAuthorize_Submit(t *testing.T) {
	active := &model.FormTemplate{Status: model.TemplateStatusActive, AllowedRoles: datatypes.NewJSONType([]string{model.RoleStudent})}
	draft := &model.FormTemplate{Status: model.TemplateStatusDraft}

	assert.NoError(t, Authorize(student, ActionSubmit, Resource{Template: active}))
	assert.ErrorIs(t, Authorize(lecturer, ActionSubmit, Resource{Template: active}), ErrDenied)
	assert.ErrorIs(t, Authorize(student, ActionSubmit, Resource{Template: draft}), ErrDenied)
	assert.ErrorIs(t, Authorize(student, ActionSubmit, Resource{}), ErrDenied)
}

func TestAuthorize_OwnerActions(t *testing.T) {
	res := Resource{SubmitterID: student.ID}
	assert.NoError(t, Authorize(student, ActionEditOwn, res))
	assert.NoError(t, Authorize(student, ActionCancelOwn, res))
	assert.ErrorIs(t, Authorize(admin, ActionCancelOwn, res), ErrDenied)
	assert.ErrorIs(t, Authorize(domain.Caller{}, ActionEditOwn, Resource{}), ErrDenied)
}

func TestAuthorize_Review(t *testing.T) {
	assigned := lecturer.ID
	res := Resource{SubmitterID: student.ID, ReviewerID: &assigned}

	assert.NoError(t, Authorize(lecturer, ActionReview, res))
	assert.NoError(t, Authorize(admin, ActionReview, res))
	assert.ErrorIs(t, Authorize(other, ActionReview, res), ErrDenied)
	assert.ErrorIs(t, Authorize(student, ActionReview, res), ErrDenied)

	// 非指派但任教该班的教师也可以审核
	res.SectionStaff = []uint{other.ID}
	assert.NoError(t, Authorize(other, ActionReview, res))
	res.SectionStaff = nil
	res.CourseStaff = []uint{other.ID}
	assert.NoError(t, Authorize(other, ActionReview, res))
}

func TestAuthorize_ViewAndRoles(t *testing.T) {
	res := Resource{SubmitterID: student.ID}
	assert.NoError(t, Authorize(student, ActionView, res))
	assert.NoError(t, Authorize(admin, ActionView, res))
	assert.ErrorIs(t, Authorize(other, ActionView, res), ErrDenied)

	assert.NoError(t, Authorize(lecturer, ActionReviewQueue, Resource{}))
	assert.ErrorIs(t, Authorize(student, ActionReviewQueue, Resource{}), ErrDenied)
	assert.NoError(t, Authorize(admin, ActionManageTemplates, Resource{}))
	assert.ErrorIs(t, Authorize(lecturer, ActionManageTemplates, Resource{}), ErrDenied)
	assert.ErrorIs(t, Authorize(admin, Action("fly"), Resource{}), ErrDenied)
}
