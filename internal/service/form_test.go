package service

import (
	"context"
	"testing"

	"github.com/Thanaruk598-0/CPmail/internal/eventbus"
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// 通过与驳回互相覆盖，最终状态由后一次操作决定
func TestFormService_ApproveThenRejectLastWriteWins(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	id := w.submit(t, validLeave())

	approved, err := w.forms.Approve(ctx, w.rc(t, w.secLec), id, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)

	rejected, err := w.forms.Reject(ctx, w.rc(t, w.admin), id, "  missing certificate ")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusRejected, rejected.Status)
	assert.Equal(t, w.admin.ID, *rejected.ReviewerID)
	assert.Equal(t, "missing certificate", rejected.ReviewComment)

	detail, err := w.forms.Get(ctx, w.rc(t, w.student), id)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusRejected, detail.Status)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, model.CommentApprove, detail.Comments[0].Action)
	assert.Equal(t, model.CommentReject, detail.Comments[1].Action)
	assert.Equal(t, "Root Admin", detail.Comments[1].User.Name)
	assert.True(t, detail.CanEdit)
	assert.False(t, detail.CanReview)

	require.Len(t, w.bus.events, 2)
	assert.Equal(t, eventbus.FormEventApproved, w.bus.events[0].Type)
	assert.Equal(t, w.student.ID, w.bus.events[0].SubmitterID)
	assert.Equal(t, "Sick Leave Request", w.bus.events[0].TemplateTitle)
	assert.Equal(t, eventbus.FormEventRejected, w.bus.events[1].Type)
}

func TestFormService_ReviewAuthorization(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	id := w.submit(t, validLeave())

	_, err := w.forms.Approve(ctx, w.rc(t, w.otherLec), id, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = w.forms.Approve(ctx, w.rc(t, w.student), id, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = w.forms.Get(ctx, w.rc(t, w.outsider), id)
	assert.ErrorIs(t, err, ErrForbidden)

	// 非指派的课程教师同样可以审核
	_, err = w.forms.Approve(ctx, w.rc(t, w.courseLec), id, "")
	require.NoError(t, err)

	_, err = w.forms.Approve(ctx, w.rc(t, w.admin), 999, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

// 已撤回的表单不能再审核
func TestFormService_ReviewCancelledIsConflict(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	id := w.submit(t, validLeave())
	_, err := w.forms.Cancel(ctx, w.rc(t, w.student), id, "")
	require.NoError(t, err)

	_, err = w.forms.Approve(ctx, w.rc(t, w.secLec), id, "late")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = w.forms.Reject(ctx, w.rc(t, w.secLec), id, "late")
	assert.ErrorIs(t, err, ErrConflict)

	form, err := w.formRepo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusCancelled, form.Status)
	assert.Empty(t, form.Comments)
}

func TestFormService_CancelIsRepeatable(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	id := w.submit(t, validLeave())
	rc := w.rc(t, w.student)

	form, err := w.forms.Cancel(ctx, rc, id, "   ")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusCancelled, form.Status)
	assert.Equal(t, DefaultCancellationReason, form.CancellationReason)

	form, err = w.forms.Cancel(ctx, rc, id, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusCancelled, form.Status)
	assert.Equal(t, "changed my mind", form.CancellationReason)

	_, err = w.forms.Cancel(ctx, w.rc(t, w.admin), id, "")
	assert.ErrorIs(t, err, ErrForbidden)

	require.Len(t, w.bus.events, 2)
	assert.Equal(t, eventbus.FormEventCancelled, w.bus.events[0].Type)
	assert.Equal(t, w.secLec.ID, w.bus.events[0].ReviewerID)
}

// 更新数据后再读取：可填写字段为新值，锁定字段保持原值
func TestFormService_UpdateDataRoundTrip(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	form := w.seedForm(t, w.leave, model.FormStatusApproved, testNow)
	form.Data = datatypes.NewJSONType(model.FormData{
		"detail":      {Kind: model.FieldText, Value: "flu"},
		"office_note": {Kind: model.FieldText, Value: "checked"},
	})
	require.NoError(t, w.db.Save(form).Error)

	_, err := w.forms.UpdateData(ctx, w.rc(t, w.student), form.ID, RawValues{
		"detail":      {"covid"},
		"office_note": {"tampered"},
		"unknown":     {"x"},
	}, "new reason")
	require.NoError(t, err)

	detail, err := w.forms.Get(ctx, w.rc(t, w.student), form.ID)
	require.NoError(t, err)
	assert.Equal(t, "covid", detail.Data["detail"].Value)
	assert.Equal(t, "checked", detail.Data["office_note"].Value)
	assert.NotContains(t, detail.Data, "unknown")
	assert.Equal(t, "new reason", detail.Reason)
	assert.Equal(t, model.FormStatusApproved, detail.Status)

	_, err = w.forms.UpdateData(ctx, w.rc(t, w.student), form.ID, RawValues{"detail": {""}}, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = w.forms.UpdateData(ctx, w.rc(t, w.secLec), form.ID, RawValues{"detail": {"x"}}, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFormService_AddFeedbackKeepsStatus(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	id := w.submit(t, validLeave())

	_, err := w.forms.AddFeedback(ctx, w.rc(t, w.secLec), id, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	comment, err := w.forms.AddFeedback(ctx, w.rc(t, w.secLec), id, "please attach certificate")
	require.NoError(t, err)
	assert.Equal(t, model.CommentFeedback, comment.Action)
	assert.NotZero(t, comment.ID)

	form, err := w.formRepo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusPending, form.Status)
	assert.Equal(t, "please attach certificate", form.ReviewComment)
	require.Len(t, form.Comments, 1)
	assert.Equal(t, eventbus.FormEventFeedback, w.bus.events[0].Type)
}

// 旧数据只保存审核人列表时，第一个元素视为当前审核人
func TestFormService_LegacyReviewerList(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	form := w.seedForm(t, w.leave, model.FormStatusPending, testNow)
	require.NoError(t, w.db.Model(form).Updates(map[string]any{
		"reviewer_id": nil,
		"reviewers":   datatypes.NewJSONType([]uint{w.otherLec.ID, w.admin.ID}),
	}).Error)

	detail, err := w.forms.Get(ctx, w.rc(t, w.otherLec), form.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Reviewer)
	assert.Equal(t, w.otherLec.ID, detail.Reviewer.ID)
	assert.True(t, detail.CanReview)

	_, err = w.forms.Approve(ctx, w.rc(t, w.otherLec), form.ID, "")
	require.NoError(t, err)
}
