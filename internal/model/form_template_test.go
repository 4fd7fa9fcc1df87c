package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func newTemplate(status string, allowed []string) *FormTemplate {
	return &FormTemplate{
		Title:        "Leave request",
		Status:       status,
		AllowedRoles: datatypes.NewJSONType(allowed),
	}
}

// 非 Active 模板对任意角色都不可提交
func TestCanSubmit_InactiveTemplateNeverSubmittable(t *testing.T) {
	roles := []string{RoleStudent, RoleLecturer, RoleAdmin, "staff", ""}
	for _, status := range []string{TemplateStatusDraft, TemplateStatusInactive, "", "active"} {
		for _, allowed := range [][]string{nil, {RoleStudent}, roles} {
			tpl := newTemplate(status, allowed)
			for _, role := range roles {
				assert.False(t, tpl.CanSubmit(role), "status=%q allowed=%v role=%q", status, allowed, role)
			}
		}
	}
}

func TestCanSubmit_ActiveTemplate(t *testing.T) {
	open := newTemplate(TemplateStatusActive, nil)
	assert.True(t, open.CanSubmit(RoleStudent))
	assert.True(t, open.CanSubmit(RoleLecturer))

	restricted := newTemplate(TemplateStatusActive, []string{RoleLecturer, "staff"})
	assert.True(t, restricted.CanSubmit(RoleLecturer))
	assert.False(t, restricted.CanSubmit(RoleStudent))

	var missing *FormTemplate
	assert.False(t, missing.CanSubmit(RoleAdmin))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Leave", (&FormTemplate{Title: "Leave", Name: "Legacy"}).DisplayName())
	assert.Equal(t, "Legacy", (&FormTemplate{Name: "Legacy"}).DisplayName())
	assert.Equal(t, "-", (&FormTemplate{Title: "  "}).DisplayName())

	var missing *FormTemplate
	assert.Equal(t, "-", missing.DisplayName())
}

func TestUnlockedFields(t *testing.T) {
	tpl := &FormTemplate{
		Fields: datatypes.NewJSONType([]FieldDefinition{
			{Key: "reason", Label: "Reason", Type: FieldText},
			{Label: "Start date", Type: FieldDate},
			{Key: "student_id", Label: "Student ID", Type: FieldText, Locked: true},
			{Type: FieldText},
		}),
	}

	keys := tpl.UnlockedKeys()
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, "reason")
	assert.Contains(t, keys, "Start date")
	assert.NotContains(t, keys, "student_id")
}

func TestIsValidCategory(t *testing.T) {
	assert.True(t, IsValidCategory("Survey"))
	assert.False(t, IsValidCategory("survey"))
	assert.False(t, IsValidCategory("Leave"))
}

func TestAssignedReviewerID(t *testing.T) {
	id := uint(7)
	f := &Form{ReviewerID: &id, LegacyReviewers: datatypes.NewJSONType([]uint{3, 4})}
	assert.Equal(t, uint(7), *f.AssignedReviewerID())

	legacy := &Form{LegacyReviewers: datatypes.NewJSONType([]uint{3, 4})}
	assert.Equal(t, uint(3), *legacy.AssignedReviewerID())

	assert.Nil(t, (&Form{}).AssignedReviewerID())
}
