package repository

import (
	"testing"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"github.com/Thanaruk598-0/CPmail/internal/pkg/database"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T error: %v", value, err)
	}
}

func activeTemplate(title string, category model.Category) *model.FormTemplate {
	return &model.FormTemplate{
		Title:    title,
		Category: string(category),
		Status:   model.TemplateStatusActive,
		Fields: datatypes.NewJSONType([]model.FieldDefinition{
			{Key: "reason", Label: "Reason", Type: model.FieldText, Required: true},
		}),
	}
}
