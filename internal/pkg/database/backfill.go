package database

import (
	"fmt"
	"maps"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

const backfillBatchSize = 200

type searchIndexed[T any] interface {
	*T
	BeforeSave(tx *gorm.DB) error
	SearchColumns() map[string]any
}

// Backfill 修复未经过 GORM 钩子写入的数据（导入数据或新增列之前的旧记录）：
// 重新计算搜索列，并把旧审核人列表的第一个写入 reviewer_id。可重复执行。
func Backfill(db *gorm.DB) error {
	steps := []struct {
		name string
		run  func(*gorm.DB) (int, error)
	}{
		{"users", refreshSearchColumns[model.User]},
		{"courses", refreshSearchColumns[model.Course]},
		{"sections", refreshSearchColumns[model.Section]},
		{"form_templates", refreshSearchColumns[model.FormTemplate]},
		{"forms", backfillLegacyReviewers},
	}
	for _, step := range steps {
		n, err := step.run(db)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", step.name, err)
		}
		if n > 0 {
			klog.V(6).Infof("数据回填完成: table=%s, rows=%d", step.name, n)
		}
	}
	return nil
}

func refreshSearchColumns[T any, P searchIndexed[T]](db *gorm.DB) (int, error) {
	var rows []T
	updated := 0
	err := db.FindInBatches(&rows, backfillBatchSize, func(tx *gorm.DB, _ int) error {
		for i := range rows {
			row := P(&rows[i])
			before := row.SearchColumns()
			if err := row.BeforeSave(tx); err != nil {
				return err
			}
			after := row.SearchColumns()
			if maps.Equal(before, after) {
				continue
			}
			// UpdateColumns 不触发钩子，也不改 updated_at
			if err := db.Model(row).UpdateColumns(after).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	}).Error
	return updated, err
}

func backfillLegacyReviewers(db *gorm.DB) (int, error) {
	var forms []model.Form
	updated := 0
	err := db.Select("id", "reviewer_id", "reviewers").
		Where("reviewer_id IS NULL AND reviewers IS NOT NULL").
		FindInBatches(&forms, backfillBatchSize, func(_ *gorm.DB, _ int) error {
			for i := range forms {
				id := forms[i].AssignedReviewerID()
				if id == nil {
					continue
				}
				if err := db.Model(&model.Form{}).Where("id = ?", forms[i].ID).UpdateColumn("reviewer_id", *id).Error; err != nil {
					return err
				}
				updated++
			}
			return nil
		}).Error
	return updated, err
}
