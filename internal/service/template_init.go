package service

import (
	"github.com/Thanaruk598-0/CPmail/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

func seedTemplate(title, description string, category model.Category, allowed, targets []string, fields ...model.FieldDefinition) model.FormTemplate {
	return model.FormTemplate{
		Title:        title,
		Description:  description,
		Category:     string(category),
		Status:       model.TemplateStatusActive,
		AllowedRoles: datatypes.NewJSONType(allowed),
		TargetRoles:  datatypes.NewJSONType(targets),
		Fields:       datatypes.NewJSONType(fields),
	}
}

// DefaultTemplates 预置的表单模板
func DefaultTemplates() []model.FormTemplate {
	students := []string{model.RoleStudent}
	lecturers := []string{model.RoleLecturer}
	admins := []string{model.RoleAdmin}
	return []model.FormTemplate{
		seedTemplate("แบบประเมินรายวิชา", "สำหรับนักศึกษาใช้ประเมินรายวิชาและอาจารย์ผู้สอน",
			model.CategoryEvaluation, students, lecturers,
			model.FieldDefinition{Type: model.FieldNumber, Label: "คะแนนความพึงพอใจ (1-5)", Required: true},
			model.FieldDefinition{Type: model.FieldTextarea, Label: "ข้อเสนอแนะเพิ่มเติม"},
		),
		seedTemplate("แบบฟอร์มขอลาเรียน", "สำหรับนักศึกษาที่ต้องการลาเรียน เนื่องจากเหตุจำเป็น",
			model.CategoryRequest, students, lecturers,
			model.FieldDefinition{Type: model.FieldText, Label: "เหตุผลการลา", Required: true},
			model.FieldDefinition{Type: model.FieldDate, Label: "วันที่เริ่มลา", Required: true},
			model.FieldDefinition{Type: model.FieldDate, Label: "วันที่สิ้นสุดการลา", Required: true},
			model.FieldDefinition{Type: model.FieldFile, Label: "ใบรับรองแพทย์"},
		),
		seedTemplate("แบบฟอร์มขอใช้ห้องเรียน", "ใช้สำหรับอาจารย์หรือเจ้าหน้าที่ที่ต้องการจองห้องเรียน",
			model.CategoryAdministrative, lecturers, admins,
			model.FieldDefinition{Type: model.FieldText, Label: "ชื่อห้องที่ต้องการจอง", Required: true},
			model.FieldDefinition{Type: model.FieldDate, Label: "วันที่จอง", Required: true},
			model.FieldDefinition{Type: model.FieldTime, Label: "เวลาเริ่ม", Required: true},
			model.FieldDefinition{Type: model.FieldTime, Label: "เวลาสิ้นสุด", Required: true},
		),
		seedTemplate("แบบสำรวจความพึงพอใจต่อการให้บริการ", "สำหรับนักศึกษาใช้ประเมินการให้บริการของมหาวิทยาลัย",
			model.CategorySurvey, students, admins,
			model.FieldDefinition{Type: model.FieldRadio, Label: "พึงพอใจต่อการบริการ", Options: []string{"มาก", "ปานกลาง", "น้อย"}, Required: true},
			model.FieldDefinition{Type: model.FieldTextarea, Label: "ข้อเสนอแนะเพิ่มเติม"},
		),
		seedTemplate("แบบฟอร์มรายงานปัญหาด้านเทคนิค", "แจ้งปัญหาที่เกิดขึ้นกับระบบ CPmail หรือระบบออนไลน์อื่น ๆ",
			model.CategoryAdministrative, []string{model.RoleStudent, model.RoleLecturer}, admins,
			model.FieldDefinition{Type: model.FieldText, Label: "หัวข้อปัญหา", Required: true},
			model.FieldDefinition{Type: model.FieldTextarea, Label: "รายละเอียดปัญหา", Required: true},
		),
	}
}

// InitDefaultTemplates 模板表为空时写入预置模板
func InitDefaultTemplates(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.FormTemplate{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		// 已存在，跳过初始化
		return nil
	}

	// 使用事务创建预置模板
	templates := DefaultTemplates()
	err := db.Transaction(func(tx *gorm.DB) error {
		for i := range templates {
			if err := tx.Create(&templates[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	klog.V(6).Infof("预置模板初始化完成: count=%d", len(templates))
	return nil
}
