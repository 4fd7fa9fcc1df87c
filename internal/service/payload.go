package service

import (
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Thanaruk598-0/CPmail/internal/model"
)

// RawValues 客户端提交的字段值，键为字段键；多选字段可有多个值
type RawValues map[string][]string

// FormValuePrefix 表单提交时字段输入框的名称前缀（data_<key>）
const FormValuePrefix = "data_"

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// buildPayload 按模板的可填写字段生成数据载荷。
// 锁定字段和模板之外的键被丢弃；每个可填写字段都会出现在结果中，缺失时为空值。
func buildPayload(tpl *model.FormTemplate, raw RawValues) (model.FormData, error) {
	data := make(model.FormData)
	for _, field := range tpl.UnlockedFields() {
		value, err := normalizeValue(field, raw[field.FieldKey()])
		if err != nil {
			return nil, err
		}
		if field.Required && value.IsEmpty() {
			return nil, validationf("field %q is required", field.Label)
		}
		data[field.FieldKey()] = value
	}
	return data, nil
}

// mergePayload 只合并 raw 中出现且可填写的键，其余键保持原值
func mergePayload(tpl *model.FormTemplate, existing model.FormData, raw RawValues) (model.FormData, error) {
	merged := make(model.FormData, len(existing))
	for k, v := range existing {
		merged[k] = v
	}
	unlocked := tpl.UnlockedKeys()
	for key, values := range raw {
		field, ok := unlocked[key]
		if !ok {
			continue
		}
		value, err := normalizeValue(field, values)
		if err != nil {
			return nil, err
		}
		if field.Required && value.IsEmpty() {
			return nil, validationf("field %q is required", field.Label)
		}
		merged[key] = value
	}
	return merged, nil
}

func normalizeValue(field model.FieldDefinition, values []string) (model.FieldValue, error) {
	out := model.FieldValue{Kind: field.Type}
	if field.Type == model.FieldCheckbox {
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if len(field.Options) > 0 && !slices.Contains(field.Options, v) {
				return out, validationf("field %q: %q is not an option", field.Label, v)
			}
			if !slices.Contains(out.Values, v) {
				out.Values = append(out.Values, v)
			}
		}
		return out, nil
	}

	if len(values) > 0 {
		out.Value = strings.TrimSpace(values[0])
	}
	if out.Value == "" {
		return out, nil
	}
	if field.MaxLength > 0 && utf8.RuneCountInString(out.Value) > field.MaxLength {
		return out, validationf("field %q exceeds %d characters", field.Label, field.MaxLength)
	}

	switch field.Type {
	case model.FieldDate:
		if _, err := time.Parse(dateLayout, out.Value); err != nil {
			return out, validationf("field %q: malformed date %q", field.Label, out.Value)
		}
	case model.FieldTime:
		if _, err := time.Parse(timeLayout, out.Value); err != nil {
			return out, validationf("field %q: malformed time %q", field.Label, out.Value)
		}
	case model.FieldNumber:
		if _, err := strconv.ParseFloat(out.Value, 64); err != nil {
			return out, validationf("field %q: %q is not a number", field.Label, out.Value)
		}
	case model.FieldSelect, model.FieldRadio:
		if len(field.Options) > 0 && !slices.Contains(field.Options, out.Value) {
			return out, validationf("field %q: %q is not an option", field.Label, out.Value)
		}
	}
	return out, nil
}
