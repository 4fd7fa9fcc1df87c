package domain

import (
	"slices"
	"time"
)

// Caller 当前请求的调用者身份
type Caller struct {
	ID               uint
	Name             string
	Role             string
	EnrolledCourses  []uint
	EnrolledSections []uint
}

// IsEnrolledIn 调用者是否已选该课程
func (c Caller) IsEnrolledIn(courseID uint) bool {
	return slices.Contains(c.EnrolledCourses, courseID)
}

// InSection 调用者是否属于该班级
func (c Caller) InSection(sectionID uint) bool {
	return slices.Contains(c.EnrolledSections, sectionID)
}

// RequestContext 一次请求内不可变的上下文：调用者、当前时间、语言和时区。
// 业务层只从这里读取“当前用户”和“当前时间”。
type RequestContext struct {
	Caller   Caller
	Now      time.Time
	Locale   string
	Location *time.Location
}

// NewRequestContext 创建请求上下文，loc 为空时使用 UTC
func NewRequestContext(caller Caller, now time.Time, locale string, loc *time.Location) RequestContext {
	if loc == nil {
		loc = time.UTC
	}
	if locale == "" {
		locale = "en"
	}
	return RequestContext{Caller: caller, Now: now, Locale: locale, Location: loc}
}

func (rc RequestContext) location() *time.Location {
	if rc.Location == nil {
		return time.UTC
	}
	return rc.Location
}

// StartOfDay 返回 day 所在自然日（按请求时区）的零点，结果为 UTC
func (rc RequestContext) StartOfDay(day time.Time) time.Time {
	loc := rc.location()
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).UTC()
}

// EndOfDay 返回 day 所在自然日（按请求时区）的最后一纳秒，结果为 UTC
func (rc RequestContext) EndOfDay(day time.Time) time.Time {
	return rc.StartOfDay(day).Add(24*time.Hour - time.Nanosecond)
}

// ParseDay 按请求时区解析 YYYY-MM-DD
func (rc RequestContext) ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, rc.location())
}

// DateLayout 日期参数格式
const DateLayout = "2006-01-02"

// FormatDay 按请求时区格式化为 YYYY-MM-DD
func (rc RequestContext) FormatDay(t time.Time) string {
	return t.In(rc.location()).Format(DateLayout)
}
