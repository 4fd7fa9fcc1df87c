package repository

import (
	"errors"
	"strings"

	"github.com/Thanaruk598-0/CPmail/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

// notFound 将 gorm 的未找到错误统一转换为 ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// anyTokenLike 生成 “任一分词命中” 的条件：col LIKE %token% OR ...
// columns 必须是 model.FoldText 折叠过的搜索列，分词在这里按同样规则折叠。
// 分词只包含字母和数字，不需要转义 LIKE 通配符
func anyTokenLike(db *gorm.DB, tokens []string, columns ...string) *gorm.DB {
	var clauses []string
	var args []any
	for _, token := range tokens {
		token = model.FoldText(token)
		if token == "" {
			continue
		}
		for _, col := range columns {
			clauses = append(clauses, col+" LIKE ?")
			args = append(args, "%"+token+"%")
		}
	}
	if len(clauses) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
}
