package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldText 搜索列与查询分词使用同一套 Unicode 大小写折叠，
// 数据库的 LOWER() 在 sqlite 上只处理 ASCII
func FoldText(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// foldJoin 多个字段以空格拼接后折叠；分词不含空格，不会跨字段命中
func foldJoin(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return FoldText(strings.Join(kept, " "))
}
