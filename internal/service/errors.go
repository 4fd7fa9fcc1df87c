package service

import (
	"errors"
	"fmt"

	"github.com/Thanaruk598-0/CPmail/internal/repository"
	"github.com/Thanaruk598-0/CPmail/internal/service/authz"
	"github.com/Thanaruk598-0/CPmail/internal/service/statemachine"
)

// 业务错误分类，handler 据此映射 HTTP 状态码
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// lookupErr 将仓储层的未找到错误转换为 ErrNotFound，其余错误附带上下文返回
func lookupErr(entity string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}

// authorize 调用统一权限校验，拒绝时包装为 ErrForbidden
func authorize(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, authz.ErrDenied) {
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return err
}

// isTaxonomy 错误是否已经归入业务错误分类
func isTaxonomy(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}

// transitionErr 非法状态迁移视为并发冲突
func transitionErr(err error) error {
	var invalid *statemachine.InvalidStateTransitionError
	if errors.As(err, &invalid) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
