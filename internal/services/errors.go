package services

import (
	"errors"

	"reelnotes/internal/utils"
)

// 业务错误分类，handler 通过 errors.Is 映射为 HTTP 状态码
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrEditWindowExpired  = errors.New("edit window expired")
	ErrDepthExceeded      = errors.New("reply depth exceeded")
	ErrConflictInProgress = errors.New("refresh already in progress")
	ErrUpstreamFailure    = errors.New("upstream content source failure")
	// ErrCacheUnavailable 只在缓存层内部记录，从不返回给调用方
	ErrCacheUnavailable = utils.ErrCacheUnavailable
)
