package service

import "errors"

var (
	ErrPostNotFound        = errors.New("帖子不存在")
	ErrPersonalityNotFound = errors.New("人格不存在")
	ErrTopicNotFound       = errors.New("主题不存在")
	ErrInvalidTopicName    = errors.New("主题名称不能为空")
	ErrBatchFailed         = errors.New("本批次帖子全部生成失败")
)
