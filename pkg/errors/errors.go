package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrAlreadyExists 唯一约束命中：幂等写入未产生新记录
var ErrAlreadyExists = errors.New("记录已存在")

// ErrStateConflict 条件更新未命中：记录状态已被并发流转
var ErrStateConflict = errors.New("记录状态已变化")
