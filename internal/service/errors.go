package service

import "errors"

// ── 实习模块业务错误 ──

var (
	ErrSessionNotFound       = errors.New("实习会话不存在")
	ErrTaskNotFound          = errors.New("任务不存在")
	ErrTaskNotVisible        = errors.New("任务尚未开放")
	ErrTaskAlreadyCompleted  = errors.New("任务已完成，如需修改请先重新打开")
	ErrTaskNotReopenable     = errors.New("任务当前状态不可重新打开")
	ErrInvalidStartDate      = errors.New("start_date 格式无效，应为 YYYY-MM-DD")
	ErrNotEntitled           = errors.New("需要有效订阅或推广资格")
	ErrCooldown              = errors.New("请求过于频繁，请稍后再试")
	ErrGenerationUnavailable = errors.New("内容生成服务未配置")
	ErrUserMismatch          = errors.New("无权操作其他用户的数据")
	ErrUnknownAction         = errors.New("未知的导师动作")
	ErrMissingTaskContext    = errors.New("context.task_id 不能为空")
	ErrExportGenerateFail    = errors.New("生成 Excel 文件失败")
)
