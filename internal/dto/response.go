package dto

// ── 通用响应 ──

// SuccessResponse 通用成功响应
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
