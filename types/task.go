package types

import "strings"

// Task 调用方提交的工作单元。创建后不可变，由 Router 与 Executor 消费。
type Task struct {
	// Text 任务文本
	Text string `json:"text"`

	// RequiredCapabilities 可选的能力要求（提示路由器优先选择具备这些能力的 agent）
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`

	// Context 可选的自由文本上下文
	Context string `json:"context,omitempty"`
}

// NewTask 创建一个纯文本任务。
func NewTask(text string) Task {
	return Task{Text: text}
}

// IsZero 判断任务是否为空。
func (t Task) IsZero() bool {
	return strings.TrimSpace(t.Text) == ""
}
