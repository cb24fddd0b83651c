package ports

// TaskEvent is the inbound event that triggers exactly one workflow run.
type TaskEvent struct {
	TaskValue      string `json:"task_value"`
	ConversationID string `json:"conversation_id"`
}
