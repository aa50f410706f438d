package actions

import (
	"context"
)

// MessageActionName is the action the agent falls back to when the model's
// answer cannot be decoded.
const MessageActionName = "message"

// MessageAction shows text to the user and does nothing else.
type MessageAction struct{}

func NewMessageAction() *MessageAction {
	return &MessageAction{}
}

func (m *MessageAction) Name() string {
	return MessageActionName
}

func (m *MessageAction) Description() string {
	return "Send a message to the user. Use it to report progress, share an answer or explain a problem."
}

func (m *MessageAction) Schema() Schema {
	return Params(Param{Name: "message", Description: "The text to show to the user"})
}

func (m *MessageAction) Invoke(ctx context.Context, task Task, args map[string]any, vars map[string]string) Outcome {
	msg := StringArg(args, "message")
	return Success(msg, msg)
}
