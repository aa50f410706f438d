package actions

import (
	"context"
	"fmt"
	"strings"
)

// AskAction pauses the task until the user answers a question.
type AskAction struct{}

func NewAskAction() *AskAction {
	return &AskAction{}
}

func (a *AskAction) Name() string {
	return "ask_user"
}

func (a *AskAction) Description() string {
	return "Ask the user a question and wait for the answer before doing anything else."
}

func (a *AskAction) Schema() Schema {
	return Params(Param{Name: "question", Description: "The question to ask"})
}

func (a *AskAction) Invoke(ctx context.Context, task Task, args map[string]any, vars map[string]string) Outcome {
	question := strings.TrimSpace(StringArg(args, "question"))
	if question == "" {
		return Failure(fmt.Errorf("question is required"), "Asked the user an empty question")
	}
	return Awaiting(question, question, map[string]string{"question": question})
}

func (a *AskAction) Continue(ctx context.Context, task Task, id string, state map[string]string, vars map[string]string) Outcome {
	answer := task.LastFeedback()
	if answer == "" {
		return Awaiting(state["question"], state["question"], state).WithID(id)
	}
	return Success(answer, fmt.Sprintf("User answered %q: %s", state["question"], answer)).WithID(id)
}

func (a *AskAction) Cancel(ctx context.Context, task Task, id string) Outcome {
	return Success(nil, "Question withdrawn").WithID(id)
}
