package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rahul/taskpilot/internal/agent"
)

// Chat commands understood by every gateway.
const (
	CommandNew    = "/new"
	CommandCancel = "/cancel"
)

// Conversation maps every chat onto one active task. A message starts a task
// when the chat has none (or the last one finished), otherwise it is handed to
// the running task as user input.
type Conversation struct {
	Supervisor *agent.Supervisor
}

func NewConversation(sup *agent.Supervisor) *Conversation {
	return &Conversation{Supervisor: sup}
}

// Handle processes one incoming chat message. Every executed step is passed
// to reply.
func (c *Conversation) Handle(ctx context.Context, owner, text string, vars map[string]string, reply func(string)) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	switch text {
	case CommandNew:
		if id, ok := c.Supervisor.Active(owner); ok {
			c.Supervisor.Remove(id)
		}
		reply("Started a fresh conversation.")
		return
	case CommandCancel:
		id, ok := c.Supervisor.Active(owner)
		if !ok {
			reply("Nothing to cancel.")
			return
		}
		step, err := c.Supervisor.Cancel(ctx, id)
		if err != nil {
			reply(describeError(err))
			return
		}
		reply(agent.FormatStep(step))
		return
	}

	id, ok := c.Supervisor.Active(owner)
	input := text
	if !ok {
		id = c.Supervisor.Start(owner, text).ID()
		input = ""
	}

	_, err := c.Supervisor.Run(ctx, id, input, vars, func(step agent.Step) {
		reply(agent.FormatStep(step))
	})
	if err != nil {
		log.Printf("[Gateway] Task %s for %s: %v", id, owner, err)
		reply(describeError(err))
	}
}

func describeError(err error) string {
	switch {
	case errors.Is(err, agent.ErrTaskBusy):
		return "I'm still working on your previous message..."
	case errors.Is(err, agent.ErrMaxStepsExceeded):
		return "I stopped after too many steps. Send a message to let me continue."
	case errors.Is(err, agent.ErrModelUnavailable):
		return "I'm having trouble thinking right now..."
	case errors.Is(err, agent.ErrNothingPending):
		return "Nothing to cancel."
	case errors.Is(err, context.Canceled):
		return "Stopped."
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
