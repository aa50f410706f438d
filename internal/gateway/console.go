package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ConsoleChatID is the only chat of the console gateway.
const ConsoleChatID = "local"

// ConsoleGateway runs the conversation on the local terminal.
type ConsoleGateway struct {
	Conversation *Conversation
	// ExitWhenIdle ends Start once the chat has no active task.
	ExitWhenIdle bool

	in      *os.File
	out     io.Writer
	mu      sync.Mutex
	term    *term.Terminal
	restore func()
}

func NewConsoleGateway(conv *Conversation, in *os.File, out io.Writer) *ConsoleGateway {
	return &ConsoleGateway{Conversation: conv, in: in, out: out}
}

func (c *ConsoleGateway) Name() string { return "console" }

// Owner is the task owner of the console chat.
func (c *ConsoleGateway) Owner() string { return Owner(c.Name(), ConsoleChatID) }

// Submit handles one line as if it had been typed.
func (c *ConsoleGateway) Submit(ctx context.Context, text string) {
	vars := map[string]string{"channel": c.Name()}
	if u := os.Getenv("USER"); u != "" {
		vars["user_name"] = u
	}
	c.Conversation.Handle(ctx, c.Owner(), text, vars, func(reply string) {
		_ = c.Send(ConsoleChatID, reply)
	})
}

func (c *ConsoleGateway) Start(ctx context.Context) error {
	readLine, err := c.open()
	if err != nil {
		return err
	}
	defer c.Stop()

	for {
		if c.ExitWhenIdle {
			if _, ok := c.Conversation.Supervisor.Active(c.Owner()); !ok {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		line, err := readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		c.Submit(ctx, line)
	}
}

// open switches an interactive stdin to a line editor and falls back to
// plain line reads otherwise.
func (c *ConsoleGateway) open() (func() (string, error), error) {
	fd := int(c.in.Fd())
	if !term.IsTerminal(fd) {
		scanner := bufio.NewScanner(c.in)
		return func() (string, error) {
			if scanner.Scan() {
				return scanner.Text(), nil
			}
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{c.in, c.out}, "> ")

	c.mu.Lock()
	c.term = t
	c.restore = func() { _ = term.Restore(fd, state) }
	c.mu.Unlock()
	return t.ReadLine, nil
}

func (c *ConsoleGateway) Send(chatID string, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.term != nil {
		_, err := fmt.Fprintf(c.term, "%s\n", text)
		return err
	}
	_, err := fmt.Fprintf(c.out, "%s\n", text)
	return err
}

func (c *ConsoleGateway) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restore != nil {
		c.restore()
		c.restore = nil
		c.term = nil
	}
	return nil
}
