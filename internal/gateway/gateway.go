package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Messenger defines the interface for communication gateways (Telegram, Discord, etc.)
type Messenger interface {
	// Name is the owner prefix of the chats served by the gateway.
	Name() string
	// Start begins the message listening loop and blocks until ctx is done.
	Start(ctx context.Context) error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Owner builds the task owner of a chat, e.g. "telegram:42".
func Owner(gateway, chatID string) string {
	return gateway + ":" + chatID
}

// SplitOwner is the inverse of Owner.
func SplitOwner(owner string) (gateway, chatID string, ok bool) {
	return strings.Cut(owner, ":")
}

// Mux delivers messages addressed to an owner through the gateway that owns
// the chat.
type Mux struct {
	mu       sync.RWMutex
	gateways map[string]Messenger
}

func NewMux(list ...Messenger) *Mux {
	m := &Mux{gateways: make(map[string]Messenger)}
	for _, g := range list {
		m.Add(g)
	}
	return m
}

func (m *Mux) Add(g Messenger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gateways[g.Name()] = g
}

// Send routes text to the owner's chat.
func (m *Mux) Send(owner, text string) error {
	name, chatID, ok := SplitOwner(owner)
	if !ok {
		return fmt.Errorf("invalid owner: %s", owner)
	}
	m.mu.RLock()
	g, ok := m.gateways[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no gateway for %s", owner)
	}
	return g.Send(chatID, text)
}

// chunk splits text into pieces of at most limit bytes, preferring line breaks.
func chunk(text string, limit int) []string {
	var out []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		out = append(out, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
