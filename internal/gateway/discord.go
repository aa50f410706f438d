package gateway

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

const discordMessageLimit = 2000

type DiscordGateway struct {
	Session      *discordgo.Session
	Conversation *Conversation
}

func NewDiscordGateway(token string, conv *Conversation) (*DiscordGateway, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	g := &DiscordGateway{Session: dg, Conversation: conv}
	dg.AddHandler(g.onMessage)
	return g, nil
}

func (g *DiscordGateway) Name() string { return "discord" }

func (g *DiscordGateway) Start(ctx context.Context) error {
	if err := g.Session.Open(); err != nil {
		return err
	}
	log.Printf("Authorized on discord as %s", g.Session.State.User.Username)

	<-ctx.Done()
	return g.Stop()
}

func (g *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	log.Printf("[%s] %s", m.Author.Username, m.Content)

	vars := map[string]string{
		"channel":   g.Name(),
		"user_name": m.Author.Username,
	}
	channelID := m.ChannelID
	// discordgo runs each handler on its own goroutine.
	g.Conversation.Handle(context.Background(), Owner(g.Name(), channelID), m.Content, vars, func(text string) {
		if err := g.Send(channelID, text); err != nil {
			log.Printf("Error sending to discord channel %s: %v", channelID, err)
		}
	})
}

func (g *DiscordGateway) Send(chatID string, text string) error {
	for _, part := range chunk(text, discordMessageLimit) {
		if _, err := g.Session.ChannelMessageSend(chatID, part); err != nil {
			return err
		}
	}
	return nil
}

func (g *DiscordGateway) Stop() error {
	return g.Session.Close()
}
