package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMessageLimit = 4096

type TelegramGateway struct {
	Bot          *tgbotapi.BotAPI
	Conversation *Conversation
}

func NewTelegramGateway(token string, conv *Conversation) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:          bot,
		Conversation: conv,
	}, nil
}

func (tg *TelegramGateway) Name() string { return "telegram" }

func (tg *TelegramGateway) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			msg := update.Message
			log.Printf("[%s] %s", msg.From.UserName, msg.Text)

			chatID := strconv.FormatInt(msg.Chat.ID, 10)
			vars := map[string]string{
				"channel":   tg.Name(),
				"user_name": msg.From.UserName,
			}
			// Each chat is handled on its own goroutine; the supervisor
			// serialises steps per task.
			go tg.Conversation.Handle(ctx, Owner(tg.Name(), chatID), msg.Text, vars, func(text string) {
				if err := tg.Send(chatID, text); err != nil {
					log.Printf("Error sending to telegram chat %s: %v", chatID, err)
				}
			})
		}
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	for _, part := range chunk(text, telegramMessageLimit) {
		msg := tgbotapi.NewMessage(id, part)
		msg.ParseMode = "Markdown" // Enable markdown for better alerts
		if _, err := tg.Bot.Send(msg); err != nil {
			// Model output is not always valid markdown.
			msg.ParseMode = ""
			if _, err := tg.Bot.Send(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
