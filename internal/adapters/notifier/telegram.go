package notifier

import (
	"context"
	"fmt"
	"gpuresize/internal/core/domain"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

const TelegramMessageLimit = 4096

// MessageSender is the part of *bot.Bot the notifier needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier posts batch summaries to a single chat.
type TelegramNotifier struct {
	bot    MessageSender
	chatID int64
}

// NewTelegramNotifier connects a bot with the given token.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed initializing telegram bot: %w", err)
	}
	return NewTelegramNotifierWithSender(b, chatID), nil
}

func NewTelegramNotifierWithSender(sender MessageSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: sender, chatID: chatID}
}

func (n *TelegramNotifier) NotifyBatch(ctx context.Context, stats domain.BatchStats) error {
	text := summary(stats)

	for _, chunk := range chunks(text, TelegramMessageLimit) {
		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: n.chatID,
			Text:   chunk,
		})
		if err != nil {
			log.Error().Err(err).Int64("chatID", n.chatID).Msg("failed to send batch summary")
			return err
		}
	}

	log.Debug().Int64("chatID", n.chatID).Msg("sent batch summary")
	return nil
}

func summary(stats domain.BatchStats) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "gpuresize %s run: %d of %d images resized in %s",
		stats.Mode, stats.Succeeded, stats.Attempted, stats.Elapsed.Round(time.Millisecond))

	for _, r := range stats.Failures {
		fmt.Fprintf(&sb, "\n%s: %s (%s)", r.Item.Path, r.Failure, r.Reason())
	}

	return sb.String()
}

// chunks splits text into pieces of at most limit bytes, preferring line breaks and never
// cutting a UTF-8 sequence.
func chunks(text string, limit int) []string {
	var out []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(text)
			}
		}
		out = append(out, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	return append(out, text)
}
