package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sandevgo/voicebot/internal/config"
	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/internal/service/command"
	"github.com/sandevgo/voicebot/internal/service/voice"
	"github.com/sandevgo/voicebot/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const (
	baseContextKey = "base_context"
	// maxVoiceSize is the Bot API download limit.
	maxVoiceSize = 20 << 20
)

type Chatter interface {
	Generate(ctx context.Context, message, conversationID, backend string) (string, error)
}

type Voicer interface {
	Respond(ctx context.Context, req voice.Request) (*voice.Reply, error)
}

type Bot struct {
	bot       *tele.Bot
	chat      Chatter
	voice     Voicer
	router    *command.Router
	selection *command.Selection
	sender    *sender
	ownerID   int64
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	chat Chatter,
	voicer Voicer,
	router *command.Router,
	selection *command.Selection,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	return newBot(ctx, pref, cfg.OwnerID, chat, voicer, router, selection)
}

func newBot(
	ctx context.Context,
	pref tele.Settings,
	ownerID int64,
	chat Chatter,
	voicer Voicer,
	router *command.Router,
	selection *command.Selection,
) (*Bot, error) {
	pref.OnError = func(err error, c tele.Context) {
		log.FromCtx(ctx).Error().Err(err).Msg("telegram handler failed")
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:       b,
		chat:      chat,
		voice:     voicer,
		router:    router,
		selection: selection,
		sender:    newSender(b),
		ownerID:   ownerID,
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Middleware: Only allow the owner, when one is configured
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !bot.allowed(c.Sender()) {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleText)
	b.Handle(tele.OnVoice, bot.handleVoice)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) allowed(u *tele.User) bool {
	if u == nil {
		return false
	}
	return b.ownerID == 0 || u.ID == b.ownerID
}

// conversationID keeps one conversation per chat.
func conversationID(c tele.Context) string {
	return "telegram-" + strconv.FormatInt(c.Chat().ID, 10)
}

func (b *Bot) context(c tele.Context) context.Context {
	ctx := c.Get(baseContextKey).(context.Context)
	return log.WithFields(ctx, "chat", strconv.FormatInt(c.Chat().ID, 10))
}

func (b *Bot) handleText(c tele.Context) error {
	ctx := b.context(c)
	id := conversationID(c)

	if out, ok := b.router.Execute(ctx, id, c.Text()); ok {
		return b.sender.sendMarkdown(ctx, c.Chat(), out, true)
	}

	_ = c.Notify(tele.Typing)

	reply, err := b.chat.Generate(ctx, c.Text(), id, b.selection.Backend(id))
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("generate failed")
		return c.Send(fmt.Sprintf("error: %v", err))
	}

	return b.sender.sendMarkdown(ctx, c.Chat(), reply, false)
}

func (b *Bot) handleVoice(c tele.Context) error {
	ctx := b.context(c)
	logger := log.FromCtx(ctx)
	id := conversationID(c)

	note := c.Message().Voice
	if note.FileSize > maxVoiceSize {
		return c.Send("That voice note is too long for me.")
	}

	rc, err := b.bot.File(&note.File)
	if err != nil {
		logger.Error().Err(err).Msg("failed to download voice note")
		return c.Send(fmt.Sprintf("error: %v", err))
	}
	data, err := io.ReadAll(io.LimitReader(rc, maxVoiceSize))
	rc.Close()
	if err != nil {
		return c.Send(fmt.Sprintf("error: %v", err))
	}

	_ = c.Notify(tele.RecordingAudio)

	reply, err := b.voice.Respond(ctx, voice.Request{
		Audio:          data,
		Filename:       "voice.ogg",
		ConversationID: id,
		Backend:        b.selection.Backend(id),
		Format:         core.AudioOpus,
	})
	if err != nil {
		logger.Error().Err(err).Msg("voice reply failed")
		return c.Send(fmt.Sprintf("error: %v", err))
	}

	answer := &tele.Voice{
		File: tele.FromReader(bytes.NewReader(reply.Audio)),
		MIME: "audio/ogg",
	}
	if err := c.Send(answer); err != nil {
		logger.Error().Err(err).Msg("failed to send voice reply")
		return err
	}

	return b.sender.sendMarkdown(ctx, c.Chat(), reply.Text, true)
}
