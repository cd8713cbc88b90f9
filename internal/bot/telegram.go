package bot

import (
	"context"
	"fmt"
	"io"
	"time"

	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/s3"
	"delivery-fleet-api-server/internal/storage"

	tele "gopkg.in/telebot.v3"
)

const (
	PlatformTelegram = "telegram"
	handleTimeout    = 30 * time.Second
)

// Uploader stores a document and returns its URL.
type Uploader interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

type Bot struct {
	tg   *tele.Bot
	flow *Flow
	log  logger.Logger
}

// New connects to Telegram. Without an uploader documents are kept as
// Telegram file ids.
func New(token string, repo storage.RegistrationRepo, uploader Uploader, folder string, log logger.Logger) (*Bot, error) {
	tg, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error("telegram handler failed", logger.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}

	files := &telegramFiles{tg: tg, uploader: uploader, folder: folder}
	b := &Bot{tg: tg, flow: NewFlow(repo, files, log), log: log}
	b.registerHandlers()
	return b, nil
}

// Start polls for updates until Stop is called.
func (b *Bot) Start() {
	b.log.Info("telegram bot started", logger.String("username", b.tg.Me.Username))
	b.tg.Start()
}

func (b *Bot) Stop() {
	b.tg.Stop()
}

func (b *Bot) registerHandlers() {
	b.tg.Handle("/start", b.handleStart)
	b.tg.Handle(tele.OnText, b.handle(func(c tele.Context) Input {
		return Input{Kind: InputText, Text: c.Text()}
	}))
	b.tg.Handle(tele.OnContact, b.handle(func(c tele.Context) Input {
		return Input{Kind: InputContact, Text: c.Message().Contact.PhoneNumber}
	}))
	b.tg.Handle(tele.OnCallback, b.handle(func(c tele.Context) Input {
		_ = c.Respond()
		return Input{Kind: InputButton, Text: c.Callback().Data}
	}))
	b.tg.Handle(tele.OnPhoto, b.handle(func(c tele.Context) Input {
		return Input{Kind: InputFile, FileID: c.Message().Photo.FileID, FileName: "photo.jpg"}
	}))
	b.tg.Handle(tele.OnDocument, b.handle(func(c tele.Context) Input {
		doc := c.Message().Document
		return Input{Kind: InputFile, FileID: doc.FileID, FileName: doc.FileName}
	}))
}

func chatOf(c tele.Context) Chat {
	return Chat{Platform: PlatformTelegram, ID: c.Chat().ID, Username: c.Sender().Username}
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	replies, err := b.flow.Start(ctx, chatOf(c))
	if err != nil {
		return err
	}
	return send(c, replies)
}

func (b *Bot) handle(read func(c tele.Context) Input) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()

		replies, err := b.flow.Handle(ctx, chatOf(c), read(c))
		if err != nil {
			return err
		}
		return send(c, replies)
	}
}

func send(c tele.Context, replies []Reply) error {
	for _, r := range replies {
		if err := c.Send(r.Text, markup(r)); err != nil {
			return err
		}
	}
	return nil
}

func markup(r Reply) interface{} {
	switch {
	case r.ContactButton != "":
		m := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
		m.Reply(m.Row(m.Contact(r.ContactButton)))
		return m
	case len(r.Buttons) > 0:
		m := &tele.ReplyMarkup{}
		for _, row := range r.Buttons {
			buttons := make([]tele.InlineButton, 0, len(row))
			for _, btn := range row {
				buttons = append(buttons, tele.InlineButton{Text: btn.Text, Data: btn.Data})
			}
			m.InlineKeyboard = append(m.InlineKeyboard, buttons)
		}
		return m
	case r.RemoveKeyboard:
		return tele.RemoveKeyboard
	default:
		return &tele.SendOptions{}
	}
}

// telegramFiles copies documents to S3 when an uploader is configured.
type telegramFiles struct {
	tg       *tele.Bot
	uploader Uploader
	folder   string
}

func (f *telegramFiles) Store(ctx context.Context, fileID, fileName string) (string, error) {
	if f.uploader == nil {
		return "telegram:" + fileID, nil
	}
	rc, err := f.tg.File(&tele.File{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("download %s: %w", fileID, err)
	}
	defer rc.Close()
	return f.uploader.UploadFile(ctx, rc, s3.ObjectKey(f.folder, fileName), "")
}
