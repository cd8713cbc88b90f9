// Package bot walks passengers through the registration questions: language,
// phone, name, pass type and the scanned documents. The flow itself does not
// know about Telegram; telegram.go adapts it to telebot.
package bot

import (
	"context"
	"fmt"
	"strings"

	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"
	"delivery-fleet-api-server/internal/storage"
)

const (
	StepLanguage = iota
	StepPhone
	StepName
	StepPassType
	StepFirstFile
	StepSecondFile
)

const (
	PassFinishedTest = "finishedTest"
	PassExpressTest  = "expressTest"
)

// Callback data of inline buttons.
const (
	dataLangPrefix = "lang:"
	dataPassPrefix = "pass:"
	DataNewRequest = "new"
)

type InputKind int

const (
	InputText InputKind = iota
	InputContact
	InputButton
	InputFile
)

// Input is one user action. Text holds the message, the shared phone number
// or the button data depending on Kind.
type Input struct {
	Kind     InputKind
	Text     string
	FileID   string
	FileName string
}

type Chat struct {
	Platform string
	ID       int64
	Username string
}

type Button struct {
	Data string
	Text string
}

// Reply is one outgoing message. ContactButton asks the client to show a
// share-phone keyboard with that label.
type Reply struct {
	Text           string
	Buttons        [][]Button
	ContactButton  string
	RemoveKeyboard bool
}

// FileStore keeps an uploaded document and returns the reference to store.
type FileStore interface {
	Store(ctx context.Context, fileID, fileName string) (string, error)
}

type Flow struct {
	repo  storage.RegistrationRepo
	files FileStore
	log   logger.Logger
}

func NewFlow(repo storage.RegistrationRepo, files FileStore, log logger.Logger) *Flow {
	return &Flow{repo: repo, files: files, log: log}
}

// Start begins a registration from the first question. An unfinished one is
// wiped, a finished one is kept and a new one is opened.
func (f *Flow) Start(ctx context.Context, chat Chat) ([]Reply, error) {
	reg, err := f.repo.Restart(ctx, chat.Platform, chat.ID, chat.Username)
	if err != nil {
		return nil, fmt.Errorf("restart registration: %w", err)
	}
	return []Reply{{Text: T(reg.Lang, "greeting"), RemoveKeyboard: true}, question(reg)}, nil
}

// Handle applies in to the chat's current registration and returns what to
// answer. Invalid input leaves the registration where it was.
func (f *Flow) Handle(ctx context.Context, chat Chat, in Input) ([]Reply, error) {
	if in.Kind == InputButton && in.Text == DataNewRequest {
		return f.Start(ctx, chat)
	}

	reg, err := f.repo.Latest(ctx, chat.Platform, chat.ID, chat.Username)
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if reg.Completed {
		return []Reply{finalReply(reg)}, nil
	}

	var replies []Reply
	switch reg.Step {
	case StepLanguage:
		lang, ok := buttonValue(in, dataLangPrefix)
		if !ok || !isSupportedLang(lang) {
			return []Reply{question(reg)}, nil
		}
		reg.Lang = lang
		reg.Step = StepPhone
		replies = append(replies, Reply{Text: T(lang, "languageChanged")})

	case StepPhone:
		if in.Kind != InputContact && in.Kind != InputText {
			return []Reply{question(reg)}, nil
		}
		phone, ok := normalizePhone(in.Text)
		if !ok {
			return []Reply{{Text: T(reg.Lang, "wrongPhone")}, question(reg)}, nil
		}
		reg.PhoneNumber = phone
		reg.Step = StepName
		replies = append(replies, Reply{Text: T(reg.Lang, "phoneSaved"), RemoveKeyboard: true})

	case StepName:
		name := strings.TrimSpace(in.Text)
		if in.Kind != InputText || name == "" {
			return []Reply{question(reg)}, nil
		}
		reg.Name = name
		reg.Step = StepPassType

	case StepPassType:
		pass, ok := buttonValue(in, dataPassPrefix)
		if !ok || (pass != PassFinishedTest && pass != PassExpressTest) {
			return []Reply{{Text: T(reg.Lang, "useButtons")}, question(reg)}, nil
		}
		reg.PassType = pass
		reg.Step = StepFirstFile

	case StepFirstFile, StepSecondFile:
		if in.Kind != InputFile {
			return []Reply{question(reg)}, nil
		}
		ref, err := f.files.Store(ctx, in.FileID, in.FileName)
		if err != nil {
			f.log.Error("registration document not stored", logger.String("registration_id", reg.ID.Hex()), logger.Error(err))
			return []Reply{{Text: T(reg.Lang, "fileFailed")}}, nil
		}
		reg.Files = append(reg.Files, ref)
		if reg.Step == StepSecondFile {
			return f.complete(ctx, reg)
		}
		reg.Step = StepSecondFile

	default:
		f.log.Warning("registration on unknown step, restarting", logger.String("registration_id", reg.ID.Hex()), logger.Int("step", reg.Step))
		return f.Start(ctx, chat)
	}

	if err := f.repo.Save(ctx, reg); err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}
	return append(replies, question(reg)), nil
}

func (f *Flow) complete(ctx context.Context, reg *models.Registration) ([]Reply, error) {
	reg.Completed = true
	if err := f.repo.Save(ctx, reg); err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}
	f.log.Info("registration completed", logger.String("registration_id", reg.ID.Hex()),
		logger.String("pass_type", reg.PassType), logger.Int("files", len(reg.Files)))
	return []Reply{finalReply(reg)}, nil
}

// question asks for the registration's current step.
func question(reg *models.Registration) Reply {
	lang := reg.Lang
	switch reg.Step {
	case StepLanguage:
		return Reply{Text: T(lang, "getLanguage"), Buttons: [][]Button{
			{{Data: dataLangPrefix + LangUK, Text: T(lang, "setLangUk")}},
			{{Data: dataLangPrefix + LangRU, Text: T(lang, "setLangRu")}},
			{{Data: dataLangPrefix + LangEN, Text: T(lang, "setLangEn")}},
		}}
	case StepPhone:
		return Reply{Text: T(lang, "getPhoneNumber"), ContactButton: T(lang, "sharePhone")}
	case StepName:
		return Reply{Text: T(lang, "getName")}
	case StepPassType:
		return Reply{Text: T(lang, "getPassType"), Buttons: [][]Button{
			{{Data: dataPassPrefix + PassFinishedTest, Text: T(lang, "passFinished")}},
			{{Data: dataPassPrefix + PassExpressTest, Text: T(lang, "passExpress")}},
		}}
	case StepFirstFile:
		return Reply{Text: T(lang, "getFile")}
	default:
		return Reply{Text: T(lang, "getNextFile")}
	}
}

func finalReply(reg *models.Registration) Reply {
	return Reply{Text: T(reg.Lang, "final"), Buttons: [][]Button{
		{{Data: DataNewRequest, Text: T(reg.Lang, "newRequest")}},
	}}
}

func buttonValue(in Input, prefix string) (string, bool) {
	if in.Kind != InputButton || !strings.HasPrefix(in.Text, prefix) {
		return "", false
	}
	return strings.TrimPrefix(in.Text, prefix), true
}

func isSupportedLang(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// normalizePhone keeps the digits and an optional leading plus. Between 9 and
// 15 digits are accepted.
func normalizePhone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	phone := b.String()
	digits := len(strings.TrimPrefix(phone, "+"))
	if digits < 9 || digits > 15 {
		return "", false
	}
	return phone, true
}
