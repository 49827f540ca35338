package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moodkit/moodbot/internal/command"
	"github.com/moodkit/moodbot/internal/domain"
)

func (b *Bot) execute(ctx context.Context, cmd command.Command, req request) {
	switch cmd.Kind {
	case command.Feel, command.Felt:
		b.feel(ctx, cmd, req)
	case command.InvalidFeel:
		b.reply(ctx, req, cmd.Usage)
	case command.History:
		b.forEachMember(ctx, cmd, req, b.history)
	case command.Echo:
		b.forEachMember(ctx, cmd, req, b.echo)
	case command.Quotes:
		b.forEachMember(ctx, cmd, req, b.quotes)
	case command.Users:
		b.users(ctx, req)
	case command.WhoAmI:
		b.whoami(ctx, req)
	case command.Help:
		b.reply(ctx, req, helpText())
	case command.Hello:
		b.reply(ctx, req, command.PickPhrase(command.HelloPhrases, b.intn))
	default:
		if req.addressed {
			b.reply(ctx, req, msgNotUnderstood)
		}
	}
}

// feel записывает настроение отправителя и, если есть, заметку за тот же день.
// Ответы идут в порядке: подтверждение настроения, затем подтверждение заметки.
func (b *Bot) feel(ctx context.Context, cmd command.Command, req request) {
	userID, err := b.resolver.Resolve(ctx, req.msg.User)
	if err != nil {
		req.logger.Error("failed to resolve user", slog.String("error", err.Error()))
		b.reply(ctx, req, msgGenericFailure)
		return
	}

	day := domain.DayAlign(req.msg.Unix() + cmd.DayOffset())
	ack, err := b.backend.CreateMood(ctx, userID, day, cmd.Emoji, cmd.Value)
	if err != nil {
		req.logger.Error("failed to create mood", slog.String("error", err.Error()))
		b.reply(ctx, req, msgGenericFailure)
		return
	}

	switch {
	case ack.Created():
		b.reply(ctx, req, ackText(ack, msgMoodSaved))
	case cmd.Kind == command.Felt:
		b.reply(ctx, req, msgFeltDuplicate)
	default:
		b.reply(ctx, req, msgFeelDuplicate)
	}

	if cmd.Snippet == "" {
		return
	}

	ack, err = b.backend.CreateSnippet(ctx, userID, day, cmd.Snippet)
	if err != nil {
		req.logger.Error("failed to create snippet", slog.String("error", err.Error()))
		b.reply(ctx, req, msgGenericFailure)
		return
	}
	if !ack.Created() {
		req.logger.Info("snippet not accepted", slog.String("status", ack.StatusCode), slog.String("message", ack.Message))
		return
	}
	b.reply(ctx, req, ackText(ack, msgSnippetSaved))
}

func ackText(ack domain.Ack, fallback string) string {
	if ack.Message == "" {
		return fallback
	}
	return ack.Message
}

// memberFunc — работа команды для одного участника канала.
type memberFunc func(ctx context.Context, req request, profile domain.Profile, userID int64) error

// forEachMember выполняет fn для каждого живого участника канала (или
// только для отправителя в личном канале). Сбой одного участника не влияет
// на остальных. В личном канале сбой получения профиля или сопоставления
// пользователя дает сообщение об ошибке, в общем канале он только логируется.
func (b *Bot) forEachMember(ctx context.Context, cmd command.Command, req request, fn memberFunc) {
	subjects := b.subjects(req)

	res := b.fanout.Run(ctx, subjects, func(ctx context.Context, subject domain.ChatIdentity) error {
		profile, err := b.directory.Profile(ctx, subject)
		if err != nil {
			if req.direct {
				b.reply(ctx, req, missingText(cmd.Kind))
			}
			return fmt.Errorf("failed to get profile: %w", err)
		}
		if !profile.Human() {
			return nil
		}

		userID, err := b.resolver.Resolve(ctx, subject)
		if err != nil {
			if req.direct {
				b.reply(ctx, req, missingText(cmd.Kind))
			}
			return err
		}
		return fn(ctx, req, profile, userID)
	})

	if res.Failed > 0 {
		fanoutFailures.WithLabelValues(cmd.Kind.String()).Add(float64(res.Failed))
	}
}

// subjects возвращает участников, для которых выполняется команда.
func (b *Bot) subjects(req request) []domain.ChatIdentity {
	if req.direct || len(req.channel.Members) == 0 {
		return []domain.ChatIdentity{req.msg.User}
	}
	out := make([]domain.ChatIdentity, 0, len(req.channel.Members))
	for _, m := range req.channel.Members {
		if m == b.self.ID {
			continue
		}
		out = append(out, m)
	}
	return out
}

func missingText(kind command.Kind) string {
	switch kind {
	case command.History:
		return msgMoodsMissing
	case command.Echo:
		return msgUserMissing
	default:
		return msgSnippetMissing
	}
}

// windowFor возвращает границы окна отчета, отсчитанные от времени сообщения.
func (b *Bot) windowFor(req request) (start, end int64) {
	end = req.msg.Unix()
	return end - int64(b.window.Seconds()), end
}

func (b *Bot) history(ctx context.Context, req request, profile domain.Profile, userID int64) error {
	start, end := b.windowFor(req)
	moods, err := b.backend.FetchMoods(ctx, userID, start, end)
	if err != nil {
		return err
	}

	b.reply(ctx, req, "*"+profile.DisplayName+"*")
	if len(moods) == 0 {
		b.reply(ctx, req, msgNoMood)
		return nil
	}
	b.reply(ctx, req, renderMoods(moods))
	return nil
}

func (b *Bot) echo(ctx context.Context, req request, profile domain.Profile, userID int64) error {
	start, end := b.windowFor(req)
	averages, err := b.backend.FetchAverages(ctx, userID, start, end)
	if err != nil {
		return err
	}

	avg, ok := findAverage(averages)
	if !ok {
		b.reply(ctx, req, msgNoMood)
		return nil
	}
	b.reply(ctx, req, renderAverage(profile.DisplayName, avg))
	return nil
}

// findAverage ищет элемент со средним значением; позиция элемента в
// ответе не фиксирована.
func findAverage(items []domain.Average) (float64, bool) {
	for _, item := range items {
		if item.Average != nil {
			return *item.Average, true
		}
	}
	return 0, false
}

func (b *Bot) quotes(ctx context.Context, req request, profile domain.Profile, userID int64) error {
	start, end := b.windowFor(req)
	snippets, err := b.backend.FetchSnippets(ctx, userID, start, end)
	if err != nil {
		return err
	}

	if len(snippets) == 0 {
		b.reply(ctx, req, msgNoSnippet)
		return nil
	}

	author := profile.FirstName
	if author == "" {
		author = profile.DisplayName
	}
	b.reply(ctx, req, renderQuotes(snippets, author))
	return nil
}

func (b *Bot) users(ctx context.Context, req request) {
	users, err := b.backend.FetchAllUsers(ctx)
	if err != nil {
		req.logger.Error("failed to fetch users", slog.String("error", err.Error()))
		b.reply(ctx, req, msgGenericFailure)
		return
	}
	if len(users) == 0 {
		b.reply(ctx, req, msgNoUsers)
		return
	}
	b.reply(ctx, req, renderUsers(users, b.codeBlocks))
}

func (b *Bot) whoami(ctx context.Context, req request) {
	profile, err := b.directory.Profile(ctx, req.msg.User)
	if err != nil {
		req.logger.Error("failed to get profile", slog.String("error", err.Error()))
		b.reply(ctx, req, msgGenericFailure)
		return
	}
	b.reply(ctx, req, profile.DisplayName)
}
