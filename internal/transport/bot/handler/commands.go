package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"gift_market/internal/domain"
	"gift_market/internal/worker"
	"gift_market/pkg/logx"
)

func (h *Handler) OnStart(ctx *th.Context, msg telego.Message) error {
	return h.sendHTML(ctx, msg.Chat.ID, StartMessage)
}

func (h *Handler) OnStatus(ctx *th.Context, msg telego.Message) error {
	status := "🔴 остановлено"
	if h.scheduler.IsRunning() {
		status = "🟢 работает"
	}

	text := fmt.Sprintf("📊 <b>Статус системы</b>\n\n⏱ <b>Расписание:</b> %s\n📦 <b>Задач:</b> %d",
		status,
		len(h.scheduler.Jobs()),
	)

	return h.sendHTML(ctx, msg.Chat.ID, text)
}

func (h *Handler) OnJobs(ctx *th.Context, msg telego.Message) error {
	var sb strings.Builder
	sb.WriteString("📋 <b>Фоновые задачи</b>\n\n")

	for i, name := range h.scheduler.Jobs() {
		fmt.Fprintf(&sb, "%d. <code>%s</code>\n", i+1, name)
	}

	return h.sendHTML(ctx, msg.Chat.ID, sb.String())
}

// OnRun запускает задачу вне расписания.
// Использование: /run deposits
func (h *Handler) OnRun(ctx *th.Context, msg telego.Message) error {
	args, err := commandArgs(msg.Text, 1)
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID, UsageRun)
	}

	name := args[0]

	err = h.scheduler.RunJob(ctx, name)
	switch {
	case errors.Is(err, worker.ErrUnknownJob):
		return h.sendHTML(ctx, msg.Chat.ID,
			fmt.Sprintf(JobUnknown, html.EscapeString(name), strings.Join(h.scheduler.Jobs(), ", ")))
	case err != nil:
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(JobFailed, name, html.EscapeString(err.Error())))
	}

	return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(JobDone, name))
}

func (h *Handler) OnStartJobs(ctx *th.Context, msg telego.Message) error {
	if h.scheduler.IsRunning() {
		return h.send(ctx, msg.Chat.ID, SchedulerAlreadyRunning)
	}

	// Расписание живёт дольше обработки команды.
	if err := h.scheduler.Start(context.WithoutCancel(ctx)); err != nil {
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(InternalError, html.EscapeString(err.Error())))
	}

	logger(ctx).Info("scheduler started by admin", slog.Int64("admin_id", msg.From.ID))

	return h.send(ctx, msg.Chat.ID, SchedulerStarted)
}

func (h *Handler) OnStopJobs(ctx *th.Context, msg telego.Message) error {
	if !h.scheduler.IsRunning() {
		return h.send(ctx, msg.Chat.ID, SchedulerNotRunning)
	}

	h.scheduler.Stop()

	logger(ctx).Info("scheduler stopped by admin", slog.Int64("admin_id", msg.From.ID))

	return h.send(ctx, msg.Chat.ID, SchedulerStopped)
}

// OnUser показывает карточку пользователя.
// Использование: /user 123456789
func (h *Handler) OnUser(ctx *th.Context, msg telego.Message) error {
	userID, ok := h.userArg(msg, 1)
	if !ok {
		return h.sendHTML(ctx, msg.Chat.ID, UsageUser)
	}

	profile, err := h.accounts.Profile(ctx, userID)
	if err != nil {
		return h.replyError(ctx, msg.Chat.ID, userID, err)
	}

	return h.sendHTML(ctx, msg.Chat.ID, renderUser(profile))
}

func (h *Handler) OnBan(ctx *th.Context, msg telego.Message) error {
	return h.setBanned(ctx, msg, true)
}

func (h *Handler) OnUnban(ctx *th.Context, msg telego.Message) error {
	return h.setBanned(ctx, msg, false)
}

func (h *Handler) setBanned(ctx *th.Context, msg telego.Message, banned bool) error {
	userID, ok := h.userArg(msg, 1)
	if !ok {
		if banned {
			return h.sendHTML(ctx, msg.Chat.ID, UsageBan)
		}
		return h.sendHTML(ctx, msg.Chat.ID, UsageUnban)
	}

	if err := h.accounts.SetBanned(ctx, userID, banned); err != nil {
		return h.replyError(ctx, msg.Chat.ID, userID, err)
	}

	if banned {
		return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(UserBanned, userID))
	}
	return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(UserUnbanned, userID))
}

// OnAddBalance зачисляет TON вручную.
// Использование: /addbalance 123456789 1.5
func (h *Handler) OnAddBalance(ctx *th.Context, msg telego.Message) error {
	args, err := commandArgs(msg.Text, 2)
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID, UsageAddBalance)
	}

	userID, err := parseUserID(args[0])
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID, UsageAddBalance)
	}

	amount, err := parseAmount(args[1])
	if err != nil {
		return h.send(ctx, msg.Chat.ID, InvalidAmount)
	}

	balance, err := h.accounts.Credit(ctx, userID, amount)
	if err != nil {
		return h.replyError(ctx, msg.Chat.ID, userID, err)
	}

	logger(ctx).Info("balance added by admin",
		slog.Int64("admin_id", msg.From.ID),
		slog.Int64(logx.FieldUserID, userID),
		logx.Money(logx.FieldAmount, amount),
	)

	return h.sendHTML(ctx, msg.Chat.ID, fmt.Sprintf(BalanceAdded, amount.String(), userID, balance.String()))
}

// OnBroadcast рассылает текст всем пользователям в фоне и присылает итог.
// Использование: /broadcast текст
func (h *Handler) OnBroadcast(ctx *th.Context, msg telego.Message) error {
	text, err := commandText(msg.Text)
	if err != nil {
		return h.sendHTML(ctx, msg.Chat.ID, UsageBroadcast)
	}

	bot := ctx.Bot()
	bg := context.WithoutCancel(ctx)

	logger(ctx).Info("broadcast started by admin", slog.Int64("admin_id", msg.From.ID))

	go func() {
		res, err := h.accounts.Broadcast(bg, text)

		report := fmt.Sprintf(BroadcastFinished, res.Sent, res.Failed)
		if err != nil {
			logger(bg).Error("broadcast", logx.Error(err))
			report = fmt.Sprintf(InternalError, html.EscapeString(err.Error()))
		}

		if _, err := bot.SendMessage(bg, &telego.SendMessageParams{
			ChatID:    telego.ChatID{ID: msg.Chat.ID},
			Text:      report,
			ParseMode: telego.ModeHTML,
		}); err != nil {
			logger(bg).Warn("broadcast report", logx.Error(err))
		}
	}()

	return h.send(ctx, msg.Chat.ID, BroadcastStarted)
}

// Вспомогательные методы

func (h *Handler) userArg(msg telego.Message, n int) (int64, bool) {
	args, err := commandArgs(msg.Text, n)
	if err != nil {
		return 0, false
	}

	userID, err := parseUserID(args[0])
	if err != nil {
		return 0, false
	}

	return userID, true
}

func (h *Handler) replyError(ctx *th.Context, chatID, userID int64, err error) error {
	if domain.KindOf(err) == domain.KindNotFound {
		return h.sendHTML(ctx, chatID, fmt.Sprintf(UserNotFound, userID))
	}

	logger(ctx).Error("admin command failed", slog.Int64(logx.FieldUserID, userID), logx.Error(err))

	return h.sendHTML(ctx, chatID, fmt.Sprintf(InternalError, html.EscapeString(err.Error())))
}

func (h *Handler) sendHTML(ctx *th.Context, chatID int64, text string) error {
	_, err := ctx.Bot().SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: telego.ModeHTML,
	})
	return err
}

func (h *Handler) send(ctx *th.Context, chatID int64, text string) error {
	_, err := ctx.Bot().SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	return err
}
