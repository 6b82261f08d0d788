package handler

import (
	th "github.com/mymmrac/telego/telegohandler"

	"gift_market/internal/transport/bot/middleware"
)

func (h *Handler) RegisterRoutes(bh *th.BotHandler, admins []int64) {
	adminGroup := bh.Group(th.AnyMessage())
	adminGroup.Use(middleware.AdminOnly(admins))

	adminGroup.HandleMessage(h.OnStart, th.CommandEqual("start"))
	adminGroup.HandleMessage(h.OnStatus, th.CommandEqual("status"))

	// Планировщик
	adminGroup.HandleMessage(h.OnJobs, th.CommandEqual("jobs"))
	adminGroup.HandleMessage(h.OnRun, th.CommandEqual("run"))
	adminGroup.HandleMessage(h.OnStartJobs, th.CommandEqual("startjobs"))
	adminGroup.HandleMessage(h.OnStopJobs, th.CommandEqual("stopjobs"))

	// Пользователи
	adminGroup.HandleMessage(h.OnUser, th.CommandEqual("user"))
	adminGroup.HandleMessage(h.OnBan, th.CommandEqual("ban"))
	adminGroup.HandleMessage(h.OnUnban, th.CommandEqual("unban"))
	adminGroup.HandleMessage(h.OnAddBalance, th.CommandEqual("addbalance"))
	adminGroup.HandleMessage(h.OnBroadcast, th.CommandEqual("broadcast"))
}
