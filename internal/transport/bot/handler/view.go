package handler

const (
	StartMessage = `👋 <b>Панель администратора</b>

/status — состояние планировщика
/jobs — фоновые задачи
/run <code>job</code> — запустить задачу вне расписания
/startjobs, /stopjobs — включить или выключить расписание

/user <code>ID</code> — карточка пользователя
/ban <code>ID</code>, /unban <code>ID</code>
/addbalance <code>ID</code> <code>TON</code> — ручное пополнение
/broadcast <code>текст</code> — рассылка всем пользователям`

	UsageUser       = "❌ Использование: /user <code>ID</code>"
	UsageBan        = "❌ Использование: /ban <code>ID</code>"
	UsageUnban      = "❌ Использование: /unban <code>ID</code>"
	UsageAddBalance = "❌ Использование: /addbalance <code>ID</code> <code>TON</code>"
	UsageRun        = "❌ Использование: /run <code>job</code>"
	UsageBroadcast  = "❌ Использование: /broadcast <code>текст</code>"

	UserNotFound  = "⚠️ Пользователь <code>%d</code> не найден"
	UserBanned    = "🚫 Пользователь <code>%d</code> заблокирован"
	UserUnbanned  = "✅ Пользователь <code>%d</code> разблокирован"
	BalanceAdded  = "✅ Зачислено %s TON пользователю <code>%d</code>\n💰 Баланс: %s TON"
	InvalidAmount = "❌ Сумма должна быть положительным числом"

	JobDone    = "✅ Задача <code>%s</code> выполнена"
	JobFailed  = "❌ Задача <code>%s</code>: %s"
	JobUnknown = "⚠️ Нет задачи <code>%s</code>. Доступны: %s"

	BroadcastStarted  = "📣 Рассылка запущена"
	BroadcastFinished = "📣 Рассылка завершена\n✅ Доставлено: %d\n⚠️ Не доставлено: %d"

	SchedulerStarted        = "▶️ Расписание запущено"
	SchedulerStopped        = "⏹ Расписание остановлено"
	SchedulerAlreadyRunning = "Расписание уже работает!"
	SchedulerNotRunning     = "Расписание не запущено!"

	InternalError = "❌ Ошибка: %s"
)
