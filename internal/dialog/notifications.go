package dialog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"reportbot/internal/notify"
	"reportbot/internal/schedule"
	kit "reportbot/internal/transport"
	"reportbot/pkg/logx"
)

// beginNotifications handles /notifications. In private chats with no
// arguments it opens the guided flow; in groups it requires admin rights
// and, since group chatter would drown a multi-step dialog, accepts the
// whole registration as command arguments instead.
func (c *Controller) beginNotifications(ctx context.Context, t Turn, args []string) turnResult {
	if t.Kind == kit.ChatGroup {
		role, err := c.membership.MemberRole(ctx, t.ChatID, t.UserID)
		if err != nil {
			c.log.Warn("member role lookup failed",
				logx.Int64("chat_id", t.ChatID),
				logx.Int64("user_id", t.UserID),
				logx.Err(err))
			return c.idle(textMsg(msgAdminOnly))
		}
		if !role.IsAdmin() {
			return c.idle(textMsg(msgAdminOnly))
		}
		if len(args) == 0 {
			return c.idle(textMsg(msgGroupNotifyHint))
		}
	}

	if len(args) > 0 {
		if normalizeChoice(args[0]) == "manage" {
			res := c.enterManage(t.ChatID)
			if res.sess.state == StateManageNotifications && len(args) > 1 {
				res = c.stepManage(t, strings.Join(args[1:], " "))
			}
			if t.Kind == kit.ChatGroup && res.sess.state != StateIdle {
				res.sess = idleSession(c.clock.Now())
			}
			return res
		}
		return c.chainNotifyArgs(t, args)
	}

	return turnResult{
		sess: session{state: StateNotifyCategory},
		msgs: []outbound{textMsg(promptNotifyCategoryMenu(c.reg.Names()))},
	}
}

// chainNotifyArgs replays command arguments through the same steps a
// guided dialog would take: args[0] is the category answer, the rest is
// the period answer. Any step failing ends the attempt where the dialog
// would have waited.
func (c *Controller) chainNotifyArgs(t Turn, args []string) turnResult {
	res := c.stepNotifyCategoryChoice(t, args[0])
	if res.sess.state == StateNotifyPeriod && len(args) > 1 {
		res = c.stepNotifyPeriod(t, res.sess, args[1:])
	}
	if t.Kind == kit.ChatGroup && res.sess.state != StateIdle {
		// groups never park mid-flow; restate the one-line usage
		res.sess = idleSession(c.clock.Now())
		res.msgs = []outbound{textMsg(msgGroupNotifyHint)}
	}
	return res
}

func (c *Controller) stepNotifyCategory(ctx context.Context, t Turn, text string) turnResult {
	choice := normalizeChoice(text)
	switch choice {
	case "cancel":
		return c.idle(textMsg(msgCancelled))
	case "manage":
		return c.enterManage(t.ChatID)
	}
	return c.stepNotifyCategoryChoice(t, text)
}

func (c *Controller) stepNotifyCategoryChoice(t Turn, text string) turnResult {
	name := normalizeChoice(text)
	if _, err := c.reg.Lookup(name); err != nil {
		return turnResult{
			sess: session{state: StateNotifyCategory},
			msgs: []outbound{textMsg(unknownCategoryReprompt(promptNotifyCategoryMenu(c.reg.Names())))},
		}
	}
	return turnResult{
		sess: session{state: StateNotifyPeriod, category: name},
		msgs: []outbound{textMsg(promptPeriod(name))},
	}
}

func (c *Controller) stepNotifyPeriod(t Turn, sess session, tokens []string) turnResult {
	if len(tokens) > 0 {
		switch normalizeChoice(strings.Join(tokens, " ")) {
		case "cancel":
			return c.idle(textMsg(msgCancelled))
		case "go back":
			return turnResult{
				sess: session{state: StateNotifyCategory},
				msgs: []outbound{textMsg(promptNotifyCategoryMenu(c.reg.Names()))},
			}
		}
	}

	rec, err := schedule.ParseRecurrence(tokens)
	if err != nil {
		return turnResult{
			sess: sess,
			msgs: []outbound{textMsg(parseErrorMessage(err))},
		}
	}

	n, err := c.notifs.Add(t.ChatID, sess.category, rec, humanView(rec))
	if err != nil {
		if errors.Is(err, notify.ErrDuplicateCategory) {
			return c.idle(textMsg(duplicateCategoryMessage(sess.category)))
		}
		c.log.Error("notification add failed",
			logx.Int64("chat_id", t.ChatID),
			logx.String("category", sess.category),
			logx.Err(err))
		return c.idle(textMsg(msgPersistFailed))
	}

	next, _ := c.notifs.NextFire(n)
	chatID, category := t.ChatID, sess.category
	return turnResult{
		sess: idleSession(c.clock.Now()),
		msgs: []outbound{textMsg(confirmRegistration(category, n.HumanView, next))},
		rollback: func() {
			c.notifs.RemoveCategory(chatID, category)
		},
	}
}

func (c *Controller) enterManage(chatID int64) turnResult {
	list := c.notifs.List(chatID)
	if len(list) == 0 {
		return c.idle(textMsg(msgNoNotifications))
	}
	return turnResult{
		sess: session{state: StateManageNotifications},
		msgs: []outbound{textMsg(formatNotificationList(list))},
	}
}

func (c *Controller) stepManage(t Turn, text string) turnResult {
	switch normalizeChoice(text) {
	case "cancel", "go back":
		return c.idle(textMsg(msgCancelled))
	case "remove all":
		removed := c.notifs.RemoveAll(t.ChatID)
		chatID := t.ChatID
		res := c.idle(textMsg(removedAllMessage(len(removed))))
		res.rollback = func() {
			for _, n := range removed {
				c.notifs.Add(chatID, n.Category, n.Recurrence, n.HumanView)
			}
		}
		return res
	}

	idx, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return turnResult{
			sess: session{state: StateManageNotifications},
			msgs: []outbound{textMsg(indexRangeHint(c.notifs.Len(t.ChatID)))},
		}
	}
	removed, err := c.notifs.RemoveAt(t.ChatID, idx)
	if err != nil {
		return turnResult{
			sess: session{state: StateManageNotifications},
			msgs: []outbound{textMsg(indexRangeHint(c.notifs.Len(t.ChatID)))},
		}
	}

	chatID := t.ChatID
	res := c.idle(textMsg(removedOneMessage(removed)))
	res.rollback = func() {
		c.notifs.Add(chatID, removed.Category, removed.Recurrence, removed.HumanView)
	}
	return res
}
