package dialog

import (
	"context"
	"strconv"
	"strings"

	"reportbot/internal/content"
	"reportbot/pkg/logx"
)

func (c *Controller) beginHistory(ctx context.Context, t Turn, args []string) turnResult {
	if len(args) > 0 {
		res := c.stepHistoryCategory(t, args[0])
		if res.sess.state == StateHistoryPeriod && len(args) > 1 {
			return c.stepHistoryPeriod(ctx, t, res.sess, strings.Join(args[1:], " "))
		}
		return res
	}
	return turnResult{
		sess: session{state: StateHistoryCategory},
		msgs: []outbound{textMsg(promptCategoryMenu("see the history of", c.historyNames()))},
	}
}

// historyNames lists only the categories that can render a history.
func (c *Controller) historyNames() []string {
	var names []string
	for _, name := range c.reg.Names() {
		h, err := c.reg.Lookup(name)
		if err != nil {
			continue
		}
		if _, ok := h.(content.HistoryProvider); ok {
			names = append(names, name)
		}
	}
	return names
}

func (c *Controller) stepHistoryCategory(t Turn, text string) turnResult {
	name := normalizeChoice(text)
	if name == "cancel" {
		return c.idle(textMsg(msgCancelled))
	}
	h, err := c.reg.Lookup(name)
	if err == nil {
		_, err = asHistory(h)
	}
	if err != nil {
		return turnResult{
			sess: session{state: StateHistoryCategory},
			msgs: []outbound{textMsg(unknownCategoryReprompt(promptCategoryMenu("see the history of", c.historyNames())))},
		}
	}
	return turnResult{
		sess: session{state: StateHistoryPeriod, category: name},
		msgs: []outbound{textMsg(promptHistoryPeriod(name))},
	}
}

func (c *Controller) stepHistoryPeriod(ctx context.Context, t Turn, sess session, text string) turnResult {
	choice := normalizeChoice(text)
	switch choice {
	case "cancel":
		return c.idle(textMsg(msgCancelled))
	case "go back":
		return turnResult{
			sess: session{state: StateHistoryCategory},
			msgs: []outbound{textMsg(promptCategoryMenu("see the history of", c.historyNames()))},
		}
	}

	days, ok := parseHistoryPeriod(choice)
	if !ok {
		return turnResult{
			sess: sess,
			msgs: []outbound{textMsg(promptHistoryPeriod(sess.category))},
		}
	}

	h, err := c.reg.Lookup(sess.category)
	if err != nil {
		return c.idle(textMsg(msgIdleHint))
	}
	hp, err := asHistory(h)
	if err != nil {
		return c.idle(textMsg(msgIdleHint))
	}

	ref, err := hp.History(ctx, t.ChatID, days)
	if err != nil {
		c.log.Warn("history failed",
			logx.Int64("chat_id", t.ChatID),
			logx.String("category", sess.category),
			logx.Int("days", days),
			logx.Err(err))
		return c.idle(textMsg(contentUnavailableMessage(sess.category)))
	}
	return c.idle(refMsg(ref))
}

func asHistory(h content.Handler) (content.HistoryProvider, error) {
	hp, ok := h.(content.HistoryProvider)
	if !ok {
		return nil, content.ErrUnknownCategory
	}
	return hp, nil
}

// parseHistoryPeriod turns the user's answer into a day count; zero
// means the provider's full range.
func parseHistoryPeriod(s string) (int, bool) {
	switch s {
	case "all", "all time", "all-time", "alltime":
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
