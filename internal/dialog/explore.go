package dialog

import (
	"context"

	"reportbot/internal/content"
	"reportbot/pkg/logx"
)

func (c *Controller) beginExplore(ctx context.Context, t Turn, args []string) turnResult {
	if len(args) > 0 {
		res := c.stepExploreCategory(ctx, t, args[0])
		if res.sess.state == StateExploreTarget && len(args) > 1 {
			return c.stepExploreTarget(ctx, t, res.sess, args[1])
		}
		return res
	}
	return turnResult{
		sess: session{state: StateExploreCategory},
		msgs: []outbound{textMsg(promptCategoryMenu("explore", c.reg.Names()))},
	}
}

func (c *Controller) stepExploreCategory(ctx context.Context, t Turn, text string) turnResult {
	name := normalizeChoice(text)
	if name == "cancel" {
		return c.idle(textMsg(msgCancelled))
	}
	h, err := c.reg.Lookup(name)
	if err != nil {
		return turnResult{
			sess: session{state: StateExploreCategory},
			msgs: []outbound{textMsg(unknownCategoryReprompt(promptCategoryMenu("explore", c.reg.Names())))},
		}
	}

	// Categories without sub-targets answer in one step.
	ep, ok := h.(content.ExploreProvider)
	if !ok {
		return c.snapshotNow(ctx, t.ChatID, name)
	}
	return turnResult{
		sess: session{state: StateExploreTarget, category: name},
		msgs: []outbound{textMsg(promptTargets(name, ep.Targets()))},
	}
}

func (c *Controller) stepExploreTarget(ctx context.Context, t Turn, sess session, text string) turnResult {
	choice := normalizeChoice(text)
	switch choice {
	case "cancel":
		return c.idle(textMsg(msgCancelled))
	case "go back":
		return turnResult{
			sess: session{state: StateExploreCategory},
			msgs: []outbound{textMsg(promptCategoryMenu("explore", c.reg.Names()))},
		}
	}

	h, err := c.reg.Lookup(sess.category)
	if err != nil {
		// category vanished from the registry between steps
		return c.idle(textMsg(msgIdleHint))
	}
	ep, ok := h.(content.ExploreProvider)
	if !ok {
		return c.snapshotNow(ctx, t.ChatID, sess.category)
	}

	valid := false
	for _, target := range ep.Targets() {
		if target == choice {
			valid = true
			break
		}
	}
	if !valid {
		return turnResult{
			sess: sess,
			msgs: []outbound{textMsg(promptTargets(sess.category, ep.Targets()))},
		}
	}

	ref, err := ep.Explore(ctx, t.ChatID, choice)
	if err != nil {
		c.log.Warn("explore failed",
			logx.Int64("chat_id", t.ChatID),
			logx.String("category", sess.category),
			logx.String("target", choice),
			logx.Err(err))
		return c.idle(textMsg(contentUnavailableMessage(sess.category)))
	}
	return c.idle(refMsg(ref))
}

func (c *Controller) snapshotNow(ctx context.Context, chatID int64, category string) turnResult {
	h, err := c.reg.Lookup(category)
	if err != nil {
		return c.idle(textMsg(msgIdleHint))
	}
	ref, err := h.Snapshot(ctx, chatID)
	if err != nil {
		c.log.Warn("snapshot failed",
			logx.Int64("chat_id", chatID),
			logx.String("category", category),
			logx.Err(err))
		return c.idle(textMsg(contentUnavailableMessage(category)))
	}
	return c.idle(refMsg(ref))
}
