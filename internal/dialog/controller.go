package dialog

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"reportbot/internal/content"
	"reportbot/internal/notify"
	"reportbot/internal/schedule"
	"reportbot/internal/storage"
	kit "reportbot/internal/transport"
	"reportbot/pkg/logx"
)

// Turn is one inbound user message, already reduced to what the state
// machine needs.
type Turn struct {
	ChatID int64
	Kind   kit.ChatKind
	UserID int64
	Text   string
}

// Sender is the outbound slice of the transport adapter.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
	SendPhoto(ctx context.Context, to kit.ChatTarget, imagePath, caption string, opt *kit.SendOptions) (kit.MessageRef, error)
}

// Membership answers the group admin check. External collaborator; the
// controller never caches roles.
type Membership interface {
	MemberRole(ctx context.Context, chatID, userID int64) (kit.Role, error)
}

// outbound is one queued reply: either plain text or a content reference.
type outbound struct {
	text string
	ref  *content.Reference
}

func textMsg(s string) outbound           { return outbound{text: s} }
func refMsg(r content.Reference) outbound { return outbound{ref: &r} }

// turnResult is the computed effect of one turn: the next session, the
// replies to deliver once the new state is safely persisted, and an
// optional undo for side effects already applied to the notification
// store (used when the persist fails).
type turnResult struct {
	sess     session
	msgs     []outbound
	rollback func()
}

// Controller drives every guided flow: it validates input against the
// chat's current state, produces the next state, and calls into the
// dispatch table, recurrence parser, notification store and scheduler.
//
// The transport serializes turns per chat, so the internal lock only
// guards the session map; cross-cutting invariants live in the
// notification store's per-chat critical sections.
type Controller struct {
	log        logx.Logger
	reg        *content.Registry
	notifs     *notify.Store
	store      storage.Store
	sender     Sender
	membership Membership
	clock      schedule.Clock
	limiter    *rate.Limiter

	mu    sync.Mutex
	chats map[int64]session
}

func New(reg *content.Registry, notifs *notify.Store, store storage.Store,
	sender Sender, membership Membership, clock schedule.Clock, log logx.Logger) *Controller {
	if clock == nil {
		clock = schedule.SystemClock()
	}
	return &Controller{
		log:        log,
		reg:        reg,
		notifs:     notifs,
		store:      store,
		sender:     sender,
		membership: membership,
		clock:      clock,
		// Telegram tolerates ~30 msg/s per bot; stay under it.
		limiter: rate.NewLimiter(rate.Limit(20), 20),
		chats:   map[int64]session{},
	}
}

func (c *Controller) session(chatID int64) session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.chats[chatID]
	if !ok {
		return idleSession(c.clock.Now())
	}
	return s
}

func (c *Controller) setSession(chatID int64, s session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.state == StateIdle {
		// idle carries no scratch
		s.category = ""
	}
	c.chats[chatID] = s
}

// Seed installs a persisted dialog position at startup.
func (c *Controller) Seed(chatID int64, rec storage.ChatRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats[chatID] = session{
		state:     parseState(rec.State),
		category:  rec.Category,
		updatedAt: rec.UpdatedAt,
	}
}

// HandleTurn processes one inbound message and sends every reply it
// produces. The returned error reports delivery/persistence trouble;
// user mistakes never surface as errors.
func (c *Controller) HandleTurn(ctx context.Context, t Turn) error {
	if t.Kind == kit.ChatOther {
		return c.send(ctx, t.ChatID, textMsg(msgUnsupportedChat))
	}
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return nil
	}

	res := c.dispatch(ctx, t, c.session(t.ChatID), text)
	res.sess.updatedAt = c.clock.Now()

	if err := c.store.SaveChat(ctx, t.ChatID, c.buildRecord(t.ChatID, res.sess)); err != nil {
		// Leave the dialog where it was so the user can retry; undo
		// whatever the transition already did to the schedules.
		c.log.Error("chat record persist failed",
			logx.Int64("chat_id", t.ChatID),
			logx.String("state", string(res.sess.state)),
			logx.Err(err))
		if res.rollback != nil {
			res.rollback()
		}
		return c.send(ctx, t.ChatID, textMsg(msgPersistFailed))
	}

	c.setSession(t.ChatID, res.sess)
	return c.send(ctx, t.ChatID, res.msgs...)
}

func (c *Controller) dispatch(ctx context.Context, t Turn, sess session, text string) turnResult {
	if strings.HasPrefix(text, "/") {
		return c.command(ctx, t, text)
	}

	switch sess.state {
	case StateNotifyCategory:
		return c.stepNotifyCategory(ctx, t, text)
	case StateNotifyPeriod:
		return c.stepNotifyPeriod(t, sess, strings.Fields(text))
	case StateManageNotifications:
		return c.stepManage(t, text)
	case StateExploreCategory:
		return c.stepExploreCategory(ctx, t, text)
	case StateExploreTarget:
		return c.stepExploreTarget(ctx, t, sess, text)
	case StateHistoryCategory:
		return c.stepHistoryCategory(t, text)
	case StateHistoryPeriod:
		return c.stepHistoryPeriod(ctx, t, sess, text)
	default:
		return c.idle(textMsg(msgIdleHint))
	}
}

func (c *Controller) command(ctx context.Context, t Turn, text string) turnResult {
	fields := strings.Fields(text)
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	// groups address commands as /cmd@botname
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	args := fields[1:]

	switch cmd {
	case "start", "help":
		return c.idle(textMsg(msgHelp))
	case "cancel":
		return c.idle(textMsg(msgCancelled))
	case "explore":
		return c.beginExplore(ctx, t, args)
	case "history":
		return c.beginHistory(ctx, t, args)
	case "notifications":
		return c.beginNotifications(ctx, t, args)
	default:
		// unknown command leaves the current dialog untouched
		return turnResult{sess: c.session(t.ChatID), msgs: []outbound{textMsg(msgUnknownCommand)}}
	}
}

// idle is the canonical "flow finished" result.
func (c *Controller) idle(msgs ...outbound) turnResult {
	return turnResult{sess: idleSession(c.clock.Now()), msgs: msgs}
}

func (c *Controller) buildRecord(chatID int64, s session) storage.ChatRecord {
	saved := c.notifs.Export(chatID)
	recs := make([]storage.NotificationRecord, 0, len(saved))
	for _, sv := range saved {
		recs = append(recs, storage.NotificationRecord{
			Category:  sv.Category,
			Unit:      string(sv.Recurrence.Unit),
			Count:     sv.Recurrence.Count,
			TimeOfDay: sv.Recurrence.TimeOfDay,
			HumanView: sv.HumanView,
		})
	}
	return storage.ChatRecord{
		State:         string(s.state),
		Category:      s.category,
		Notifications: recs,
		UpdatedAt:     s.updatedAt,
	}
}

// SavedFromRecord converts persisted notification rows back into the
// store's restore shape.
func SavedFromRecord(rec storage.ChatRecord) []notify.Saved {
	out := make([]notify.Saved, 0, len(rec.Notifications))
	for _, n := range rec.Notifications {
		out = append(out, notify.Saved{
			Category: n.Category,
			Recurrence: schedule.Recurrence{
				Unit:      schedule.Unit(n.Unit),
				Count:     n.Count,
				TimeOfDay: n.TimeOfDay,
			},
			HumanView: n.HumanView,
		})
	}
	return out
}

// DeliverSnapshot produces and delivers the category's current snapshot
// to the chat. It backs both on-demand requests and scheduled fires.
func (c *Controller) DeliverSnapshot(ctx context.Context, chatID int64, category string) error {
	h, err := c.reg.Lookup(category)
	if err != nil {
		return err
	}
	ref, err := h.Snapshot(ctx, chatID)
	if err != nil {
		return err
	}
	return c.send(ctx, chatID, refMsg(ref))
}

// ResetStale returns every dialog stuck in a non-idle state for longer
// than maxAge back to idle. Driven by the maintenance cron.
func (c *Controller) ResetStale(ctx context.Context, maxAge time.Duration) int {
	now := c.clock.Now()
	cutoff := now.Add(-maxAge)

	c.mu.Lock()
	var stale []int64
	for id, s := range c.chats {
		if s.state != StateIdle && s.updatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	c.mu.Unlock()

	reset := 0
	for _, id := range stale {
		next := idleSession(now)
		if err := c.store.SaveChat(ctx, id, c.buildRecord(id, next)); err != nil {
			c.log.Warn("stale dialog reset persist failed",
				logx.Int64("chat_id", id), logx.Err(err))
			continue
		}
		c.setSession(id, next)
		reset++
	}
	if reset > 0 {
		c.log.Info("stale dialogs reset", logx.Int("count", reset))
	}
	return reset
}

func (c *Controller) send(ctx context.Context, chatID int64, msgs ...outbound) error {
	to := kit.ChatTarget{ChatID: chatID}
	var firstErr error
	for _, m := range msgs {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		if m.ref != nil {
			if m.ref.ImagePath != "" {
				_, err = c.sender.SendPhoto(ctx, to, m.ref.ImagePath, m.ref.Caption, nil)
			} else {
				_, err = c.sender.SendText(ctx, to, m.ref.Caption, nil)
			}
		} else {
			_, err = c.sender.SendText(ctx, to, m.text, &kit.SendOptions{DisablePreview: true})
		}
		if err != nil {
			c.log.Warn("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
