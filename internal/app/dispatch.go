package app

import (
	"context"
	"hash/maphash"
	"runtime/debug"
	"sync"

	"reportbot/internal/dialog"
	kit "reportbot/internal/transport"
	"reportbot/pkg/logx"
)

const dispatchShards = 8

// dispatcher fans inbound updates out to a fixed set of shard workers,
// keyed by chat id. A chat always lands on the same shard, so its turns
// run strictly in arrival order; different chats proceed in parallel.
type dispatcher struct {
	ctrl *dialog.Controller
	log  logx.Logger

	shards [dispatchShards]chan dialog.Turn
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func newDispatcher(ctrl *dialog.Controller, log logx.Logger) *dispatcher {
	d := &dispatcher{ctrl: ctrl, log: log}
	for i := range d.shards {
		d.shards[i] = make(chan dialog.Turn, 64)
	}
	return d
}

func (d *dispatcher) start(ctx context.Context, updates <-chan kit.Update) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := range d.shards {
		d.wg.Add(1)
		go func(ch <-chan dialog.Turn) {
			defer d.wg.Done()
			for {
				select {
				case <-runCtx.Done():
					return
				case t, ok := <-ch:
					if !ok {
						return
					}
					d.handle(runCtx, t)
				}
			}
		}(d.shards[i])
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				t, ok := turnFromUpdate(u)
				if !ok {
					continue
				}
				select {
				case d.shards[shardFor(t.ChatID)] <- t:
				case <-runCtx.Done():
					return
				}
			}
		}
	}()
}

func (d *dispatcher) stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *dispatcher) handle(ctx context.Context, t dialog.Turn) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("turn panicked",
				logx.Int64("chat_id", t.ChatID),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())))
		}
	}()
	if err := d.ctrl.HandleTurn(ctx, t); err != nil && ctx.Err() == nil {
		d.log.Warn("turn failed", logx.Int64("chat_id", t.ChatID), logx.Err(err))
	}
}

func turnFromUpdate(u kit.Update) (dialog.Turn, bool) {
	if u.Kind != kit.UpdateMessage || u.Message == nil {
		return dialog.Turn{}, false
	}
	m := u.Message
	return dialog.Turn{
		ChatID: m.ChatID,
		Kind:   m.ChatKind,
		UserID: m.FromID,
		Text:   m.Text,
	}, true
}

var shardSeed = maphash.MakeSeed()

func shardFor(chatID int64) int {
	var h maphash.Hash
	h.SetSeed(shardSeed)
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(chatID >> (8 * i))
	}
	_, _ = h.Write(b[:])
	return int(h.Sum64() % dispatchShards)
}
