package overlay

import (
	"time"

	"github.com/kkkz76/askvox/core/conversation"
	"github.com/kkkz76/askvox/core/events"
	"github.com/kkkz76/askvox/core/vad"
)

// Avatar is the visual state the front-end animates.
type Avatar struct {
	Awake bool
	// Thinking is true while a response streams.
	Thinking bool
	Visible  bool
}

func (o *Overlay) Avatar() Avatar {
	o.avatarMu.RLock()
	defer o.avatarMu.RUnlock()
	return o.avatar
}

func (o *Overlay) setAvatar(update func(*Avatar)) {
	o.avatarMu.Lock()
	next := o.avatar
	update(&next)
	changed := next != o.avatar
	o.avatar = next
	o.avatarMu.Unlock()

	if changed {
		o.publishAvatar()
	}
}

func (o *Overlay) publishAvatar() {
	avatar := o.Avatar()
	o.publish(events.NewAvatarUpdated(avatar.Awake, avatar.Thinking, avatar.Visible))
}

func (o *Overlay) wake() {
	o.publish(events.NewOverlayWake())
	o.sleep.stop()
	o.setAvatar(func(a *Avatar) {
		a.Awake = true
		a.Visible = true
	})

	if err := o.startCapture(); err != nil {
		logger.Warn("wake could not start listening", "error", err)
	}
}

func (o *Overlay) toggleVisibility() {
	o.setAvatar(func(a *Avatar) { a.Visible = !a.Visible })
	o.publish(events.NewOverlayVisibilityToggled(o.Avatar().Visible))
}

// updateThinking follows the conversation state. Falling back to idle after
// a request puts the avatar to sleep once the sleep delay passes.
func (o *Overlay) updateThinking(state conversation.State) {
	wasBusy := o.lastState != conversation.StateIdle
	o.lastState = state

	thinking := state == conversation.StateStreaming
	o.setAvatar(func(a *Avatar) { a.Thinking = thinking })

	if wasBusy && state == conversation.StateIdle {
		o.sleep.arm(o.loopScheduler("avatar sleep"), o.sleepDelay, func() {
			o.setAvatar(func(a *Avatar) { a.Awake = false })
		})
	}
}

// sleepTimer is a single pending sleep. Arming replaces the pending one.
type sleepTimer struct {
	token  uint64
	cancel func()
}

func (t *sleepTimer) arm(scheduler vad.Scheduler, delay time.Duration, fn func()) {
	t.stop()
	token := t.token
	t.cancel = scheduler.AfterFunc(delay, func() {
		if t.token != token || t.cancel == nil {
			return
		}
		t.cancel = nil
		fn()
	})
}

func (t *sleepTimer) stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.token++
}
