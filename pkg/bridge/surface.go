package bridge

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"mapstick/pkg/camera"
	"mapstick/pkg/dispatch"
	"mapstick/pkg/gamepad"
	"mapstick/pkg/geo"
	"mapstick/pkg/inputctx"
)

var (
	_ camera.Surface        = (*Bridge)(nil)
	_ gamepad.Device        = (*Bridge)(nil)
	_ inputctx.UISource     = (*Bridge)(nil)
	_ dispatch.UI           = (*Bridge)(nil)
	_ dispatch.Integrations = (*Bridge)(nil)
	_ dispatch.Geolocator   = (*Bridge)(nil)
)

// handle applies one inbound message. State messages update the mirror
// directly; events that drive the controller go through the post func.
func (b *Bridge) handle(msg Message) error {
	switch msg.Type {
	case InGamepad:
		var d gamepadData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return err
		}
		snap := gamepad.Snapshot{
			Buttons: make([]gamepad.Button, len(d.Buttons)),
			Axes:    d.Axes,
		}
		for i, btn := range d.Buttons {
			snap.Buttons[i] = gamepad.Button{Pressed: btn.Pressed, Value: btn.Value}
		}
		b.mu.Lock()
		b.pad, b.padConnected = snap, d.Connected
		b.mu.Unlock()

	case InPose:
		var p camera.Pose
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return err
		}
		if !geo.Valid(p.Center) {
			return fmt.Errorf("invalid pose center %v", p.Center)
		}
		b.mu.Lock()
		b.pose = p
		b.mu.Unlock()

	case InUI:
		var u inputctx.UIState
		if err := json.Unmarshal(msg.Data, &u); err != nil {
			return err
		}
		b.mu.Lock()
		b.ui = u
		b.mu.Unlock()

	case InGesture:
		var d gestureData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return err
		}
		if !d.Gesture.Valid() {
			return fmt.Errorf("unknown gesture %q", d.Gesture)
		}
		b.dispatch(func() { b.EmitGesture(d.Gesture) })

	case InMoveEnd:
		var d moveEndData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return err
		}
		b.mu.Lock()
		if d.Animation != 0 && d.Animation == b.flying {
			b.flying = 0
		}
		b.mu.Unlock()
		b.dispatch(func() { b.EmitMoveEnd(camera.MoveEnd{Animation: d.Animation}) })

	case InGeolocation:
		var d geolocationData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return err
		}
		b.mu.Lock()
		ch, ok := b.pending[d.ID]
		delete(b.pending, d.ID)
		b.mu.Unlock()
		if !ok {
			return fmt.Errorf("no pending geolocation request %q", d.ID)
		}
		ch <- d

	case InLongPress:
		var d longPressData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return err
		}
		at := orb.Point{d.Lon, d.Lat}
		if !geo.Valid(at) {
			return fmt.Errorf("invalid long-press point %v", at)
		}
		var anchor *camera.ScreenPoint
		if d.X != nil && d.Y != nil {
			anchor = &camera.ScreenPoint{X: *d.X, Y: *d.Y}
		}
		if h := b.callbacks().LongPress; h != nil {
			b.dispatch(func() { h(at, anchor) })
		}

	case InDismiss:
		if h := b.callbacks().Dismiss; h != nil {
			b.dispatch(h)
		}

	case InCommand:
		var d commandData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return err
		}
		if h := b.callbacks().Command; h != nil {
			b.dispatch(func() { h(d.Key) })
		}

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (b *Bridge) callbacks() Handlers {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handlers
}

// Pose implements camera.Surface. It is the last pose the page reported,
// updated locally by every instant move.
func (b *Bridge) Pose() camera.Pose {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pose
}

// JumpTo implements camera.Surface.
func (b *Bridge) JumpTo(o camera.Options) {
	b.mu.Lock()
	b.pose = clampPose(o.Apply(b.pose))
	b.mu.Unlock()
	b.send(OutJumpTo, moveData{Options: o})
}

// PanBy implements camera.Surface. The page reports the resulting center
// with its next pose message.
func (b *Bridge) PanBy(dx, dy float64) {
	b.send(OutPanBy, panByData{DX: dx, DY: dy})
}

// EaseTo implements camera.Surface.
func (b *Bridge) EaseTo(o camera.Options, a camera.Animation) camera.AnimationID {
	return b.animate(OutEaseTo, o, a)
}

// FlyTo implements camera.Surface.
func (b *Bridge) FlyTo(o camera.Options, a camera.Animation) camera.AnimationID {
	return b.animate(OutFlyTo, o, a)
}

// animate forwards a move to the page, which echoes the id in its moveend.
// Instant moves and moves without a page complete locally.
func (b *Bridge) animate(typ string, o camera.Options, a camera.Animation) camera.AnimationID {
	b.mu.Lock()
	b.nextAnim++
	id := b.nextAnim
	attached := b.client != nil
	if a.Duration <= 0 || !attached {
		b.pose = clampPose(o.Apply(b.pose))
	} else {
		b.flying = id
	}
	b.mu.Unlock()

	if !attached {
		b.EmitMoveEnd(camera.MoveEnd{Animation: id})
		return id
	}
	if !b.send(typ, moveData{Options: o, Animation: newAnimation(a, id)}) {
		b.mu.Lock()
		if b.flying == id {
			b.flying = 0
		}
		b.mu.Unlock()
		b.EmitMoveEnd(camera.MoveEnd{Animation: id})
	}
	return id
}

// Stop implements camera.Surface.
func (b *Bridge) Stop() {
	b.send(OutStop, nil)
}

// TerrainExaggeration implements camera.Surface.
func (b *Bridge) TerrainExaggeration() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.terrain
}

// SetTerrainExaggeration implements camera.Surface.
func (b *Bridge) SetTerrainExaggeration(v float64) {
	b.mu.Lock()
	b.terrain = v
	b.mu.Unlock()
	b.send(OutTerrain, terrainData{Exaggeration: v})
}

// CloseSettings implements dispatch.UI.
func (b *Bridge) CloseSettings() {
	b.setSettings(func(bool) bool { return false })
	b.send(OutUI, uiData{Action: "close"})
}

// ToggleSettings implements dispatch.UI.
func (b *Bridge) ToggleSettings() {
	b.setSettings(func(open bool) bool { return !open })
	b.send(OutUI, uiData{Action: "toggle"})
}

func (b *Bridge) setSettings(fn func(open bool) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ui.SettingsOpen = fn(b.ui.SettingsOpen)
	if !b.ui.SettingsOpen {
		b.ui.MenuOpen = false
	}
}

// MenuNavigate implements dispatch.UI.
func (b *Bridge) MenuNavigate(dir dispatch.Direction) {
	b.send(OutUI, uiData{Action: "navigate", Direction: string(dir)})
}

// MenuSelect implements dispatch.UI.
func (b *Bridge) MenuSelect() {
	b.send(OutUI, uiData{Action: "select"})
}

// MenuBack implements dispatch.UI.
func (b *Bridge) MenuBack() {
	b.send(OutUI, uiData{Action: "back"})
}

// TriggerReport implements dispatch.Integrations.
func (b *Bridge) TriggerReport(at orb.Point) {
	b.send(OutReport, point(at))
}

// PlaceMarker implements dispatch.Integrations.
func (b *Bridge) PlaceMarker(at orb.Point) {
	b.send(OutMarker, point(at))
}

func clampPose(p camera.Pose) camera.Pose {
	p.Bearing = geo.WrapBearing(p.Bearing)
	p.Zoom = math.Max(camera.MinZoom, math.Min(camera.MaxZoom, p.Zoom))
	return p
}
