package bridge

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"

	"mapstick/pkg/camera"
)

// Message types received from the map page.
const (
	InGamepad     = "gamepad"
	InPose        = "pose"
	InGesture     = "gesture"
	InMoveEnd     = "moveend"
	InUI          = "ui"
	InGeolocation = "geolocation"
	InLongPress   = "longpress"
	InDismiss     = "dismiss"
	InCommand     = "command"
)

// Message types sent to the map page.
const (
	OutHello   = "hello"
	OutPanBy   = "panBy"
	OutJumpTo  = "jumpTo"
	OutEaseTo  = "easeTo"
	OutFlyTo   = "flyTo"
	OutStop    = "stop"
	OutTerrain = "terrain"
	OutUI      = "ui"
	OutMarker  = "marker"
	OutReport  = "report"
	OutLocate  = "locate"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type gamepadData struct {
	Connected bool `json:"connected"`
	Buttons   []struct {
		Pressed bool    `json:"pressed"`
		Value   float64 `json:"value"`
	} `json:"buttons"`
	Axes []float64 `json:"axes"`
}

type gestureData struct {
	Gesture camera.Gesture `json:"gesture"`
}

type moveEndData struct {
	Animation camera.AnimationID `json:"animation"`
}

type geolocationData struct {
	ID    string  `json:"id"`
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Error string  `json:"error,omitempty"` // "permission_denied", "timeout", "unavailable"
}

type longPressData struct {
	Lon float64  `json:"lon"`
	Lat float64  `json:"lat"`
	X   *float64 `json:"x,omitempty"`
	Y   *float64 `json:"y,omitempty"`
}

type commandData struct {
	Key string `json:"key"`
}

type helloData struct {
	Session string  `json:"session"`
	Terrain float64 `json:"terrain"`
}

type panByData struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// animationData carries durations in milliseconds, the unit of the map library.
type animationData struct {
	DurationMS int64              `json:"duration_ms"`
	Easing     camera.EasingName  `json:"easing"`
	Speed      float64            `json:"speed,omitempty"`
	Curve      float64            `json:"curve,omitempty"`
	ID         camera.AnimationID `json:"id"`
}

type moveData struct {
	Options   camera.Options `json:"options"`
	Animation *animationData `json:"animation,omitempty"`
}

type terrainData struct {
	Exaggeration float64 `json:"exaggeration"`
}

type uiData struct {
	Action    string `json:"action"` // open, close, toggle, navigate, select, back
	Direction string `json:"direction,omitempty"`
}

type pointData struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type locateData struct {
	ID        string `json:"id"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

func newAnimation(a camera.Animation, id camera.AnimationID) *animationData {
	return &animationData{
		DurationMS: a.Duration.Milliseconds(),
		Easing:     a.Easing,
		Speed:      a.Speed,
		Curve:      a.Curve,
		ID:         id,
	}
}

func point(p orb.Point) pointData {
	return pointData{Lon: p.Lon(), Lat: p.Lat()}
}

func timeoutMS(deadline time.Time, ok bool) int64 {
	if !ok {
		return 0
	}
	return time.Until(deadline).Milliseconds()
}

func encode(typ string, data any) ([]byte, error) {
	msg := Message{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}
