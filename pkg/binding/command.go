// Package binding describes which physical controller inputs drive which logical commands.
package binding

import (
	"fmt"
	"strings"
)

// Context is a named partition of the binding table.
type Context string

const (
	ContextGlobal       Context = "global"
	ContextPrimaryNav   Context = "primary-nav"
	ContextMenu         Context = "menu"
	ContextSecondaryNav Context = "secondary-nav"
)

// Contexts lists every context in sampling order (global first).
var Contexts = []Context{ContextGlobal, ContextPrimaryNav, ContextMenu, ContextSecondaryNav}

// Valid reports whether c is one of the known contexts.
func (c Context) Valid() bool {
	for _, known := range Contexts {
		if c == known {
			return true
		}
	}
	return false
}

// Kind is the static kind of a command.
type Kind int

const (
	// KindButton commands are discrete and fire on edges or key repeat.
	KindButton Kind = iota
	// KindAxis commands are continuous and read every frame.
	KindAxis
)

func (k Kind) String() string {
	if k == KindAxis {
		return "axis"
	}
	return "button"
}

// Command identifies a logical command. The set is closed; adding one means
// adding a constant here, a row in commandInfo and a case in the dispatcher.
type Command int

const (
	CmdNone Command = iota

	// global
	CmdToggleSettings
	CmdToggleFlightMode
	CmdReport

	// primary-nav
	CmdPanX
	CmdPanY
	CmdRotate
	CmdPitch
	CmdZoomIn
	CmdZoomOut
	CmdRecenter
	CmdGeolocate
	CmdTogglePitchLimit
	CmdOrbit
	CmdSatellite
	CmdCancelCinematic

	// menu
	CmdMenuUp
	CmdMenuDown
	CmdMenuLeft
	CmdMenuRight
	CmdMenuSelect
	CmdMenuBack
	CmdMenuClose

	// secondary-nav
	CmdMoveForward
	CmdMoveStrafe
	CmdLookYaw
	CmdLookPitch
	CmdAscend
	CmdDescend
	CmdResetHeading
	CmdExitDrone

	numCommands
)

type commandMeta struct {
	context Context
	action  string
	kind    Kind
	repeat  bool
}

var commandInfo = [numCommands]commandMeta{
	CmdNone: {},

	CmdToggleSettings:   {ContextGlobal, "TOGGLE_SETTINGS", KindButton, false},
	CmdToggleFlightMode: {ContextGlobal, "TOGGLE_FLIGHT_MODE", KindButton, false},
	CmdReport:           {ContextGlobal, "REPORT", KindButton, false},

	CmdPanX:             {ContextPrimaryNav, "PAN_X", KindAxis, false},
	CmdPanY:             {ContextPrimaryNav, "PAN_Y", KindAxis, false},
	CmdRotate:           {ContextPrimaryNav, "ROTATE", KindAxis, false},
	CmdPitch:            {ContextPrimaryNav, "PITCH", KindAxis, false},
	CmdZoomIn:           {ContextPrimaryNav, "ZOOM_IN", KindButton, false},
	CmdZoomOut:          {ContextPrimaryNav, "ZOOM_OUT", KindButton, false},
	CmdRecenter:         {ContextPrimaryNav, "RECENTER", KindButton, false},
	CmdGeolocate:        {ContextPrimaryNav, "GEOLOCATE", KindButton, false},
	CmdTogglePitchLimit: {ContextPrimaryNav, "TOGGLE_PITCH_LIMIT", KindButton, false},
	CmdOrbit:            {ContextPrimaryNav, "ORBIT", KindButton, false},
	CmdSatellite:        {ContextPrimaryNav, "SATELLITE", KindButton, false},
	CmdCancelCinematic:  {ContextPrimaryNav, "CANCEL_CINEMATIC", KindButton, false},

	CmdMenuUp:     {ContextMenu, "UP", KindButton, true},
	CmdMenuDown:   {ContextMenu, "DOWN", KindButton, true},
	CmdMenuLeft:   {ContextMenu, "LEFT", KindButton, true},
	CmdMenuRight:  {ContextMenu, "RIGHT", KindButton, true},
	CmdMenuSelect: {ContextMenu, "SELECT", KindButton, false},
	CmdMenuBack:   {ContextMenu, "BACK", KindButton, false},
	CmdMenuClose:  {ContextMenu, "CLOSE", KindButton, false},

	CmdMoveForward:  {ContextSecondaryNav, "MOVE_FORWARD", KindAxis, false},
	CmdMoveStrafe:   {ContextSecondaryNav, "MOVE_STRAFE", KindAxis, false},
	CmdLookYaw:      {ContextSecondaryNav, "LOOK_YAW", KindAxis, false},
	CmdLookPitch:    {ContextSecondaryNav, "LOOK_PITCH", KindAxis, false},
	CmdAscend:       {ContextSecondaryNav, "ASCEND", KindAxis, false},
	CmdDescend:      {ContextSecondaryNav, "DESCEND", KindAxis, false},
	CmdResetHeading: {ContextSecondaryNav, "RESET_HEADING", KindButton, false},
	CmdExitDrone:    {ContextSecondaryNav, "EXIT", KindButton, false},
}

var commandByKey = func() map[string]Command {
	m := make(map[string]Command, numCommands)
	for c := CmdNone + 1; c < numCommands; c++ {
		m[c.Key()] = c
	}
	return m
}()

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	return c > CmdNone && c < numCommands
}

// Context returns the context the command belongs to.
func (c Command) Context() Context {
	if !c.Valid() {
		return ""
	}
	return commandInfo[c].context
}

// Kind returns the declared kind of the command.
func (c Command) Kind() Kind {
	if !c.Valid() {
		return KindButton
	}
	return commandInfo[c].kind
}

// Repeats reports whether the command uses key-repeat rather than edge detection.
func (c Command) Repeats() bool {
	return c.Valid() && commandInfo[c].repeat
}

// Key returns the namespaced string key, e.g. "primary-nav.PAN_X".
func (c Command) Key() string {
	if !c.Valid() {
		return fmt.Sprintf("unknown(%d)", int(c))
	}
	m := commandInfo[c]
	return string(m.context) + "." + m.action
}

func (c Command) String() string {
	return c.Key()
}

// ParseCommand resolves a namespaced key. Matching on the action part is
// case-insensitive; the context prefix must match exactly.
func ParseCommand(key string) (Command, bool) {
	if c, ok := commandByKey[key]; ok {
		return c, true
	}
	ctx, action, found := strings.Cut(key, ".")
	if !found {
		return CmdNone, false
	}
	c, ok := commandByKey[ctx+"."+strings.ToUpper(action)]
	return c, ok
}

// AllCommands returns every known command in declaration order.
func AllCommands() []Command {
	out := make([]Command, 0, numCommands-1)
	for c := CmdNone + 1; c < numCommands; c++ {
		out = append(out, c)
	}
	return out
}

// CommandsIn returns the commands belonging to ctx in declaration order.
func CommandsIn(ctx Context) []Command {
	var out []Command
	for c := CmdNone + 1; c < numCommands; c++ {
		if commandInfo[c].context == ctx {
			out = append(out, c)
		}
	}
	return out
}

// CommandKeys returns all command keys, used for suggestions on unknown input.
func CommandKeys() []string {
	keys := make([]string, 0, numCommands-1)
	for c := CmdNone + 1; c < numCommands; c++ {
		keys = append(keys, c.Key())
	}
	return keys
}
