package profile

import (
	"fmt"
	"sort"

	"mapstick/pkg/binding"
)

// Preset names.
const (
	PresetDefault     = "default"
	PresetSouthpaw    = "southpaw"
	PresetTriggerZoom = "trigger-zoom"
)

// Standard gamepad axes.
const (
	axisLeftX = iota
	axisLeftY
	axisRightX
	axisRightY
)

var presets = map[string]func() *Profile{
	PresetDefault:     Default,
	PresetSouthpaw:    southpaw,
	PresetTriggerZoom: triggerZoom,
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preset builds a fresh profile from a named preset.
func Preset(name string) (*Profile, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return build(), nil
}

// Default is the profile used when nothing else loads.
func Default() *Profile {
	t := binding.NewTable()

	t[binding.ContextGlobal][binding.CmdToggleSettings] = binding.Button(9)
	t[binding.ContextGlobal][binding.CmdToggleFlightMode] = binding.Button(8)
	t[binding.ContextGlobal][binding.CmdReport] = binding.Button(16)

	nav := t[binding.ContextPrimaryNav]
	nav[binding.CmdPanX] = binding.Axis(axisLeftX, 1)
	nav[binding.CmdPanY] = binding.Axis(axisLeftY, 1)
	nav[binding.CmdRotate] = binding.Axis(axisRightX, 1)
	nav[binding.CmdPitch] = binding.Axis(axisRightY, -1)
	nav[binding.CmdZoomIn] = binding.Button(5)
	nav[binding.CmdZoomOut] = binding.Button(4)
	nav[binding.CmdRecenter] = binding.Button(10)
	nav[binding.CmdGeolocate] = binding.Button(11)
	nav[binding.CmdTogglePitchLimit] = binding.Button(0)
	nav[binding.CmdOrbit] = binding.Button(2)
	nav[binding.CmdSatellite] = binding.Button(3)
	nav[binding.CmdCancelCinematic] = binding.Button(1)

	menu := t[binding.ContextMenu]
	menu[binding.CmdMenuUp] = binding.Button(12)
	menu[binding.CmdMenuDown] = binding.Button(13)
	menu[binding.CmdMenuLeft] = binding.Button(14)
	menu[binding.CmdMenuRight] = binding.Button(15)
	menu[binding.CmdMenuSelect] = binding.Button(0)
	menu[binding.CmdMenuBack] = binding.Button(1)
	menu[binding.CmdMenuClose] = binding.Button(3)

	drone := t[binding.ContextSecondaryNav]
	drone[binding.CmdMoveForward] = binding.Axis(axisLeftY, -1)
	drone[binding.CmdMoveStrafe] = binding.Axis(axisLeftX, 1)
	drone[binding.CmdLookYaw] = binding.Axis(axisRightX, 1)
	drone[binding.CmdLookPitch] = binding.Axis(axisRightY, -1)
	drone[binding.CmdAscend] = binding.SignedButton(7, 1)
	drone[binding.CmdDescend] = binding.SignedButton(6, 1)
	drone[binding.CmdResetHeading] = binding.Button(10)
	drone[binding.CmdExitDrone] = binding.Button(1)

	return &Profile{
		ID:       newID(),
		Name:     PresetDefault,
		Bindings: t,
		Labels:   standardLabels(),
		Settings: DefaultSettings(),
	}
}

// southpaw swaps the sticks.
func southpaw() *Profile {
	p := Default()
	p.Name = PresetSouthpaw
	nav := p.Bindings[binding.ContextPrimaryNav]
	nav[binding.CmdPanX] = binding.Axis(axisRightX, 1)
	nav[binding.CmdPanY] = binding.Axis(axisRightY, 1)
	nav[binding.CmdRotate] = binding.Axis(axisLeftX, 1)
	nav[binding.CmdPitch] = binding.Axis(axisLeftY, -1)

	drone := p.Bindings[binding.ContextSecondaryNav]
	drone[binding.CmdMoveForward] = binding.Axis(axisRightY, -1)
	drone[binding.CmdMoveStrafe] = binding.Axis(axisRightX, 1)
	drone[binding.CmdLookYaw] = binding.Axis(axisLeftX, 1)
	drone[binding.CmdLookPitch] = binding.Axis(axisLeftY, -1)
	return p
}

// triggerZoom moves zoom from the bumpers to the triggers.
func triggerZoom() *Profile {
	p := Default()
	p.Name = PresetTriggerZoom
	nav := p.Bindings[binding.ContextPrimaryNav]
	nav[binding.CmdZoomIn] = binding.Button(7)
	nav[binding.CmdZoomOut] = binding.Button(6)
	return p
}
