package controller

import (
	"mapstick/pkg/cinematic"
	"mapstick/pkg/inputctx"
)

// orbitZoomStep is the zoom-target change of one zoom tap while orbiting.
const orbitZoomStep = 1.0

// TapZoom implements dispatch.Navigator. While orbiting, taps move the orbit
// zoom target instead of cycling the navigation zoom speed.
func (c *Controller) TapZoom(in bool) {
	if c.machine.Mode() == cinematic.ModeOrbitActive {
		delta := orbitZoomStep
		if !in {
			delta = -delta
		}
		c.machine.Orbit().NudgeZoom(delta)
		return
	}
	c.driver.TapZoom(in)
}

// TogglePitchLimit implements dispatch.Navigator.
func (c *Controller) TogglePitchLimit() {
	c.highPitch.Store(c.driver.TogglePitchLimit())
}

// ResetHeading implements dispatch.Navigator.
func (c *Controller) ResetHeading() {
	c.driver.ResetHeading()
}

// ToggleFlightMode implements dispatch.Navigator.
func (c *Controller) ToggleFlightMode() {
	if c.flightMode == inputctx.FlightDrone {
		c.setFlightMode(inputctx.FlightMap)
		return
	}
	c.setFlightMode(inputctx.FlightDrone)
}

// ExitDrone implements dispatch.Navigator.
func (c *Controller) ExitDrone() {
	c.setFlightMode(inputctx.FlightMap)
}

// setFlightMode switches between map and drone navigation. Drone flight
// starts aligned with the current bearing and ends any cinematic mode.
func (c *Controller) setFlightMode(m inputctx.FlightMode) {
	if m == c.flightMode {
		return
	}
	c.flightMode = m
	c.droneActive.Store(m == inputctx.FlightDrone)
	c.driver.Halt()
	if m == inputctx.FlightDrone {
		c.cancel("drone flight")
		c.driver.ResetHeading()
	}
	c.logger.Info("Flight mode", "mode", m)
}

// Orbit implements dispatch.Cinematic.
func (c *Controller) Orbit() {
	c.chooseMode(cinematic.ModeOrbitActive, cinematic.ModeTransitioningOrbit, c.machine.ChooseOrbit)
}

// Satellite implements dispatch.Cinematic.
func (c *Controller) Satellite() {
	c.chooseMode(cinematic.ModeSatelliteActive, cinematic.ModeTransitioningSatellite, c.machine.ChooseSatellite)
}

// Cancel implements dispatch.Cinematic.
func (c *Controller) Cancel() {
	c.machine.CancelAll()
}

// chooseMode toggles a cinematic mode from the controller. A pending target
// from a long-press is used as is; otherwise the current map center is the
// target. Pressing the button again while the mode runs cancels it.
func (c *Controller) chooseMode(active, transitioning cinematic.Mode, choose func() error) {
	switch mode := c.machine.Mode(); mode {
	case active, transitioning:
		c.cancel("toggled off")
		return
	case cinematic.ModeTargeting:
	case cinematic.ModeIdle:
		if err := c.machine.BeginTargeting(c.deps.Camera.Pose().Center, nil); err != nil {
			c.logger.Warn("Cannot target map center", "error", err)
			return
		}
	default:
		// Switching between orbit and satellite goes through idle.
		c.machine.CancelAll()
		if err := c.machine.BeginTargeting(c.deps.Camera.Pose().Center, nil); err != nil {
			c.logger.Warn("Cannot target map center", "error", err)
			return
		}
	}
	if err := choose(); err != nil {
		c.logger.Warn("Camera mode refused", "mode", transitioning, "error", err)
	}
}
