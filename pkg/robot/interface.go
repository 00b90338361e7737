// Package robot drives the pan/tilt head's stepper motors.
//
// This package follows the Interface Segregation Principle (ISP) by defining
// small, focused interfaces that can be composed as needed. Consumers should
// depend only on the interfaces they actually use.
package robot

import "context"

// AxisController moves the two head axes. Positions are degrees from home,
// speeds degrees per second. Commands are fire-and-forget.
type AxisController interface {
	SetAzimuth(deg, speed float64) error
	SetAltitude(deg, speed float64) error
}

// StatusController reports whether the motor controller can take commands.
type StatusController interface {
	Status(ctx context.Context) (string, error)
}

// PowerController enables or releases the steppers.
type PowerController interface {
	Initialize(ctx context.Context) error
	Disable() error
	EmergencyStop() error
}

// Controller is the composite interface for full motor control.
type Controller interface {
	AxisController
	StatusController
	PowerController
}

// Ensure KlipperController implements Controller
var _ Controller = (*KlipperController)(nil)
