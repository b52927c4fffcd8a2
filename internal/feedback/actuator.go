package feedback

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// pinActuator drives the vibration motor and the status LED as one output.
type pinActuator struct {
	motor gpio.PinIO
	led   gpio.PinIO
}

// NewPinActuator resolves the motor and LED GPIO pins by name. The periph
// host must already be initialized by the caller.
func NewPinActuator(motorPin, ledPin string) (Actuator, error) {
	motor := gpioreg.ByName(motorPin)
	if motor == nil {
		return nil, fmt.Errorf("feedback: motor pin %q not found", motorPin)
	}
	led := gpioreg.ByName(ledPin)
	if led == nil {
		return nil, fmt.Errorf("feedback: LED pin %q not found", ledPin)
	}
	return &pinActuator{motor: motor, led: led}, nil
}

func (a *pinActuator) Set(on bool) error {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := a.motor.Out(level); err != nil {
		return fmt.Errorf("feedback: motor pin: %w", err)
	}
	if err := a.led.Out(level); err != nil {
		return fmt.Errorf("feedback: LED pin: %w", err)
	}
	return nil
}
