// Package motor provides the hardware stepper backends driven over GPIO.
package motor

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var hostInit sync.Once
var hostInitErr error

// resolvePins initialises the periph host once and resolves the given BCM
// pin numbers. Resolution happens at run time so that a dispenser without
// GPIO hardware can still be constructed and degrade gracefully.
func resolvePins(nums ...int) ([]gpio.PinIO, error) {
	hostInit.Do(func() {
		_, hostInitErr = host.Init()
	})
	if hostInitErr != nil {
		return nil, fmt.Errorf("init gpio host: %w", hostInitErr)
	}
	pins := make([]gpio.PinIO, 0, len(nums))
	for _, n := range nums {
		p := gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
		if p == nil {
			return nil, fmt.Errorf("gpio pin %d not found", n)
		}
		pins = append(pins, p)
	}
	return pins, nil
}

// HasGPIO reports whether the periph host exposes GPIO pins on this
// machine.
func HasGPIO() bool {
	hostInit.Do(func() {
		_, hostInitErr = host.Init()
	})
	if hostInitErr != nil {
		return false
	}
	return len(gpioreg.All()) > 0
}
