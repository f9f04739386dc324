// Package telemetry defines the publisher contract for pushing live device
// readings to an external broker. The MQTT implementation lives under
// infra/mqtt.
package telemetry

import "github.com/petbuddy/dispenser/core/model"

// Publisher pushes live readings and status changes to subscribers.
type Publisher interface {
	PublishPower(r model.PowerReading) error
	PublishWeight(r model.WeightReading) error
	PublishStatus(status string) error
	Close() error
}

// Nop discards all telemetry.
type Nop struct{}

func (Nop) PublishPower(model.PowerReading) error   { return nil }
func (Nop) PublishWeight(model.WeightReading) error { return nil }
func (Nop) PublishStatus(string) error              { return nil }
func (Nop) Close() error                            { return nil }
