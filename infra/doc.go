// Package infra contains technical adapters such as the GPIO motor
// drivers, I2C and serial sensors, the MQTT publisher and the metrics
// exporters. These packages should depend only on the interfaces defined
// in the core packages.
package infra
