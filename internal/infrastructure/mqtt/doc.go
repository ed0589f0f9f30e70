// Package mqtt provides MQTT client connectivity for the climate bridge.
//
// This package manages:
//   - A single paho connection per Client, dialled lazily by Connect
//   - Message publishing with QoS validation
//   - Topic subscriptions with panic-safe handlers
//   - Last Will and Testament (LWT) for bridge presence
//   - Topic builders for the device namespace
//
// # Architecture
//
// The remote controller (an ESP32 with four relays and a temperature and
// humidity sensor) publishes telemetry unsolicited and accepts commands on
// per-relay topics:
//
//	HTTP / chat shells ↔ climate bridge ↔ MQTT broker ↔ ESP32
//
// # Usage
//
//	topics := mqtt.Topics{Namespace: cfg.Device.Namespace}
//	client := mqtt.New(cfg.MQTT, topics)
//	if err := client.Connect(5 * time.Second); err != nil {
//	    log.Printf("broker unavailable: %v", err)
//	}
//	defer client.Close()
//
//	client.Publish(topics.RelayCommand(1), []byte("ON"), 1, false)
package mqtt
