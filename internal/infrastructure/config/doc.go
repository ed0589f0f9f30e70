// Package config handles loading and validating climate bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (CLIMABRIDGE_*)
//   - Validation of required fields
//   - Default value handling
//
// Durations (device.staleness_threshold, bridge.connect_timeout,
// bridge.query_deadline) are written as Go duration strings, e.g. "30s".
//
// Security Considerations:
//   - Broker credentials and the InfluxDB token should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.Namespace)
package config
