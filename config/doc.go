// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files. It covers server settings, the execution
// engine's resource ceilings and operating profile, and logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Engine profile: %s\n", cfg.Engine.Profile)
package config
