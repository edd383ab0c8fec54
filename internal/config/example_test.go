package config_test

import (
	"fmt"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Tick Interval:", cfg.Timer.TickInterval)
	fmt.Println("Grace Delay:", cfg.Timer.GraceDelay)
	fmt.Println("Cache TTL:", cfg.Blocker.CacheTTL)
	// Output:
	// Tick Interval: 1s
	// Grace Delay: 3s
	// Cache TTL: 3m0s
}

// Example of creating configuration with environment variables
func ExampleNew() {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	fmt.Println("Configuration loaded successfully")
	// Output:
	// Configuration loaded successfully
}

// Example of setting the web port with validation
func ExampleConfig_SetWebPort() {
	cfg := config.Default()

	// Valid port
	if err := cfg.SetWebPort(9000); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Web port set to:", cfg.Web.Port)
	}

	// Invalid port
	if err := cfg.SetWebPort(70000); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Web port set to: 9000
	// Error: port must be between 1 and 65535, got 70000
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Timer.GraceDelay = -time.Second

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	}

	// Output:
	// Invalid config: grace delay must be positive
}
