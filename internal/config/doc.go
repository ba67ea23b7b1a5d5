// Package config provides configuration management for notifeed.
//
// Configuration is loaded from environment variables using the env package.
// Defaults reproduce the standalone behavior: the upstream is
// ws://localhost:8000/ws, history lives in memory under "notifications" and
// keeps the 5 newest entries.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("page served on %s\n", cfg.GetHTTPAddr())
package config
