// Package config loads the configuration of the fibers CLI and demo server.
//
// Values come from, in increasing priority: built-in defaults, a
// configuration file (fibers.yaml or fibers.json in the working directory,
// or an explicit path), and FIBERS_* environment variables. Nested keys map
// to environment names by joining with underscores, so scheduler.budget is
// FIBERS_SCHEDULER_BUDGET.
//
// # Configuration File Structure
//
//	scheduler:
//	  budget: 5ms       # idle time granted per slice
//	  gap: 1ms          # pause between slices
//	  post_queue: 256
//	engine:
//	  threshold: 1ms    # yield when less than this is left in a slice
//	  commit_mode: staged
//	server:
//	  addr: ":8080"
//	  title: fibers
//	  write_timeout: 10s
//	  ping_interval: 30s
//	  send_queue: 256
//	metrics:
//	  enabled: true
//	  namespace: fibers
//	log:
//	  level: info
//	  format: text
//	publish:            # S3 client for render --publish s3://...
//	  region: eu-west-1
//	  endpoint: http://localhost:9000
//	  path_style: true
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	logger := cfg.Logger(os.Stderr)
package config
