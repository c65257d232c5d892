// Package config provides configuration management for smokectl.
//
// Configuration is layered. Later sources override earlier ones field by
// field:
//
//  1. Built-in defaults (DefaultConfig)
//  2. User configuration (~/.config/smokectl/config.yaml)
//  3. Project configuration (./.smokectl/config.yaml)
//  4. An explicit file passed with --config
//
// Missing user or project files are skipped. A missing explicit file is an
// error. Command line flags are applied on top by the cmd package.
//
// # Configuration Structure
//
//	timeout: 120          # per component, seconds or a duration string
//	interval: 5s          # pause between attempts
//	gracePeriod: 2s       # wait after starting a port-forward
//	teardownTimeout: 5s   # SIGTERM to SIGKILL escalation
//	probeTimeout: 5s      # single TCP/HTTP attempt
//	waitReady: false      # poll the local port instead of a fixed grace wait
//	forwarder: kubectl    # kubectl or client-go
//	discovery: client-go  # client-go or kubectl
//	components:
//	  minio:
//	    labelSelector: v1.min.io/tenant=storage
//	    fallbackService: minio-hl
//	    fallbackPort: 9000
//	    healthPath: /minio/health/ready
//
// Component entries can only refine the built-in catalogue; unknown component
// names are rejected by Validate.
package config
