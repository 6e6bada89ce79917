// Package app wires the license issuer: configuration, logging,
// OpenTelemetry, the record store, the issuance and health services and the
// chi router that exposes them.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, EDEFTER_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Create the issuer data directory and the JSON record store
//	4. Build the issuance and health services
//	5. Set up middleware and the /api routes
//	6. Create the HTTP server
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of its context. In-flight
// requests are drained within the configured shutdown timeout and telemetry
// providers are flushed.
//
// # Error Handling
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
