// Package app composes the storefront process and runs its workers.
//
// # Composition
//
// NewApplication prepares one process:
//
//	1. Default STOREFRONT_SETTINGS_MODULE when it is unset
//	2. Load the settings module it names
//	3. Build the base storefront application
//	4. Wrap it with the health-check responder (Compose)
//	5. Send one warm-up request through the composed handler
//
// A failed warm-up is returned to the caller and startup stops there.
//
// # Workers
//
// A Worker serves one Application. Start runs the worker-start hooks once,
// in order, before Serve accepts connections. Hooks may add middleware with
// Use and cleanup with OnShutdown. TracerHook is the hook that builds the
// worker's tracer provider from the settings and emits the diagnostic
// Storefront.WorkerStart span.
//
// Nothing in this package calls os.Exit; errors go back to the caller.
package app
