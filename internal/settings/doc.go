// Package settings holds the application settings consumed by the process
// bootstrap.
//
// Settings are selected by module name, read from STOREFRONT_SETTINGS_MODULE.
// A module is a constructor registered with Register; the default module
// "storefront.settings" builds its values from the loaded configuration.
//
// The bootstrap relies on two values:
//
//   - AllowedHosts, an ordered non-empty list whose first element is the
//     server name of the startup warm-up request
//   - InitTracer, the factory each worker calls to build its tracer provider
package settings
