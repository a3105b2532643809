// Package shared holds helpers used across the storefront packages that do
// not belong to any one of them.
//
// The testutil subpackage captures slog records in tests:
//
//	logger, logs := testutil.NewTestLogger(t)
//	component := New(logger)
//	// ...
//	testutil.AssertLogContains(t, logs, slog.LevelInfo, "component started")
package shared
