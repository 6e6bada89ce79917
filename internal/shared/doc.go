// Package shared holds helpers used across the license core that do not
// belong to a single domain package.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output, a process-wide RSA test key, a fixed-value fingerprint prober
// and a settable clock for injecting into time-dependent components.
package shared
