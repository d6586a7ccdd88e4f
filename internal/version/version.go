// Package version provides build and version information.
package version

// Version is the current daemon version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - Dark-frame cache with TTL, degraded delivery, /status surface
// 0.2.0 - Sunrise/sunset exposure ramp, dual-sensor handoff, Prometheus metrics
// 0.1.0 - Initial release: solar-driven capture loop, PNG sink, simulator driver
