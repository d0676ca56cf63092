// Package metrics holds shared metric constants.
package metrics

// DefaultBuckets is a common set of latency histogram buckets in seconds.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// StreamBuckets covers research stream durations, which run from seconds up
// to the one hour request ceiling.
var StreamBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600} //nolint: gochecknoglobals
