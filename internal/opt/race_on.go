//go:build race

package opt

// Race_ reports whether the binary was built with -race.
// Timing-sensitive tests widen their margins under the race detector.
const Race_ = true
