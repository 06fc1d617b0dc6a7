//go:build arm64 && !purego

package modal

// LaneWidth is the number of modes a Group advances per sample.
// Four float32 lanes fill one NEON register.
const LaneWidth = 4
