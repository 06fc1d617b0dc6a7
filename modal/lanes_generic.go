//go:build (!amd64 && !arm64) || purego

package modal

// LaneWidth is the number of modes a Group advances per sample.
const LaneWidth = 1
