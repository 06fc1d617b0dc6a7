//go:build amd64 && !purego

package modal

// LaneWidth is the number of modes a Group advances per sample.
// Eight float32 lanes fill one AVX register.
const LaneWidth = 8
