package modal

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// CPUInfo describes the lane layout compiled into this build and the vector
// extensions reported by the running CPU.
type CPUInfo struct {
	Arch      string
	LaneWidth int
	Features  []string
}

// CPUFeatures reports the lane width and detected vector features.
func CPUFeatures() CPUInfo {
	info := CPUInfo{
		Arch:      runtime.GOARCH,
		LaneWidth: LaneWidth,
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add := func(ok bool, name string) {
			if ok {
				info.Features = append(info.Features, name)
			}
		}
		add(cpu.X86.HasSSE2, "sse2")
		add(cpu.X86.HasSSE41, "sse4.1")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
	case "arm64":
		if cpu.ARM64.HasASIMD {
			info.Features = append(info.Features, "asimd")
		}
		if cpu.ARM64.HasFPHP {
			info.Features = append(info.Features, "fphp")
		}
	}
	return info
}
