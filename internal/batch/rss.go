package batch

import (
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// residentMemory returns this process's RSS in bytes, or 0 if unavailable.
func residentMemory() uint64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	mem, err := p.MemoryInfo()
	if err != nil || mem == nil {
		return 0
	}
	return mem.RSS
}
