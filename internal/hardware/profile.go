// Package hardware probes CPU architecture, SIMD capability, logical
// parallelism, and RAM, memoized behind a one-shot cell, then recommends a
// model id/quantization from that profile. SIMD detection comes from
// github.com/klauspost/cpuid/v2; RAM and core counts from
// github.com/shirou/gopsutil/v3.
package hardware

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/localcue/dictate/internal/apperr"
)

// Arch names the detected CPU architecture.
type Arch string

const (
	ArchX86_64  Arch = "x86_64"
	ArchARM64   Arch = "arm64"
	ArchUnknown Arch = "unknown"
)

// SIMD reports which relevant vector instruction sets the CPU supports.
type SIMD struct {
	AVX    bool
	AVX2   bool
	AVX512 bool
	NEON   bool
}

// Good reports whether the SIMD capability is good enough for the larger
// models: AVX2 on x86-64, or NEON on AArch64 (guaranteed).
func (s SIMD) Good() bool { return s.AVX2 || s.NEON }

// Profile is the detected hardware snapshot used by the recommender and by
// the transcriber's default thread count.
type Profile struct {
	Arch     Arch
	Cores    int
	Threads  int
	SIMD     SIMD
	RAMBytes uint64
	OS       string
}

// RAMGB returns RAM rounded down to whole gigabytes (ram_bytes >> 30).
func (p Profile) RAMGB() int { return int(p.RAMBytes >> 30) }

// RecommendedThreads leaves one logical CPU for the system/UI:
// max(1, cores-1).
func (p Profile) RecommendedThreads() int {
	if p.Cores <= 1 {
		return 1
	}
	return p.Cores - 1
}

var (
	once     sync.Once
	cached   Profile
	cachedOK = true
)

// Detect returns the memoized hardware profile. The first call wins; a
// losing concurrent initializer's result is discarded (sync.Once already
// gives us that for free).
func Detect() (Profile, error) {
	var err error
	once.Do(func() {
		cached, err = probe()
	})
	return cached, err
}

func probe() (Profile, error) {
	arch := detectArch()

	threads := runtime.NumCPU()
	if n, cerr := cpu.Counts(true); cerr == nil && n > 0 {
		threads = n
	}

	ramBytes, ramErr := probeRAM()
	if ramErr != nil {
		// Fall back to 8 GiB; the caller's logger surfaces the warning, not
		// this package, which stays side-effect-free.
		ramBytes = 8 << 30
	}

	return Profile{
		Arch:     arch,
		Cores:    threads,
		Threads:  threads,
		SIMD:     detectSIMD(),
		RAMBytes: ramBytes,
		OS:       runtime.GOOS,
	}, ramErr
}

func detectArch() Arch {
	switch runtime.GOARCH {
	case "amd64":
		return ArchX86_64
	case "arm64":
		return ArchARM64
	default:
		return ArchUnknown
	}
}

// detectSIMD uses klauspost/cpuid/v2's compile-time-gated runtime feature
// checks. NEON is guaranteed present on every AArch64 target.
func detectSIMD() SIMD {
	s := SIMD{}
	if runtime.GOARCH == "amd64" {
		s.AVX = cpuid.CPU.Supports(cpuid.AVX)
		s.AVX2 = cpuid.CPU.Supports(cpuid.AVX2)
		s.AVX512 = cpuid.CPU.Supports(cpuid.AVX512F)
	}
	if runtime.GOARCH == "arm64" {
		s.NEON = true
	}
	return s
}

// probeRAM reads total physical memory via gopsutil, which covers the
// per-OS paths (sysctl on macOS, /proc/meminfo on Linux, WMI on Windows).
func probeRAM() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrHardware, err)
	}
	return vm.Total, nil
}
