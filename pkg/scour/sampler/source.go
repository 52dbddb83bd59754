package sampler

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// minSystemDisk is the size above which the system drive is preferred over
// the largest partition.
const minSystemDisk = 10 << 30

// CPUTimes is the aggregate busy and total CPU time in seconds.
type CPUTimes struct {
	Busy  float64
	Total float64
}

// DiskUsage is the usage of one mounted volume.
type DiskUsage struct {
	Path  string
	Used  uint64
	Total uint64
}

// ProcessTimes is the cumulative CPU time and resident memory of one process.
type ProcessTimes struct {
	PID        int32
	Name       string
	CPUSeconds float64
	RSS        uint64
}

// Source reads raw counters from the operating system.
type Source interface {
	CPUTimes(ctx context.Context) (CPUTimes, error)
	NumCPU(ctx context.Context) (int, error)
	Memory(ctx context.Context) (used, total uint64, err error)
	// Disk reports usage for path, or for the system drive when path is empty.
	Disk(ctx context.Context, path string) (DiskUsage, error)
	// Processes lists readable processes. Processes that exit or deny
	// access while being read are left out.
	Processes(ctx context.Context) ([]ProcessTimes, error)
}

// SystemSource reads counters with gopsutil.
type SystemSource struct{}

var _ Source = SystemSource{}

// CPUTimes implements Source.
func (SystemSource) CPUTimes(ctx context.Context) (CPUTimes, error) {
	stats, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return CPUTimes{}, fmt.Errorf("reading cpu times: %w", err)
	}
	if len(stats) == 0 {
		return CPUTimes{}, errors.New("reading cpu times: no data")
	}
	return busyTimes(stats[0], runtime.GOOS), nil
}

// busyTimes splits t into busy and total time. Guest time is already
// accounted in user time on Linux.
func busyTimes(t cpu.TimesStat, goos string) CPUTimes {
	total := t.Total()
	if goos == "linux" {
		total -= t.Guest + t.GuestNice
	}
	return CPUTimes{Busy: total - t.Idle - t.Iowait, Total: total}
}

// NumCPU implements Source.
func (SystemSource) NumCPU(ctx context.Context) (int, error) {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("counting cpus: %w", err)
	}
	if n < 1 {
		n = runtime.NumCPU()
	}
	return n, nil
}

// Memory implements Source.
func (SystemSource) Memory(ctx context.Context) (uint64, uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("reading memory: %w", err)
	}
	return vm.Used, vm.Total, nil
}

// Disk implements Source.
func (SystemSource) Disk(ctx context.Context, path string) (DiskUsage, error) {
	if path != "" {
		u, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			return DiskUsage{}, fmt.Errorf("reading disk usage of %s: %w", path, err)
		}
		return DiskUsage{Path: path, Used: u.Used, Total: u.Total}, nil
	}

	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return DiskUsage{}, fmt.Errorf("listing partitions: %w", err)
	}

	var usages []DiskUsage
	for _, p := range parts {
		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		usages = append(usages, DiskUsage{Path: p.Mountpoint, Used: u.Used, Total: u.Total})
	}

	d, ok := pickDisk(usages, systemMount(runtime.GOOS))
	if !ok {
		return DiskUsage{}, errors.New("no readable disk")
	}
	return d, nil
}

func systemMount(goos string) string {
	if goos == "windows" {
		return `C:\`
	}
	return "/"
}

// pickDisk returns the system mount when it is large enough, otherwise the
// largest volume.
func pickDisk(usages []DiskUsage, system string) (DiskUsage, bool) {
	var best DiskUsage
	found := false
	for _, u := range usages {
		if u.Path == system && u.Total > minSystemDisk {
			return u, true
		}
		if !found || u.Total > best.Total {
			best = u
			found = true
		}
	}
	return best, found
}

// Processes implements Source.
func (SystemSource) Processes(ctx context.Context) ([]ProcessTimes, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	out := make([]ProcessTimes, 0, len(procs))
	for _, p := range procs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		times, err := p.TimesWithContext(ctx)
		if err != nil {
			continue
		}
		mi, err := p.MemoryInfoWithContext(ctx)
		if err != nil {
			continue
		}
		out = append(out, ProcessTimes{
			PID:        p.Pid,
			Name:       name,
			CPUSeconds: times.User + times.System,
			RSS:        mi.RSS,
		})
	}
	return out, nil
}
