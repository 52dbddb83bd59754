// Package sampler takes point-in-time snapshots of system resource usage:
// CPU, memory, the system disk and a ranked list of processes.
//
// CPU figures are rates, so each Sampler keeps the previous sample and
// reports deltas against it. The first Sample of a Sampler has no baseline
// for processes; their CPU shares are zero and ProcessCPUReady is false.
package sampler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/scour/pkg/scour/logging"
)

// ErrInvalidRank is returned by ParseRank for unknown rank keys.
var ErrInvalidRank = errors.New("invalid rank")

// Rank selects the key processes are ordered by.
type Rank int

const (
	// RankMemory orders by resident memory, largest first.
	RankMemory Rank = iota
	// RankCPU orders by CPU share, busiest first.
	RankCPU
)

func (r Rank) String() string {
	if r == RankCPU {
		return "cpu"
	}
	return "memory"
}

// ParseRank parses "memory", "mem" or "cpu". An empty string is memory.
func ParseRank(s string) (Rank, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "memory", "mem":
		return RankMemory, nil
	case "cpu":
		return RankCPU, nil
	default:
		return RankMemory, fmt.Errorf("%w: %q", ErrInvalidRank, s)
	}
}

// Process is one row of the process table.
type Process struct {
	PID  int32  `json:"pid" yaml:"pid"`
	Name string `json:"name" yaml:"name"`
	// CPU is the share of total machine CPU in [0,1].
	CPU    float64 `json:"cpu" yaml:"cpu"`
	Memory uint64  `json:"memory" yaml:"memory"`
}

// Snapshot is one resource sample.
type Snapshot struct {
	Time time.Time `json:"time" yaml:"time"`
	// CPU is the busy fraction of all CPUs in [0,1].
	CPU             float64   `json:"cpu" yaml:"cpu"`
	NumCPU          int       `json:"num_cpu" yaml:"num_cpu"`
	MemoryUsed      uint64    `json:"memory_used" yaml:"memory_used"`
	MemoryTotal     uint64    `json:"memory_total" yaml:"memory_total"`
	DiskPath        string    `json:"disk_path,omitempty" yaml:"disk_path,omitempty"`
	DiskUsed        uint64    `json:"disk_used" yaml:"disk_used"`
	DiskTotal       uint64    `json:"disk_total" yaml:"disk_total"`
	Processes       []Process `json:"processes,omitempty" yaml:"processes,omitempty"`
	ProcessCPUReady bool      `json:"process_cpu_ready" yaml:"process_cpu_ready"`
}

// MemoryFraction returns used over total memory.
func (s *Snapshot) MemoryFraction() float64 {
	return fraction(s.MemoryUsed, s.MemoryTotal)
}

// DiskFraction returns used over total disk space.
func (s *Snapshot) DiskFraction() float64 {
	return fraction(s.DiskUsed, s.DiskTotal)
}

func fraction(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}

// previous is the state carried between samples.
type previous struct {
	at   time.Time
	cpu  CPUTimes
	proc map[int32]float64
}

// Sampler produces Snapshots. It is safe for concurrent use; concurrent
// calls to Sample are serialized.
type Sampler struct {
	src      Source
	rank     Rank
	limit    int
	diskPath string
	now      func() time.Time
	log      *logging.Logger

	mu   sync.Mutex
	prev *previous
}

// Option is a functional option for configuring a Sampler.
type Option func(*Sampler)

// WithSource sets the counter source. The default reads the live system.
func WithSource(src Source) Option {
	return func(s *Sampler) {
		s.src = src
	}
}

// WithRank sets the process ordering key.
func WithRank(r Rank) Option {
	return func(s *Sampler) {
		s.rank = r
	}
}

// WithLimit keeps only the first n processes. Zero keeps all.
func WithLimit(n int) Option {
	return func(s *Sampler) {
		s.limit = max(n, 0)
	}
}

// WithDiskPath sets the volume to report. Empty selects the system drive.
func WithDiskPath(path string) Option {
	return func(s *Sampler) {
		s.diskPath = path
	}
}

// WithClock sets the wall clock used for elapsed time.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		s.now = now
	}
}

// New creates a Sampler.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		src: SystemSource{},
		now: time.Now,
		log: logging.Get("sampler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample reads the current counters and returns a Snapshot. Failing to
// read CPU, memory or the process list is an error; a disk that cannot be
// read is logged and reported as zero.
func (s *Sampler) Sample(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	times, err := s.src.CPUTimes(ctx)
	if err != nil {
		return nil, err
	}
	ncpu, err := s.src.NumCPU(ctx)
	if err != nil {
		return nil, err
	}
	ncpu = max(ncpu, 1)

	used, total, err := s.src.Memory(ctx)
	if err != nil {
		return nil, err
	}

	procs, err := s.src.Processes(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Time:            now,
		NumCPU:          ncpu,
		MemoryUsed:      used,
		MemoryTotal:     total,
		ProcessCPUReady: s.prev != nil,
	}

	d, err := s.src.Disk(ctx, s.diskPath)
	if err != nil {
		s.log.Warn("disk usage unavailable", "path", s.diskPath, "error", err)
		snap.DiskPath = s.diskPath
	} else {
		snap.DiskPath = d.Path
		snap.DiskUsed = d.Used
		snap.DiskTotal = d.Total
	}

	if s.prev == nil {
		snap.CPU = ratio(times.Busy, times.Total)
	} else {
		snap.CPU = ratio(times.Busy-s.prev.cpu.Busy, times.Total-s.prev.cpu.Total)
	}

	next := &previous{at: now, cpu: times, proc: make(map[int32]float64, len(procs))}
	elapsed := 0.0
	if s.prev != nil {
		elapsed = now.Sub(s.prev.at).Seconds()
	}

	snap.Processes = make([]Process, 0, len(procs))
	for _, p := range procs {
		next.proc[p.PID] = p.CPUSeconds

		share := 0.0
		if s.prev != nil && elapsed > 0 {
			// a pid missing from the previous sample started since then
			delta := p.CPUSeconds - s.prev.proc[p.PID]
			share = clamp(delta / (elapsed * float64(ncpu)))
		}
		snap.Processes = append(snap.Processes, Process{
			PID:    p.PID,
			Name:   p.Name,
			CPU:    share,
			Memory: p.RSS,
		})
	}

	s.sort(snap.Processes)
	if s.limit > 0 && len(snap.Processes) > s.limit {
		snap.Processes = snap.Processes[:s.limit]
	}

	s.prev = next
	return snap, nil
}

// Reset discards the previous sample.
func (s *Sampler) Reset() {
	s.mu.Lock()
	s.prev = nil
	s.mu.Unlock()
}

// SetRank changes the process ordering from the next Sample on.
func (s *Sampler) SetRank(r Rank) {
	s.mu.Lock()
	s.rank = r
	s.mu.Unlock()
}

// Rank returns the current process ordering.
func (s *Sampler) Rank() Rank {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rank
}

func (s *Sampler) sort(procs []Process) {
	slices.SortStableFunc(procs, func(a, b Process) int {
		var c int
		if s.rank == RankCPU {
			c = cmp.Compare(b.CPU, a.CPU)
		} else {
			c = cmp.Compare(b.Memory, a.Memory)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.PID, b.PID)
	})
}

func ratio(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return clamp(part / whole)
}

func clamp(f float64) float64 {
	return min(max(f, 0), 1)
}
