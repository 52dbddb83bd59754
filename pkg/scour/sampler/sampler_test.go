package sampler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	times   CPUTimes
	ncpu    int
	used    uint64
	total   uint64
	disk    DiskUsage
	diskErr error
	procs   []ProcessTimes
	procErr error
	cpuErr  error
}

func (f *fakeSource) CPUTimes(context.Context) (CPUTimes, error) { return f.times, f.cpuErr }
func (f *fakeSource) NumCPU(context.Context) (int, error)         { return f.ncpu, nil }
func (f *fakeSource) Memory(context.Context) (uint64, uint64, error) {
	return f.used, f.total, nil
}
func (f *fakeSource) Disk(_ context.Context, path string) (DiskUsage, error) {
	if f.diskErr != nil {
		return DiskUsage{}, f.diskErr
	}
	d := f.disk
	if path != "" {
		d.Path = path
	}
	return d, nil
}
func (f *fakeSource) Processes(context.Context) ([]ProcessTimes, error) {
	return f.procs, f.procErr
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time         { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func newFake() *fakeSource {
	return &fakeSource{
		times: CPUTimes{Busy: 25, Total: 100},
		ncpu:  2,
		used:  4 << 30,
		total: 16 << 30,
		disk:  DiskUsage{Path: "/", Used: 50 << 30, Total: 200 << 30},
		procs: []ProcessTimes{
			{PID: 10, Name: "idle", CPUSeconds: 1, RSS: 100},
			{PID: 20, Name: "busy", CPUSeconds: 10, RSS: 50},
			{PID: 30, Name: "big", CPUSeconds: 5, RSS: 900},
		},
	}
}

func TestSample_First(t *testing.T) {
	src := newFake()
	clock := newClock()
	s := New(WithSource(src), WithClock(clock.now))

	snap, err := s.Sample(context.Background())
	require.NoError(t, err)

	assert.False(t, snap.ProcessCPUReady)
	assert.InDelta(t, 0.25, snap.CPU, 1e-9)
	assert.Equal(t, 2, snap.NumCPU)
	assert.InDelta(t, 0.25, snap.MemoryFraction(), 1e-9)
	assert.InDelta(t, 0.25, snap.DiskFraction(), 1e-9)
	assert.Equal(t, "/", snap.DiskPath)
	require.Len(t, snap.Processes, 3)
	for _, p := range snap.Processes {
		assert.Zero(t, p.CPU, p.Name)
	}
}

func TestSample_SecondHasProcessShares(t *testing.T) {
	src := newFake()
	clock := newClock()
	s := New(WithSource(src), WithClock(clock.now), WithRank(RankCPU))

	_, err := s.Sample(context.Background())
	require.NoError(t, err)

	clock.advance(2 * time.Second)
	src.times = CPUTimes{Busy: 28, Total: 104}
	src.procs = []ProcessTimes{
		{PID: 10, Name: "idle", CPUSeconds: 1, RSS: 100},
		{PID: 20, Name: "busy", CPUSeconds: 12, RSS: 50},
		{PID: 30, Name: "big", CPUSeconds: 5.4, RSS: 900},
	}

	snap, err := s.Sample(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.ProcessCPUReady)
	assert.InDelta(t, 0.75, snap.CPU, 1e-9)
	require.Len(t, snap.Processes, 3)

	// 2s of cpu over 2s wall on 2 cpus
	assert.Equal(t, int32(20), snap.Processes[0].PID)
	assert.InDelta(t, 0.5, snap.Processes[0].CPU, 1e-9)
	assert.Equal(t, int32(30), snap.Processes[1].PID)
	assert.InDelta(t, 0.1, snap.Processes[1].CPU, 1e-9)
	assert.Equal(t, int32(10), snap.Processes[2].PID)
	assert.Zero(t, snap.Processes[2].CPU)
}

func TestSample_ShareClamped(t *testing.T) {
	src := newFake()
	clock := newClock()
	s := New(WithSource(src), WithClock(clock.now))

	_, err := s.Sample(context.Background())
	require.NoError(t, err)

	clock.advance(time.Second)
	src.procs = []ProcessTimes{
		{PID: 20, Name: "busy", CPUSeconds: 100},
		{PID: 30, Name: "restarted", CPUSeconds: 0},
	}
	snap, err := s.Sample(context.Background())
	require.NoError(t, err)

	for _, p := range snap.Processes {
		assert.GreaterOrEqual(t, p.CPU, 0.0, p.Name)
		assert.LessOrEqual(t, p.CPU, 1.0, p.Name)
	}
}

func TestSample_OrderingAndLimit(t *testing.T) {
	src := newFake()
	src.procs = []ProcessTimes{
		{PID: 7, Name: "b", RSS: 300},
		{PID: 3, Name: "a", RSS: 300},
		{PID: 9, Name: "c", RSS: 900},
		{PID: 1, Name: "d", RSS: 10},
	}

	snap, err := New(WithSource(src), WithLimit(3)).Sample(context.Background())
	require.NoError(t, err)

	var pids []int32
	for _, p := range snap.Processes {
		pids = append(pids, p.PID)
	}
	assert.Equal(t, []int32{9, 3, 7}, pids)
}

func TestSetRank(t *testing.T) {
	src := newFake()
	clock := newClock()
	s := New(WithSource(src), WithClock(clock.now))
	s.SetRank(RankCPU)
	assert.Equal(t, RankCPU, s.Rank())

	pids := func(snap *Snapshot) []int32 {
		var out []int32
		for _, p := range snap.Processes {
			out = append(out, p.PID)
		}
		return out
	}

	snap, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 20, 30}, pids(snap), "no shares yet, ties by PID")

	src.procs = []ProcessTimes{
		{PID: 10, Name: "idle", CPUSeconds: 1, RSS: 100},
		{PID: 20, Name: "busy", CPUSeconds: 12, RSS: 50},
		{PID: 30, Name: "big", CPUSeconds: 6, RSS: 900},
	}
	src.times = CPUTimes{Busy: 30, Total: 110}
	clock.advance(2 * time.Second)

	snap, err = s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int32{20, 30, 10}, pids(snap))

	s.SetRank(RankMemory)
	clock.advance(2 * time.Second)
	snap, err = s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int32{30, 10, 20}, pids(snap))
}

func TestSample_Errors(t *testing.T) {
	boom := errors.New("boom")

	src := newFake()
	src.cpuErr = boom
	_, err := New(WithSource(src)).Sample(context.Background())
	assert.ErrorIs(t, err, boom)

	src = newFake()
	src.procErr = boom
	_, err = New(WithSource(src)).Sample(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSample_DiskUnavailable(t *testing.T) {
	src := newFake()
	src.diskErr = errors.New("no disk")

	snap, err := New(WithSource(src), WithDiskPath("/mnt/x")).Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/mnt/x", snap.DiskPath)
	assert.Zero(t, snap.DiskTotal)
	assert.Zero(t, snap.DiskFraction())
}

func TestSample_IndependentSamplers(t *testing.T) {
	src := newFake()
	clock := newClock()
	a := New(WithSource(src), WithClock(clock.now))
	b := New(WithSource(src), WithClock(clock.now))

	_, err := a.Sample(context.Background())
	require.NoError(t, err)

	snap, err := b.Sample(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.ProcessCPUReady)

	a.Reset()
	snap, err = a.Sample(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.ProcessCPUReady)
}

func TestParseRank(t *testing.T) {
	tests := []struct {
		in      string
		want    Rank
		wantErr bool
	}{
		{"", RankMemory, false},
		{"memory", RankMemory, false},
		{"MEM", RankMemory, false},
		{"cpu", RankCPU, false},
		{"disk", RankMemory, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRank(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRank)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBusyTimes(t *testing.T) {
	ts := cpu.TimesStat{User: 30, System: 10, Idle: 50, Iowait: 10, Guest: 5, GuestNice: 1}

	linux := busyTimes(ts, "linux")
	assert.InDelta(t, 100.0, linux.Total, 1e-9)
	assert.InDelta(t, 40.0, linux.Busy, 1e-9)

	other := busyTimes(ts, "darwin")
	assert.InDelta(t, 106.0, other.Total, 1e-9)
	assert.InDelta(t, 46.0, other.Busy, 1e-9)
}

func TestPickDisk(t *testing.T) {
	small := DiskUsage{Path: "/", Total: 5 << 30}
	large := DiskUsage{Path: "/data", Total: 500 << 30}
	root := DiskUsage{Path: "/", Total: 100 << 30}

	got, ok := pickDisk([]DiskUsage{large, root}, "/")
	require.True(t, ok)
	assert.Equal(t, "/", got.Path)

	got, ok = pickDisk([]DiskUsage{small, large}, "/")
	require.True(t, ok)
	assert.Equal(t, "/data", got.Path)

	_, ok = pickDisk(nil, "/")
	assert.False(t, ok)
}
