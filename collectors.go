package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-ping/ping"
	"github.com/robfig/cron/v3"
)

// globalData is the shared cell between the slow collectors and the zone
// painters. Collectors run on cron schedules, never on the render path.
var globalData sync.Map

// getData fetches a collector value with a placeholder fallback so a zone
// can render before its collector ran.
func getData(key string) string {
	if v, ok := globalData.Load(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "N/A"
}

// nonOverlapping serializes a collector: cron starts every invocation on a
// fresh goroutine, and the delta-based jobs keep unguarded previous-reading
// state, so an invocation that finds the previous one still running is
// skipped rather than run concurrently.
func nonOverlapping(job func()) func() {
	var mu sync.Mutex
	return func() {
		if !mu.TryLock() {
			return
		}
		defer mu.Unlock()
		job()
	}
}

// startCollectors wires the periodic data producers. The cron scheduler
// runs each job on its own goroutine pool; painters only ever read the
// results out of globalData.
func startCollectors(cfg Config) *cron.Cron {
	c := cron.New()

	run := func(spec string, job func()) {
		guarded := nonOverlapping(job)
		go guarded() // prime without holding up startup
		if _, err := c.AddFunc(spec, guarded); err != nil {
			log.Fatalf("collector schedule %q: %v", spec, err)
		}
	}

	run("@every 2s", collectMemInfo)
	run("@every 2s", collectCPULoad)
	run("@every 1s", collectNetRates)
	run("@every 10s", func() { collectPing(cfg.PingHost) })

	c.Start()
	return c
}

// collectMemInfo parses /proc/meminfo into used/total strings.
func collectMemInfo() {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return
	}
	var totalKB, availKB int64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB, _ = strconv.ParseInt(fields[1], 10, 64)
		case "MemAvailable:":
			availKB, _ = strconv.ParseInt(fields[1], 10, 64)
		}
	}
	if totalKB <= 0 {
		return
	}
	usedKB := totalKB - availKB
	globalData.Store("MemUsedPct", fmt.Sprintf("%d", usedKB*100/totalKB))
	globalData.Store("MemUsed", fmt.Sprintf("%.1f", float64(usedKB)/1024/1024))
	globalData.Store("MemTotal", fmt.Sprintf("%.1f", float64(totalKB)/1024/1024))
}

var (
	prevCPUBusy  uint64
	prevCPUTotal uint64
)

// collectCPULoad derives utilization from consecutive /proc/stat snapshots.
func collectCPULoad() {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return
	}
	line, _, _ := strings.Cut(string(data), "\n")
	fields := strings.Fields(line)
	if len(fields) < 5 || fields[0] != "cpu" {
		return
	}
	var total, idle uint64
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return
		}
		total += v
		if i == 3 || i == 4 { // idle + iowait
			idle += v
		}
	}
	busy := total - idle
	if prevCPUTotal > 0 && total > prevCPUTotal {
		dBusy := busy - prevCPUBusy
		dTotal := total - prevCPUTotal
		globalData.Store("CpuPct", fmt.Sprintf("%d", dBusy*100/dTotal))
	}
	prevCPUBusy, prevCPUTotal = busy, total
}

// getWANInterface resolves the default-route interface.
func getWANInterface() (string, error) {
	cmd := exec.Command("ip", "route", "show", "default")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	fields := strings.Fields(out.String())
	for i, field := range fields {
		if field == "dev" && i+1 < len(fields) {
			return fields[i+1], nil
		}
	}
	return "", fmt.Errorf("WAN interface not found")
}

var (
	prevRxBytes uint64
	prevTxBytes uint64
	prevNetAt   time.Time
)

// collectNetRates reads /proc/net/dev counters for the WAN interface and
// converts deltas to Mbit/s. The latest rates also feed the history graph.
func collectNetRates() {
	iface, err := getWANInterface()
	if err != nil {
		globalData.Store("WanUP", "N/A")
		globalData.Store("WanDOWN", "N/A")
		return
	}
	globalData.Store("WanIface", iface)

	data, err := os.ReadFile("/proc/net/dev")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		name, rest, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok || name != iface {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 9 {
			return
		}
		rx, _ := strconv.ParseUint(fields[0], 10, 64)
		tx, _ := strconv.ParseUint(fields[8], 10, 64)
		now := time.Now()
		if !prevNetAt.IsZero() && now.After(prevNetAt) {
			dt := now.Sub(prevNetAt).Seconds()
			down := float64(rx-prevRxBytes) * 8 / 1e6 / dt
			up := float64(tx-prevTxBytes) * 8 / 1e6 / dt
			globalData.Store("WanDOWN", formatSpeed(down))
			globalData.Store("WanUP", formatSpeed(up))
			recordRateSample(down, up)
		}
		prevRxBytes, prevTxBytes, prevNetAt = rx, tx, now
		return
	}
}

// formatSpeed renders a Mbit/s figure with sensible precision.
func formatSpeed(mbps float64) string {
	if mbps >= 1.0 {
		return fmt.Sprintf("%.3g", mbps)
	}
	return fmt.Sprintf("%.2f", mbps)
}

// collectPing probes the configured host for the network zone readout.
func collectPing(host string) {
	if host == "" {
		return
	}
	p, err := ping.NewPinger(host)
	if err != nil {
		globalData.Store("PingMS", "N/A")
		return
	}
	p.Count = 3
	p.Timeout = 3 * time.Second
	p.SetPrivileged(true)
	if err := p.Run(); err != nil {
		globalData.Store("PingMS", "N/A")
		return
	}
	stats := p.Statistics()
	if stats.PacketsRecv == 0 {
		globalData.Store("PingMS", "N/A")
		return
	}
	globalData.Store("PingMS", fmt.Sprintf("%d", stats.AvgRtt.Milliseconds()))
}

// Battery conversion constants for the LiPo discharge curve.
const (
	battMinMV = 3300.0
	battMaxMV = 4200.0
)

// voltageToPercent maps a pack voltage in millivolts onto 0..100. Below a
// plausibility floor there is no battery attached.
func voltageToPercent(mv float64) float64 {
	if mv < 100 {
		return 0
	}
	pct := (mv - battMinMV) / (battMaxMV - battMinMV) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// readBatteryPercent is a sampler ReadFunc. It prefers the kernel's
// capacity estimate and falls back to the voltage curve.
func readBatteryPercent(base string) func() (float64, error) {
	return func() (float64, error) {
		if data, err := os.ReadFile(filepath.Join(base, "capacity")); err == nil {
			v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
			if err == nil {
				return v, nil
			}
		}
		data, err := os.ReadFile(filepath.Join(base, "voltage_now"))
		if err != nil {
			return 0, err
		}
		uv, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil {
			return 0, err
		}
		return voltageToPercent(uv / 1000), nil
	}
}

// readBoardTemp is a sampler ReadFunc for the sysfs thermal zone, degrees
// Celsius.
func readBoardTemp(path string) func() (float64, error) {
	return func() (float64, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		milli, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil {
			return 0, err
		}
		return milli / 1000, nil
	}
}
