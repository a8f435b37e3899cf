// ════════════════════════════════════════════════════════════════════════════════════════════════
// Unified Kernel Core - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Main Entry Point & System Orchestration
//
// Description:
//   System orchestration with phased initialization and clean separation of concerns.
//   Bootstrap → Warm-Up → Memory Optimization → Production Trap Processing
//
// Architecture:
//   - Phase 0: Configuration, syscall table bootstrap, subsystem init
//   - Phase 1: Synthetic warm-up traffic to train the adaptive fast path
//   - Phase 2: Memory cleanup and GC disablement for production
//   - Phase 3: Core-pinned trap consumers with telemetry flushing
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"database/sql"
	"os"
	"os/signal"
	"runtime"
	rtdebug "runtime/debug"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"

	"main/constants"
	"main/control"
	"main/debug"
	"main/dispatch"
	"main/sched"
	"main/simload"
	"main/telemetry"
	"main/trapring"
	"main/utils"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Config is the process configuration, loaded from kernelcore.json when
// present. Zero-valued fields fall back to defaults.
type Config struct {
	NumCPUs          int     `json:"num_cpus"`
	RingSize         int     `json:"ring_size"`
	WarmupTraps      int     `json:"warmup_traps"`
	ArrivalRate      float64 `json:"arrival_rate"`
	SyscallTablePath string  `json:"syscall_table_path"`
	TelemetryPath    string  `json:"telemetry_path"`
	SnapshotPath     string  `json:"snapshot_path"`

	EnableFastPath             *bool  `json:"enable_fast_path"`
	EnablePerCpuCache          *bool  `json:"enable_per_cpu_cache"`
	EnableMonitoring           *bool  `json:"enable_monitoring"`
	EnableAdaptiveOptimization *bool  `json:"enable_adaptive_optimization"`
	FastPathUpdateInterval     uint32 `json:"fast_path_update_interval"`
}

// loadConfig reads kernelcore.json if it exists and applies defaults.
func loadConfig(path string) Config {
	cfg := Config{
		NumCPUs:          runtime.NumCPU(),
		RingSize:         constants.TrapRingSize,
		WarmupTraps:      4 * constants.FastPathUpdateInterval,
		ArrivalRate:      2.0,
		SyscallTablePath: "syscall_table.db",
		TelemetryPath:    "kernelcore_telemetry.db",
		SnapshotPath:     "kernelcore_stats.json",
	}

	data, err := os.ReadFile(path)
	if err != nil {
		debug.DropMessage("CONFIG", "using defaults ("+path+" not readable)")
		return cfg
	}
	if err := sonnet.Unmarshal(data, &cfg); err != nil {
		debug.DropError("CONFIG", err)
		return cfg
	}
	if cfg.NumCPUs < 1 {
		cfg.NumCPUs = runtime.NumCPU()
	}
	if cfg.RingSize <= 0 || cfg.RingSize&(cfg.RingSize-1) != 0 {
		cfg.RingSize = constants.TrapRingSize
	}
	return cfg
}

// dispatchConfig converts the process config into dispatcher flags.
// Unset booleans mean enabled.
func (c Config) dispatchConfig() dispatch.Config {
	dc := dispatch.DefaultConfig()
	if c.EnableFastPath != nil {
		dc.EnableFastPath = *c.EnableFastPath
	}
	if c.EnablePerCpuCache != nil {
		dc.EnablePerCpuCache = *c.EnablePerCpuCache
	}
	if c.EnableMonitoring != nil {
		dc.EnableMonitoring = *c.EnableMonitoring
	}
	if c.EnableAdaptiveOptimization != nil {
		dc.EnableAdaptiveOptimization = *c.EnableAdaptiveOptimization
	}
	if c.FastPathUpdateInterval > 0 {
		dc.FastPathUpdateInterval = c.FastPathUpdateInterval
	}
	return dc
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// MAIN ORCHESTRATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// main orchestrates the complete system lifecycle in distinct phases.
func main() {
	// PHASE 0: Configuration and subsystem initialization
	debug.DropMessage("INIT", "Loading configuration")
	cfg := loadConfig("kernelcore.json")

	scheduler := sched.Init(cfg.NumCPUs)
	dispatcher := dispatch.Init(scheduler.NumCPUs(), cfg.dispatchConfig())

	registerBuiltinSyscalls(dispatcher, scheduler)
	n := loadSyscallTable(dispatcher, cfg.SyscallTablePath)
	debug.DropMessage("LOADED", utils.Itoa(n)+" syscalls from table, "+
		utils.Itoa(scheduler.NumCPUs())+" cpus")

	recorder, err := telemetry.Open(cfg.TelemetryPath)
	if err != nil {
		debug.DropError("TELEMETRY", err)
		os.Exit(1)
	}

	setupSignalHandling()
	debug.DropMessage("READY", "System initialized")

	// PHASE 1: Warm-up traffic trains the adaptive fast path before the
	// latency-sensitive phase begins.
	gen := simload.New(1, cfg.ArrivalRate, 128)
	warmup(gen, scheduler, dispatcher, cfg.WarmupTraps)
	debug.DropMessage("WARMUP", utils.Itoa(cfg.WarmupTraps)+" traps dispatched")

	// PHASE 2: Memory optimization for deterministic runtime behavior
	runtime.GC()
	runtime.GC() // Double GC to ensure thorough cleanup
	rtdebug.FreeOSMemory()
	rtdebug.SetGCPercent(-1) // Disable garbage collection
	runtime.LockOSThread()   // Lock the producer to its OS thread
	control.ForceHot()       // Enter active mode

	// PHASE 3: Production trap processing on core-pinned consumers
	runProduction(cfg, gen, scheduler, dispatcher, recorder)

	// Final sample before exit.
	recorder.Flush(scheduler.GetStats(), dispatcher.GetStats())
	if err := recorder.ExportJSON(cfg.SnapshotPath, scheduler.GetStats(), dispatcher.GetStats()); err != nil {
		debug.DropError("SNAPSHOT", err)
	}
	if err := recorder.Close(); err != nil {
		debug.DropError("TELEMETRY", err)
	}
	debug.DropMessage("EXIT", "Shutdown complete")
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SYSCALL TABLE BOOTSTRAP
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// registerBuiltinSyscalls installs the handful of syscalls the core itself
// implements. Numbers 0-4 get explicit fast-path slots; the rest of the
// table arrives from the bootstrap database.
func registerBuiltinSyscalls(d *dispatch.UnifiedSyscallDispatcher, s *sched.UnifiedScheduler) {
	must := func(err error) {
		if err != nil {
			debug.DropError("REGISTER", err)
			os.Exit(1)
		}
	}

	must(d.RegisterFastPath(0, "sys_noop", func(args []uint64) (uint64, error) {
		return 0, nil
	}))

	must(d.RegisterFastPath(1, "sys_time", func(args []uint64) (uint64, error) {
		return utils.Cputicks(), nil
	}))

	must(d.RegisterFastPath(2, "sys_getpid", func(args []uint64) (uint64, error) {
		if len(args) < 1 {
			return 0, dispatch.ErrInvalidArguments
		}
		info, err := s.GetThreadInfo(sched.Tid(args[0]))
		if err != nil {
			return 0, err
		}
		return uint64(info.Pid), nil
	}))

	must(d.RegisterFastPath(3, "sys_setpriority", func(args []uint64) (uint64, error) {
		if len(args) < 2 {
			return 0, dispatch.ErrInvalidArguments
		}
		return 0, s.SetPriority(sched.Tid(args[0]), int(args[1]))
	}))

	must(d.RegisterFastPath(4, "sys_exit", func(args []uint64) (uint64, error) {
		if len(args) < 1 {
			return 0, dispatch.ErrInvalidArguments
		}
		if err := s.SetThreadState(sched.Tid(args[0]), sched.StateZombie); err != nil {
			return 0, err
		}
		s.UnregisterThread(sched.Tid(args[0]))
		return 0, nil
	}))
}

// loadSyscallTable reads (num, name) rows from the bootstrap database and
// registers a generic handler for each number not already supported.
// A missing database is not fatal; the builtins alone are a working set.
func loadSyscallTable(d *dispatch.UnifiedSyscallDispatcher, path string) int {
	if _, err := os.Stat(path); err != nil {
		debug.DropMessage("SYSTAB", "no syscall table at "+path)
		return 0
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		debug.DropError("SYSTAB", err)
		return 0
	}
	defer db.Close()

	rows, err := db.Query(`SELECT num, name FROM syscalls ORDER BY num`)
	if err != nil {
		debug.DropError("SYSTAB", err)
		return 0
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var num int64
		var name string
		if err := rows.Scan(&num, &name); err != nil {
			debug.DropError("SYSTAB", err)
			break
		}
		if num < 0 || d.IsSupported(uint32(num)) {
			continue
		}
		// Table-loaded syscalls are acknowledged but unimplemented here;
		// they return their own number so traffic is attributable.
		n := uint64(num)
		d.RegisterHandler(uint32(num), dispatch.NewFuncHandler(name,
			func(args []uint64) (uint64, error) {
				return n, nil
			}))
		count++
	}
	if err := rows.Err(); err != nil {
		debug.DropError("SYSTAB", err)
	}
	return count
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// WARM-UP
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// warmup pushes synthetic traps straight through the dispatcher, rotating
// across CPUs so every per-CPU cache sees the hot syscall mix.
func warmup(gen *simload.Generator, s *sched.UnifiedScheduler, d *dispatch.UnifiedSyscallDispatcher, traps int) {
	tid := gen.SpawnThread(s)
	for i := 0; i < traps; i++ {
		cpu := i % s.NumCPUs()
		ev := gen.NextTrap(tid)
		_, _ = d.Dispatch(cpu, ev.Num, ev.Args[:])
		if i%16 == 0 {
			s.Schedule(cpu)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PRODUCTION TRAP PROCESSING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// runProduction launches one core-pinned consumer per CPU, each draining
// its own trap ring, then produces synthetic trap traffic until shutdown.
func runProduction(
	cfg Config,
	gen *simload.Generator,
	s *sched.UnifiedScheduler,
	d *dispatch.UnifiedSyscallDispatcher,
	recorder *telemetry.Recorder,
) {
	numCPUs := s.NumCPUs()
	rings := make([]*trapring.Ring, numCPUs)
	dones := make([]chan struct{}, numCPUs)
	stopFlag, hotFlag := control.Flags()

	for cpu := 0; cpu < numCPUs; cpu++ {
		rings[cpu] = trapring.New(cfg.RingSize)
		dones[cpu] = make(chan struct{})

		c := cpu
		handler := func(ev *trapring.TrapEvent) {
			_, _ = d.Dispatch(c, ev.Num, ev.Args[:])
			s.Schedule(c)
		}

		control.ShutdownWG.Add(1)
		go func(done <-chan struct{}) {
			<-done
			control.ShutdownWG.Done()
		}(dones[cpu])

		if cpu == 0 {
			trapring.PinnedConsumerWithCooldown(cpu, rings[cpu], stopFlag, hotFlag, handler, dones[cpu])
		} else {
			trapring.PinnedConsumer(cpu, rings[cpu], stopFlag, hotFlag, handler, dones[cpu])
		}
	}
	debug.DropMessage("PROD", utils.Itoa(numCPUs)+" pinned consumers running")

	// Producer loop: Poisson thread arrivals, Zipf trap mix, round-robin
	// ring placement, periodic telemetry flush.
	lastFlush := time.Now()
	var dropped uint64
	cursor := 0
	var tids []sched.Tid

	for !control.Stopping() {
		for n := gen.NextArrivals(); n > 0; n-- {
			tids = append(tids, gen.SpawnThread(s))
			if len(tids) > 4096 {
				tids = tids[1:]
			}
		}
		if len(tids) == 0 {
			tids = append(tids, gen.SpawnThread(s))
		}

		for i := 0; i < 64; i++ {
			ev := gen.NextTrap(tids[cursor%len(tids)])
			if !rings[cursor%numCPUs].Push(&ev) {
				dropped++ // consumer behind, trap dropped
			}
			cursor++
		}
		control.SignalActivity()

		if time.Since(lastFlush) >= constants.TelemetryFlushInterval {
			lastFlush = time.Now()
			ss, ds := s.GetStats(), d.GetStats()
			recorder.Flush(ss, ds)
			if err := recorder.ExportJSON(cfg.SnapshotPath, ss, ds); err != nil {
				debug.DropError("SNAPSHOT", err)
			}
			if dropped > 0 {
				debug.DropMessage("DROPPED", utils.Itoa(int(dropped))+" traps")
			}
			checkHeapGuardrails()
		}
	}

	// Drain: consumers observe the stop flag and exit their loops.
	control.ShutdownWG.Wait()
}

// checkHeapGuardrails polices heap growth while the collector is disabled.
// Crossing the soft limit forces a collection cycle; crossing the hard
// limit means a leak in a GC-disabled loop and aborts the process.
func checkHeapGuardrails() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapAlloc > constants.HeapHardLimit {
		debug.DropMessage("HEAP", "hard limit exceeded: "+utils.Itoa(int(ms.HeapAlloc>>20))+" MiB")
		os.Exit(2)
	}
	if ms.HeapAlloc > constants.HeapSoftLimit {
		debug.DropMessage("HEAP", "soft limit exceeded, forcing GC")
		runtime.GC()
		rtdebug.FreeOSMemory()
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SIGNAL HANDLING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// setupSignalHandling configures graceful shutdown coordination.
func setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		debug.DropMessage("SIGNAL", "Received interrupt, shutting down...")
		control.Shutdown()
	}()
}
