// Command simcli is the host driver: it parses the CLI surface, admits
// processes from a JSON descriptor, drives the scheduler's tick loop to
// completion (or a cycle budget), and reports the result.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/smpsim/coresim"
	"github.com/smpsim/coresim/internal/cache"
	"github.com/smpsim/coresim/internal/config"
	"github.com/smpsim/coresim/internal/loader"
	"github.com/smpsim/coresim/internal/logging"
	"github.com/smpsim/coresim/internal/report"
	"github.com/smpsim/coresim/internal/scheduler"
)

const exitOK, exitConfigError, exitRuntimeFault = 0, 1, 2

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `simcli — multicore process scheduling simulator

Usage:
  simcli [flags] <descriptor.json>

Flags:
`)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  simcli --policy rr --quantum 100 --cores 4 workload.json
  simcli --policy prio_preempt --cores 1 --csv out.csv workload.json
`)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("simcli", flag.ContinueOnError)
	fs.Usage = func() { usage(fs) }

	cores := fs.Int("cores", 2, "number of cores")
	quantum := fs.Int("quantum", 100, "instructions per dispatch for rr/prio_preempt")
	policy := fs.String("policy", "rr", "scheduling policy: fcfs|sjn|rr|prio|prio_preempt")
	nonPreemptive := fs.Bool("non-preemptive", false, "equivalent to quantum = infinity for rr")
	maxCycles := fs.Int("max-cycles", 0, "stop after this many ticks even if unfinished (0 = unbounded)")
	cacheCapacity := fs.Int("cache-capacity", 64, "per-core L1 capacity, in words")
	cachePolicy := fs.String("cache-policy", "fifo", "per-core L1 replacement policy: fifo|lru")
	mainWords := fs.Int("main-words", 4096, "main memory size, in words")
	secWords := fs.Int("secondary-words", 16384, "secondary memory size, in words")
	csvPath := fs.String("csv", "", "write the CSV report to this path instead of stdout text")

	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}
	if fs.NArg() != 1 {
		usage(fs)
		return exitConfigError
	}

	cp := cache.FIFO
	if *cachePolicy == "lru" {
		cp = cache.LRU
	}

	cfg := config.Config{
		Cores:                *cores,
		Quantum:              *quantum,
		Policy:               scheduler.PolicyKind(*policy),
		NonPreemptive:        *nonPreemptive,
		CacheCapacity:        *cacheCapacity,
		CachePolicy:          cp,
		MainMemoryWords:      *mainWords,
		SecondaryMemoryWords: *secWords,
		MaxCycles:            *maxCycles,
	}

	log := logging.New(os.Stderr)

	sim, err := coresim.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return exitConfigError
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		log.Error().Err(err).Str("path", fs.Arg(0)).Msg("cannot open descriptor")
		return exitConfigError
	}
	defer f.Close()

	desc, err := loader.Decode(f)
	if err != nil {
		log.Error().Err(err).Msg("invalid descriptor")
		return exitConfigError
	}

	for _, p := range desc.Processes {
		if err := sim.AdmitDescriptor(p); err != nil {
			log.Error().Err(err).Int("pid", p.Pid).Msg("admit failed")
			return exitConfigError
		}
	}

	interactive := term.IsTerminal(int(os.Stderr.Fd()))
	lastStatus := time.Time{}
	onTick := func(p scheduler.Progress) {
		switch {
		case interactive:
			fmt.Fprintf(os.Stderr, "\rtick=%d ready=%d blocked=%d running=%d finished=%d/%d",
				p.Clock, p.Ready, p.Blocked, p.Running, p.Finished, p.Total)
		case time.Since(lastStatus) >= time.Second:
			fmt.Fprintf(os.Stderr, "tick=%d finished=%d/%d\n", p.Clock, p.Finished, p.Total)
			lastStatus = time.Now()
		}
	}

	ticks, err := sim.RunTicking(cfg.MaxCycles, onTick)
	if interactive {
		fmt.Fprintln(os.Stderr)
	}
	sim.Shutdown()
	if err != nil {
		log.Error().Err(err).Msg("runtime fault")
		return exitRuntimeFault
	}
	log.Info().Int("ticks", ticks).Bool("all_finished", sim.AllFinished()).Msg("run complete")

	run := sim.Report()
	if *csvPath != "" {
		out, err := os.Create(*csvPath)
		if err != nil {
			log.Error().Err(err).Msg("cannot create csv output")
			return exitRuntimeFault
		}
		defer out.Close()
		if err := report.WriteCSV(out, run); err != nil {
			log.Error().Err(err).Msg("writing csv report")
			return exitRuntimeFault
		}
		return exitOK
	}

	if err := report.WriteText(os.Stdout, run); err != nil {
		log.Error().Err(err).Msg("writing text report")
		return exitRuntimeFault
	}

	return exitOK
}
