package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/evanphx/sysgate/kernel"
	clog "github.com/evanphx/sysgate/log"
	"github.com/evanphx/sysgate/syscalls"
)

var (
	fPassword    = pflag.StringP("password", "p", kernel.DefaultPassword, "password accepted by setuid")
	fHz          = pflag.Int("hz", 100, "timer ticks per second")
	fMaxProcs    = pflag.Int("max-procs", kernel.DefaultMaxProcs, "size of the process table")
	fMaxEnv      = pflag.Int("max-env", kernel.DefaultMaxEnv, "environment entries per process")
	fMemLimit    = pflag.Uint64("mem-limit", kernel.DefaultMemoryLimit, "per process memory limit in bytes")
	fEnvScope    = pflag.String("env-scope", "all", "processes listed by env: all or caller")
	fTrace       = pflag.BoolP("trace", "t", false, "log every syscall")
	fTraceFilter = pflag.String("trace-filter", "", "expression selecting traced syscalls, e.g. 'name == \"setenv\"'")
	fLogLevel    = pflag.String("log-level", "", "log level (trace, debug, info, warn, error)")
)

func main() {
	pflag.Parse()

	if *fLogLevel != "" && !clog.SetLevel(*fLogLevel) {
		log.Fatalf("unknown log level %q", *fLogLevel)
	}

	if *fHz <= 0 {
		log.Fatalf("hz must be positive, got %d", *fHz)
	}

	scope, err := kernel.ParseEnvScope(*fEnvScope)
	if err != nil {
		log.Fatal(err)
	}

	params := kernel.Params{
		Password:     *fPassword,
		MaxProcs:     *fMaxProcs,
		MaxEnv:       *fMaxEnv,
		MemoryLimit:  *fMemLimit,
		EnvDumpScope: scope,
		Console:      os.Stdout,
		Trace:        *fTrace,
		TraceFilter:  *fTraceFilter,
	}

	k, err := kernel.NewKernel(&params)
	if err != nil {
		log.Fatal(err)
	}

	inv, err := syscalls.NewInvoker(k)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	go k.Clock.Run(ctx, time.Second/time.Duration(*fHz))

	proc, err := k.InitProcess()
	if err != nil {
		log.Fatal(err)
	}

	var in io.Reader = os.Stdin

	if args := pflag.Args(); len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			log.Fatal(err)
		}

		defer f.Close()
		in = f
	}

	sh, err := newShell(k, inv, proc, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := sh.exec(ctx, scanner.Text()); err != nil {
			fmt.Fprintf(os.Stderr, "sysgate: %v\n", err)
		}

		if ctx.Err() != nil {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}
}
