package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Port        int    `long:"port" description:"TCP port to listen on once ready (debug feature)"`
	ReadyDelay  int    `long:"ready-delay" description:"Seconds to wait before becoming ready (debug feature)"`
	ReadyMarker string `long:"ready-marker" description:"Line to print when ready, for log-pattern probes (debug feature)"`
	RunDuration int    `long:"run-duration" description:"Seconds to run before exiting on its own (debug feature)"`
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running Sleeptest, opts: %+v...\n", opts)

	if opts.ReadyDelay > 0 {
		fmt.Printf("Using READY DELAY of %d seconds\n", opts.ReadyDelay)
		time.Sleep(time.Duration(opts.ReadyDelay) * time.Second)
	}

	var listener net.Listener
	if opts.Port > 0 {
		listener, err = net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", opts.Port))
		if err != nil {
			fmt.Printf("Failed to listen on port %d: %v\n", opts.Port, err)
			os.Exit(1)
		}
		defer listener.Close()
		fmt.Printf("Sleeptest is listening on port %d\n", opts.Port)

		go func() {
			for {
				conn, err := listener.Accept()
				if err != nil {
					return
				}
				conn.Close()
			}
		}()
	}

	if opts.ReadyMarker != "" {
		fmt.Println(opts.ReadyMarker)
	}

	// Enable signal handling
	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig) // Unix signals not implemented on Windows
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}

	var timeout <-chan time.Time
	if opts.RunDuration > 0 {
		fmt.Printf("Using RUN DURATION of %d seconds\n", opts.RunDuration)
		timeout = time.After(time.Duration(opts.RunDuration) * time.Second)
	}

	fmt.Printf("Sleeptest is ready\n")

	// Wait for graceful shutdown or timeout
	select {
	case receivedSignal := <-sig:
		fmt.Printf("Sleeptest received signal: %v\n", receivedSignal)
	case <-timeout:
		fmt.Printf("Sleeptest run duration elapsed\n")
	}

	fmt.Printf("Sleeptest done\n")
}
