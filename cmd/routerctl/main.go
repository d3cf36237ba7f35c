// ABOUTME: Command-line client for the router control API
// ABOUTME: Inspects state, manages sinks and modules, discovers routers via mDNS
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-router/internal/control"
	"github.com/Resonate-Protocol/resonate-router/internal/discovery"
	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

var (
	serverAddr = flag.String("server", "", "Router address host:port (default: first router found via mDNS)")
	timeout    = flag.Duration("timeout", 5*time.Second, "Request timeout")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

const usage = `Usage: routerctl [flags] <command> [args]

Commands:
  discover                  list routers on the local network
  state                     print sinks, modules and the default sink
  add-sink <name> [hw]      create a sink, "hw" makes it a hardware sink
  remove-sink <name>        unlink a sink
  set-default <name>        configure the default sink
  load <module> [args...]   load a module, remaining words form its argument
  unload <index>            unload a module
  watch                     print every state change until interrupted

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log.SetFlags(0)
	if !*debug {
		log.SetOutput(io.Discard)
	}

	if err := run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "routerctl: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	if cmd == "discover" {
		return discover()
	}

	addr, err := resolveAddr()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := control.Dial(ctx, control.ClientConfig{ServerAddr: addr, Name: "routerctl", Debug: *debug})
	if err != nil {
		return err
	}
	defer client.Close()

	switch cmd {
	case "state":
		st, err := client.State(ctx)
		if err != nil {
			return err
		}
		printState(os.Stdout, st)
		return nil

	case "add-sink":
		if len(args) < 1 {
			return fmt.Errorf("add-sink needs a name")
		}
		hw := len(args) > 1 && args[1] == "hw"
		idx, err := client.AddSink(ctx, args[0], hw)
		if err != nil {
			return err
		}
		fmt.Printf("sink #%d\n", idx)
		return nil

	case "remove-sink":
		if len(args) != 1 {
			return fmt.Errorf("remove-sink needs a name")
		}
		return client.RemoveSink(ctx, args[0])

	case "set-default":
		if len(args) != 1 {
			return fmt.Errorf("set-default needs a name")
		}
		return client.SetDefault(ctx, args[0])

	case "load":
		if len(args) < 1 {
			return fmt.Errorf("load needs a module name")
		}
		idx, err := client.LoadModule(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("module #%d\n", idx)
		return nil

	case "unload":
		if len(args) != 1 {
			return fmt.Errorf("unload needs a module index")
		}
		idx, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid module index %q", args[0])
		}
		return client.UnloadModule(ctx, uint32(idx))

	case "watch":
		st, err := client.State(ctx)
		if err != nil {
			return err
		}
		printState(os.Stdout, st)
		fmt.Println()

		// Runs until interrupted
		for st := range client.States {
			printState(os.Stdout, st)
			fmt.Println()
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func resolveAddr() (string, error) {
	if *serverAddr != "" {
		return *serverAddr, nil
	}

	routers, err := discovery.Lookup(*timeout)
	if err != nil {
		return "", err
	}
	if len(routers) == 0 {
		return "", fmt.Errorf("no router found, use -server")
	}
	return routers[0].Addr(), nil
}

func discover() error {
	routers, err := discovery.Lookup(*timeout)
	if err != nil {
		return err
	}
	if len(routers) == 0 {
		fmt.Println("no routers found")
		return nil
	}
	for _, r := range routers {
		fmt.Printf("%s\t%s%s\t%s %s\n", r.Name, r.Addr(), r.Path, r.Product, r.Version)
	}
	return nil
}

func printState(w io.Writer, st router.State) {
	fmt.Fprintf(w, "router %s (%s)\n", st.Name, st.ServerID)
	fmt.Fprintf(w, "default sink: %s\n", st.DefaultSink)

	fmt.Fprintln(w, "sinks:")
	for _, s := range st.Sinks {
		marker := " "
		if s.IsDefault {
			marker = "*"
		}
		kind := "virtual"
		if s.Hardware {
			kind = "hardware"
		}
		owner := "-"
		if s.Owner != nil {
			owner = strconv.FormatUint(uint64(*s.Owner), 10)
		}
		fmt.Fprintf(w, " %s #%-3d %-24s %-8s %-8s owner=%s frames=%d\n", marker, s.Index, s.Name, kind, s.State, owner, s.Frames)
		for _, k := range host.Proplist(s.Proplist).Keys() {
			fmt.Fprintf(w, "        %s=%s\n", k, s.Proplist[k])
		}
	}

	fmt.Fprintln(w, "modules:")
	for _, m := range st.Modules {
		fmt.Fprintf(w, "   #%-3d %s %s\n", m.Index, m.Name, m.Argument)
		for _, k := range host.Proplist(m.Proplist).Keys() {
			fmt.Fprintf(w, "        %s=%s\n", k, m.Proplist[k])
		}
	}
}
