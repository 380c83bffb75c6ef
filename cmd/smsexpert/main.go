// Command smsexpert is a terminal client for the SMS Expert notification
// inbox.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/ui/login"
)

var (
	// Version info (set via ldflags during build)
	Version = "dev"
)

const usage = `Usage: smsexpert [--config path] <command> [flags]

Commands:
  inbox    browse notifications (default)
  login    store the API base URL and token
  logout   forget the stored token
  status   print unread counters and maintenance state
  watch    poll counters in the foreground and log changes
  push     register or unregister a device push token
  version  print the version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, login.ErrAborted) || errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("smsexpert", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := global.String("config", model.DefaultConfigPath(), "path to config.yaml")
	if err := global.Parse(args); err != nil {
		return err
	}

	cmd, rest := "inbox", global.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	switch cmd {
	case "inbox":
		return runInbox(ctx, *configPath, rest)
	case "login":
		return runLogin(ctx, *configPath, rest)
	case "logout":
		return runLogout()
	case "status":
		return runStatus(ctx, *configPath, rest)
	case "watch":
		return runWatch(ctx, *configPath, rest)
	case "push":
		return runPush(ctx, *configPath, rest)
	case "version":
		fmt.Println("smsexpert", Version)
		return nil
	case "help":
		global.Usage()
		return nil
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
