// visionmate-monitor prints every state change of a running visionmate server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/visionmate/internal/log"
	"github.com/teslashibe/visionmate/pkg/controller"
	"github.com/teslashibe/visionmate/pkg/monitor"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "visionmate server URL")
	level := flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*level)

	client, err := monitor.New(*server, log.L())
	if err != nil {
		log.Error("bad server URL", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = client.Watch(ctx, func(s controller.Snapshot) {
		fmt.Println(monitor.Format(s))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("monitor stopped", "error", err)
		os.Exit(1)
	}
}
