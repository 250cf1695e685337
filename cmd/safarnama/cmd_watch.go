package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/safarnama/safarnama/internal/core/observability/log"
	"github.com/safarnama/safarnama/internal/server"
	"github.com/safarnama/safarnama/sdk/go/client"
)

var (
	watchURL      string
	watchLabels   []string
	watchFrames   int
	watchActivate string
)

// watchCmd connects to a running server like a renderer would and reports
// what it receives
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect to a field server and print frames as they arrive",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc := client.DefaultClientConfig()
	cc.ServerURL = watchURL
	if cc.ServerURL == "" {
		cc.ServerURL = "ws://" + cfg.Server.ListenAddr + "/ws"
	}
	cc.Width, cc.Height = cfg.Field.Width, cfg.Field.Height

	c := client.NewClient(cc, log.New(log.ParseLevel(cfg.Log.Level)))
	defer c.Close()

	out := cmd.OutOrStdout()
	seen := make(chan server.FrameMessage, 64)
	navigated := make(chan server.NavigateMessage, 1)
	c.OnFrame(func(f server.FrameMessage) {
		select {
		case seen <- f:
		default:
		}
	})
	c.OnNavigate(func(n server.NavigateMessage) {
		select {
		case navigated <- n:
		default:
		}
	})
	c.OnEvent(func(e client.Event) {
		if e.Type == client.EventTypeError {
			fmt.Fprintf(out, "server error: %s\n", e.Message)
		}
	})

	if err := c.Connect(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "session %s\n", c.SessionID())
	if err := c.Init(watchLabels); err != nil {
		return err
	}

	for n := 0; n < watchFrames; {
		select {
		case f := <-seen:
			n++
			fmt.Fprintf(out, "tick %d: %d bodies\n", f.Tick, len(f.Bodies))
		case <-c.Done():
			return fmt.Errorf("connection closed after %d frames", n)
		case <-ctx.Done():
			return nil
		}
	}

	if watchActivate == "" {
		return nil
	}
	if err := c.Activate(watchActivate); err != nil {
		return err
	}
	select {
	case nav := <-navigated:
		fmt.Fprintf(out, "navigate %s\n", nav.Route)
		return nil
	case <-c.Done():
		return fmt.Errorf("connection closed before navigation")
	case <-time.After(5 * time.Second):
		return fmt.Errorf("no navigation for %q", watchActivate)
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "websocket endpoint (default from server.listen_addr)")
	watchCmd.Flags().StringSliceVarP(&watchLabels, "labels", "l", []string{"Travel", "Food", "Culture"}, "genre labels to build the field from")
	watchCmd.Flags().IntVarP(&watchFrames, "frames", "n", 10, "frames to print before stopping")
	watchCmd.Flags().StringVar(&watchActivate, "activate", "", "activate this body after the frames and print the route")
}
