package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/sree6273/AI-meeting-summary/cli/render"
	"github.com/sree6273/AI-meeting-summary/cli/tui"
	"github.com/sree6273/AI-meeting-summary/log"
	"github.com/sree6273/AI-meeting-summary/metrics"
	"github.com/sree6273/AI-meeting-summary/record"
	"github.com/sree6273/AI-meeting-summary/session"
)

// ReplayCommand returns the replay command. A replay pushes a recorded
// capture through the full session engine offline, chunk boundaries
// preserved, so it reproduces the original run's state and outcome.
func ReplayCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "timed",
			Usage: "Honor recorded chunk timing offsets",
		},
	}
	flags = append(flags, ReadOnlyFlags()...)

	return &cli.Command{
		Name:      "replay",
		Usage:     "Re-run a captured session offline through the full engine",
		ArgsUsage: "<capture-file>",
		Flags:     flags,
		Action:    replayAction,
	}
}

func replayAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one capture file argument\nUsage: meeting-summary replay <capture-file>")
	}
	capturePath := c.Args().First()
	if _, err := os.Stat(capturePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("capture file not found: %s\nCheck the path: ls -la %s", capturePath, filepath.Dir(capturePath))
		}
		return fmt.Errorf("cannot access capture file %s: %w", capturePath, err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	useTUI := c.Bool("tui")
	if useTUI && !isStdoutTTY() {
		fmt.Fprintf(os.Stderr, "Warning: --tui requires a terminal, falling back to plain output\n")
		useTUI = false
	}

	replayer, err := record.NewReplayer(capturePath, c.Bool("timed"))
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}

	machine := session.NewMachine()
	collector := metrics.NewCollector("replay://"+capturePath, replayer.Header().Resource)

	// In TUI mode the terminal belongs to the view; logs are dropped
	var logger *log.Logger
	if useTUI {
		logger = log.NewLogger("").WithOutput(io.Discard)
	}

	controller, err := session.NewController(session.Config{
		Uploader: replayer,
		Opener:   replayer,
		Machine:  machine,
		Logger:   logger,
		Metrics:  collector,
	})
	if err != nil {
		return fmt.Errorf("failed to create session controller: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		controller.Cancel()
	}()

	// The replayer ignores the media path; the capture names the resource
	var result *session.Result
	if useTUI {
		result, err = tui.RunLiveTUI(tui.LiveSession{
			Media:   capturePath,
			Machine: machine,
			Run: func() (*session.Result, error) {
				return controller.Run(context.Background(), capturePath)
			},
			Cancel: controller.Cancel,
		})
	} else {
		result, err = controller.Run(context.Background(), capturePath)
	}
	if err != nil {
		return fmt.Errorf("replay failed to start: %w", err)
	}

	if err := r.Render(result); err != nil {
		return err
	}

	return cli.Exit("", result.Outcome.ExitCode())
}
