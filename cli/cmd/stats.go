package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/sree6273/AI-meeting-summary/cli/reader"
	"github.com/sree6273/AI-meeting-summary/cli/render"
)

// StatsCommand returns the stats command.
// Stats decodes a capture's chunks through the same path the live read
// loop uses and reports the message-type breakdown.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show message statistics derived from a capture file",
		ArgsUsage: "<capture-file>",
		Flags:     TUIReadOnlyFlags(),
		Action:    statsAction,
	}
}

func statsAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("capture file required", 1)
	}
	capturePath := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	stats, err := reader.StatsCapture(capturePath)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_capture", stats)
	}

	return r.Render(stats)
}
