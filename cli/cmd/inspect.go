package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/sree6273/AI-meeting-summary/cli/reader"
	"github.com/sree6273/AI-meeting-summary/cli/render"
)

// InspectCommand returns the inspect command.
// Inspect reads a capture file's envelope without replaying it.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show a capture file's header, shape, and recorded outcome",
		ArgsUsage: "<capture-file>",
		Flags:     TUIReadOnlyFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("capture file required", 1)
	}
	capturePath := c.Args().First()

	// Get renderer
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	resp, err := reader.InspectCapture(capturePath)
	if err != nil {
		return err
	}

	// Handle TUI mode
	if c.Bool("tui") {
		return r.RenderTUI("inspect_capture", resp)
	}

	// Standard render
	return r.Render(resp)
}
