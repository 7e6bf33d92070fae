package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sree6273/AI-meeting-summary/adapter"
	redisadapter "github.com/sree6273/AI-meeting-summary/adapter/redis"
	"github.com/sree6273/AI-meeting-summary/adapter/webhook"
	"github.com/sree6273/AI-meeting-summary/backend"
	"github.com/sree6273/AI-meeting-summary/cli/config"
	"github.com/sree6273/AI-meeting-summary/cli/render"
	"github.com/sree6273/AI-meeting-summary/cli/tui"
	"github.com/sree6273/AI-meeting-summary/log"
	"github.com/sree6273/AI-meeting-summary/metrics"
	"github.com/sree6273/AI-meeting-summary/record"
	"github.com/sree6273/AI-meeting-summary/session"
)

// defaultBackendURL is used when neither the flag nor the config file
// provides a backend.
const defaultBackendURL = "http://localhost:8000"

// RunCommand returns the run command.
// This is the only command that talks to the backend.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Upload a recording and stream its analysis to completion",
		ArgsUsage: "<media-file>",
		Flags: []cli.Flag{
			// Backend flags
			&cli.StringFlag{
				Name:  "backend-url",
				Usage: "Backend base URL (default " + defaultBackendURL + ")",
			},
			&cli.DurationFlag{
				Name:  "upload-timeout",
				Usage: "Upload request deadline (default 2m)",
			},
			// Upload driver flags
			&cli.StringFlag{
				Name:  "upload-driver",
				Usage: "Upload driver: http or s3",
			},
			&cli.StringFlag{
				Name:  "s3-bucket",
				Usage: "S3 bucket for the s3 upload driver",
			},
			&cli.StringFlag{
				Name:  "s3-prefix",
				Usage: "Key prefix within the S3 bucket",
			},
			&cli.StringFlag{
				Name:  "s3-region",
				Usage: "AWS region (optional, uses default chain)",
			},
			&cli.StringFlag{
				Name:  "s3-endpoint",
				Usage: "Custom S3 endpoint for S3-compatible providers",
			},
			&cli.BoolFlag{
				Name:  "s3-path-style",
				Usage: "Force path-style S3 addressing (MinIO, R2)",
			},
			// Capture flags
			&cli.StringFlag{
				Name:  "capture",
				Usage: "Directory for raw stream capture files",
			},
			// Notification flags
			&cli.StringFlag{
				Name:  "notify",
				Usage: "Completion notifier: webhook or redis",
			},
			&cli.StringFlag{
				Name:  "notify-url",
				Usage: "Notifier endpoint (webhook URL or redis:// URL)",
			},
			&cli.StringFlag{
				Name:  "notify-channel",
				Usage: "Redis pub/sub channel (redis notifier only)",
			},
			&cli.StringSliceFlag{
				Name:  "notify-header",
				Usage: "Custom webhook header as key=value (repeatable)",
			},
			&cli.DurationFlag{
				Name:  "notify-timeout",
				Usage: "Per-attempt notifier timeout",
			},
			&cli.IntFlag{
				Name:  "notify-retries",
				Usage: "Notifier retry attempts",
				Value: -1,
			},
			// Session flags
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Cancel the session after this duration",
			},
			ConfigFlag,
			FormatFlag,
			NoColorFlag,
			TUIFlag,
		},
		Action: runAction,
	}
}

// uploadChoice holds the resolved upload driver configuration.
type uploadChoice struct {
	driver string
	s3     backend.S3Config
}

// notifyChoice holds the resolved notifier configuration.
type notifyChoice struct {
	kind    string
	url     string
	channel string
	headers map[string]string
	timeout time.Duration
	retries int
}

func runAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one media file argument\nUsage: meeting-summary run <media-file>")
	}
	media := c.Args().First()
	if _, err := os.Stat(media); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("media file not found: %s\nCheck the path: ls -la %s", media, filepath.Dir(media))
		}
		return fmt.Errorf("cannot access media file %s: %w", media, err)
	}

	// Validate output format before any work happens
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// Config file values fill in for unset flags; flags always win
	var fileCfg *config.Config
	if path := c.String("config"); path != "" {
		fileCfg, err = config.Load(path)
		if err != nil {
			return err
		}
	}

	backendURL := resolveString(c, "backend-url",
		configVal(fileCfg, func(fc *config.Config) string { return fc.Backend.URL }))
	if backendURL == "" {
		backendURL = defaultBackendURL
	}
	uploadTimeout := resolveDuration(c, "upload-timeout",
		configVal(fileCfg, func(fc *config.Config) time.Duration { return fc.Backend.UploadTimeout.Duration }))

	client, err := backend.NewClient(backend.ClientConfig{
		BaseURL:       backendURL,
		UploadTimeout: uploadTimeout,
	})
	if err != nil {
		return fmt.Errorf("invalid backend config: %w", err)
	}

	uc := parseUploadConfigWithPrecedence(c, fileCfg)
	if err := validateUploadConfig(uc); err != nil {
		return err
	}

	// Build the notifier up front so configuration errors surface before
	// the upload starts.
	var notifier adapter.Adapter
	if kind := resolveString(c, "notify",
		configVal(fileCfg, func(fc *config.Config) string { return fc.Notify.Type })); kind != "" {
		nc, err := parseNotifyConfigWithPrecedence(c, fileCfg, kind)
		if err != nil {
			return err
		}
		notifier, err = buildNotifier(nc)
		if err != nil {
			return fmt.Errorf("failed to create %s notifier: %w", nc.kind, err)
		}
		defer func() { _ = notifier.Close() }()
	}

	useTUI := resolveBool(c, "tui",
		configVal(fileCfg, func(fc *config.Config) bool { return fc.TUI }))
	if useTUI && !isStdoutTTY() {
		fmt.Fprintf(os.Stderr, "Warning: --tui requires a terminal, falling back to plain output\n")
		useTUI = false
	}

	uploader, err := buildUploader(c.Context, uc, client)
	if err != nil {
		return err
	}

	// Capture recording is optional; an empty dir disables it
	var recorder session.Recorder
	captureDir := resolveString(c, "capture",
		configVal(fileCfg, func(fc *config.Config) string { return fc.Capture.Dir }))
	if captureDir != "" {
		if err := validateCaptureDir(captureDir); err != nil {
			return err
		}
		capturePath := filepath.Join(captureDir, captureFileName(media, time.Now()))
		w, err := record.NewWriter(capturePath)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %w", err)
		}
		defer func() { _ = w.Close() }()
		recorder = w
	}

	machine := session.NewMachine()
	collector := metrics.NewCollector(backendURL, filepath.Base(media))

	// In TUI mode the terminal belongs to the view; logs are dropped
	var logger *log.Logger
	if useTUI {
		logger = log.NewLogger("").WithOutput(io.Discard)
	}

	controller, err := session.NewController(session.Config{
		Uploader: uploader,
		Opener:   client,
		Machine:  machine,
		Logger:   logger,
		Metrics:  collector,
		Recorder: recorder,
	})
	if err != nil {
		return fmt.Errorf("failed to create session controller: %w", err)
	}

	// SIGINT/SIGTERM request cooperative cancellation; the session still
	// winds down and reports a cancelled outcome
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		controller.Cancel()
	}()

	if timeout := c.Duration("timeout"); timeout > 0 {
		timer := time.AfterFunc(timeout, controller.Cancel)
		defer timer.Stop()
	}

	var result *session.Result
	if useTUI {
		result, err = tui.RunLiveTUI(tui.LiveSession{
			Media:   media,
			Machine: machine,
			Run: func() (*session.Result, error) {
				return controller.Run(context.Background(), media)
			},
			Cancel: controller.Cancel,
		})
	} else {
		result, err = controller.Run(context.Background(), media)
	}
	if err != nil {
		return fmt.Errorf("session failed to start: %w", err)
	}

	if err := r.Render(result); err != nil {
		return err
	}

	if notifier != nil {
		publishCompletion(notifier, buildSessionCompletedEvent(result, media))
	}

	return cli.Exit("", result.Outcome.ExitCode())
}

// parseUploadConfigWithPrecedence resolves the upload driver settings
// from flags and config file.
func parseUploadConfigWithPrecedence(c *cli.Context, fileCfg *config.Config) uploadChoice {
	driver := resolveString(c, "upload-driver",
		configVal(fileCfg, func(fc *config.Config) string { return fc.Upload.Driver }))
	if driver == "" {
		driver = "http"
	}
	return uploadChoice{
		driver: driver,
		s3: backend.S3Config{
			Bucket: resolveString(c, "s3-bucket",
				configVal(fileCfg, func(fc *config.Config) string { return fc.Upload.S3.Bucket })),
			Prefix: resolveString(c, "s3-prefix",
				configVal(fileCfg, func(fc *config.Config) string { return fc.Upload.S3.Prefix })),
			Region: resolveString(c, "s3-region",
				configVal(fileCfg, func(fc *config.Config) string { return fc.Upload.S3.Region })),
			Endpoint: resolveString(c, "s3-endpoint",
				configVal(fileCfg, func(fc *config.Config) string { return fc.Upload.S3.Endpoint })),
			UsePathStyle: resolveBool(c, "s3-path-style",
				configVal(fileCfg, func(fc *config.Config) bool { return fc.Upload.S3.PathStyle })),
		},
	}
}

func validateUploadConfig(uc uploadChoice) error {
	switch uc.driver {
	case "http":
		return nil
	case "s3":
		if uc.s3.Bucket == "" {
			return fmt.Errorf("--s3-bucket is required when --upload-driver=s3\nFormat: --s3-bucket my-recordings")
		}
		return nil
	default:
		return fmt.Errorf("invalid --upload-driver: %q\nValid options: http, s3", uc.driver)
	}
}

// buildUploader selects the upload transport. The analysis stream is
// always opened against the backend regardless of the driver.
func buildUploader(ctx context.Context, uc uploadChoice, client *backend.Client) (session.Uploader, error) {
	switch uc.driver {
	case "http":
		return client, nil
	case "s3":
		uploader, err := backend.NewS3Uploader(ctx, uc.s3)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 uploader: %w", err)
		}
		return uploader, nil
	default:
		return nil, fmt.Errorf("unknown upload driver: %s", uc.driver)
	}
}

func validateCaptureDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("capture directory does not exist: %s\nCreate it first: mkdir -p %s", dir, dir)
		}
		return fmt.Errorf("cannot access capture directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("capture path is not a directory: %s", dir)
	}
	return nil
}

// captureFileName derives the capture file name from the media stem and
// the session start time.
func captureFileName(media string, now time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(media), filepath.Ext(media))
	if stem == "" {
		stem = "session"
	}
	return fmt.Sprintf("%s-%s.capture", stem, now.UTC().Format("20060102-150405"))
}

// parseNotifyConfigWithPrecedence resolves notifier settings from flags
// and config file. CLI flags win; config headers are overlaid by CLI
// headers per key.
func parseNotifyConfigWithPrecedence(c *cli.Context, fileCfg *config.Config, kind string) (notifyChoice, error) {
	nc := notifyChoice{kind: kind}

	switch kind {
	case "webhook":
		nc.retries = webhook.DefaultRetries
	case "redis":
		nc.retries = redisadapter.DefaultRetries
	default:
		return nc, fmt.Errorf("unknown notify type: %q\nValid options: webhook, redis", kind)
	}

	nc.url = resolveString(c, "notify-url",
		configVal(fileCfg, func(fc *config.Config) string { return fc.Notify.URL }))
	if nc.url == "" {
		switch kind {
		case "webhook":
			return nc, fmt.Errorf("--notify-url is required when --notify=webhook\nFormat: --notify-url https://hooks.example.com/meetings")
		case "redis":
			return nc, fmt.Errorf("--notify-url is required when --notify=redis\nFormat: --notify-url redis://localhost:6379/0")
		}
	}

	nc.channel = resolveString(c, "notify-channel",
		configVal(fileCfg, func(fc *config.Config) string { return fc.Notify.Channel }))
	nc.timeout = resolveDuration(c, "notify-timeout",
		configVal(fileCfg, func(fc *config.Config) time.Duration { return fc.Notify.Timeout.Duration }))

	if cfgRetries := configVal(fileCfg, func(fc *config.Config) *int { return fc.Notify.Retries }); cfgRetries != nil {
		nc.retries = *cfgRetries
	}
	if c.IsSet("notify-retries") {
		nc.retries = c.Int("notify-retries")
	}

	nc.headers = map[string]string{}
	for k, v := range configVal(fileCfg, func(fc *config.Config) map[string]string { return fc.Notify.Headers }) {
		nc.headers[k] = v
	}
	for _, h := range c.StringSlice("notify-header") {
		key, value, ok := strings.Cut(h, "=")
		if !ok || key == "" {
			return nc, fmt.Errorf("invalid --notify-header %q\nFormat: key=value, e.g. X-Api-Key=secret", h)
		}
		nc.headers[key] = value
	}

	return nc, nil
}

func buildNotifier(nc notifyChoice) (adapter.Adapter, error) {
	switch nc.kind {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     nc.url,
			Headers: nc.headers,
			Timeout: nc.timeout,
			Retries: nc.retries,
		})
	case "redis":
		return redisadapter.New(redisadapter.Config{
			URL:     nc.url,
			Channel: nc.channel,
			Timeout: nc.timeout,
			Retries: nc.retries,
		})
	default:
		return nil, fmt.Errorf("unknown notify type: %s", nc.kind)
	}
}

// buildSessionCompletedEvent maps a session result onto the notification
// payload.
func buildSessionCompletedEvent(result *session.Result, media string) *adapter.SessionCompletedEvent {
	return &adapter.SessionCompletedEvent{
		SchemaVersion:       adapter.EventSchemaVersion,
		EventType:           adapter.EventTypeSessionCompleted,
		SessionID:           result.SessionID,
		Media:               filepath.Base(media),
		Resource:            result.Resource,
		Outcome:             string(result.Outcome),
		Status:              result.State.Status,
		Transcript:          result.State.Transcript,
		Summary:             result.State.Summary,
		Decisions:           result.State.Decisions,
		ActionItems:         result.State.ActionItems,
		Error:               result.State.ErrorText(),
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		TranscriptFragments: result.Metrics.TranscriptFragments,
		SummaryFragments:    result.Metrics.SummaryFragments,
		DurationMs:          result.DurationMS,
		CapturePath:         result.CapturePath,
	}
}

// publishCompletion delivers the completion event. Failures are logged
// and never alter the session outcome or exit code.
func publishCompletion(notifier adapter.Adapter, event *adapter.SessionCompletedEvent) {
	if err := notifier.Publish(context.Background(), event); err != nil {
		log.NewLogger(event.SessionID).Warn("notification publish failed", map[string]any{
			"error":   err.Error(),
			"outcome": event.Outcome,
		})
	}
}

// isStdoutTTY returns true if stdout is a TTY.
func isStdoutTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// --- Config precedence helpers ---

// configVal extracts a value from an optional config file.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// resolveString applies flag > config > flag-default precedence.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if cfgVal != "" {
		return cfgVal
	}
	return c.String(name)
}

// resolveDuration applies flag > config > flag-default precedence.
func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Duration(name)
}

// resolveBool applies flag > config > flag-default precedence.
func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	if cfgVal {
		return true
	}
	return c.Bool(name)
}

// resolveInt applies flag > config > flag-default precedence.
func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Int(name)
}
