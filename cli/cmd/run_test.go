package cmd

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sree6273/AI-meeting-summary/adapter"
	"github.com/sree6273/AI-meeting-summary/backend"
	"github.com/sree6273/AI-meeting-summary/cli/config"
	"github.com/sree6273/AI-meeting-summary/metrics"
	"github.com/sree6273/AI-meeting-summary/session"
	"github.com/sree6273/AI-meeting-summary/types"
)

func TestValidateUploadConfig(t *testing.T) {
	tests := []struct {
		name        string
		choice      uploadChoice
		wantErr     bool
		errContains string
	}{
		{
			name:    "http driver valid",
			choice:  uploadChoice{driver: "http"},
			wantErr: false,
		},
		{
			name:    "s3 with bucket valid",
			choice:  uploadChoice{driver: "s3", s3: backend.S3Config{Bucket: "my-recordings"}},
			wantErr: false,
		},
		{
			name:        "s3 without bucket invalid",
			choice:      uploadChoice{driver: "s3"},
			wantErr:     true,
			errContains: "--s3-bucket is required",
		},
		{
			name:        "unknown driver invalid",
			choice:      uploadChoice{driver: "ftp"},
			wantErr:     true,
			errContains: "invalid --upload-driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUploadConfig(tt.choice)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUploadErrorMessagesAreActionable(t *testing.T) {
	tests := []struct {
		name        string
		choice      uploadChoice
		mustContain []string
		description string
	}{
		{
			name:        "s3 missing bucket explains format",
			choice:      uploadChoice{driver: "s3"},
			mustContain: []string{"--s3-bucket", "Format:"},
			description: "should show how to pass the bucket",
		},
		{
			name:        "unknown driver lists options",
			choice:      uploadChoice{driver: "gcs"},
			mustContain: []string{"http", "s3", "Valid options"},
			description: "should list valid upload drivers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUploadConfig(tt.choice)
			if err == nil {
				t.Fatal("expected error")
			}
			errMsg := err.Error()
			for _, must := range tt.mustContain {
				if !strings.Contains(errMsg, must) {
					t.Errorf("%s: error message should contain %q for actionability\nGot: %s",
						tt.description, must, errMsg)
				}
			}
		})
	}
}

func TestValidateCaptureDir(t *testing.T) {
	t.Run("existing directory valid", func(t *testing.T) {
		if err := validateCaptureDir(t.TempDir()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("nonexistent directory suggests mkdir", func(t *testing.T) {
		err := validateCaptureDir("/nonexistent/capture/dir")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "does not exist") {
			t.Errorf("error should mention 'does not exist', got: %v", err)
		}
		if !strings.Contains(err.Error(), "mkdir -p") {
			t.Errorf("error should suggest mkdir -p, got: %v", err)
		}
	})

	t.Run("file instead of directory rejected", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not-a-dir")
		if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		err := validateCaptureDir(file)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "not a directory") {
			t.Errorf("error should mention 'not a directory', got: %v", err)
		}
	})
}

func TestCaptureFileName(t *testing.T) {
	at := time.Date(2026, 2, 8, 14, 30, 5, 0, time.UTC)

	tests := []struct {
		name  string
		media string
		want  string
	}{
		{
			name:  "wav file keeps stem",
			media: "/recordings/standup.wav",
			want:  "standup-20260208-143005.capture",
		},
		{
			name:  "extension stripped",
			media: "weekly-sync.mp3",
			want:  "weekly-sync-20260208-143005.capture",
		},
		{
			name:  "dotfile falls back to session",
			media: ".wav",
			want:  "session-20260208-143005.capture",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := captureFileName(tt.media, at)
			if got != tt.want {
				t.Errorf("captureFileName(%q) = %q, want %q", tt.media, got, tt.want)
			}
		})
	}
}

func TestCaptureFileName_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	at := time.Date(2026, 2, 8, 5, 0, 0, 0, loc)

	got := captureFileName("a.wav", at)
	if !strings.Contains(got, "20260208-000000") {
		t.Errorf("capture name should use UTC timestamp, got %q", got)
	}
}

// --- Config precedence and validation tests ---

// newTestCLIContext builds a minimal *cli.Context with the given flags set.
// flagValues maps flag names to their string values. All listed flags are
// registered and marked as explicitly set (c.IsSet returns true).
// defaultFlags maps flag names to default values (not explicitly set).
func newTestCLIContext(t *testing.T, flagValues map[string]string, defaultFlags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	// Register all flags
	allFlags := make(map[string]string)
	for k, v := range defaultFlags {
		allFlags[k] = v
	}
	for k, v := range flagValues {
		allFlags[k] = v
	}

	var cliFlags []cli.Flag
	for name, val := range allFlags {
		cliFlags = append(cliFlags, &cli.StringFlag{Name: name, Value: val})
	}
	app.Flags = cliFlags

	// Build a flagset with only the explicitly set flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, val := range allFlags {
		fs.String(name, val, "")
	}

	// Only set the flagValues (not defaults) so c.IsSet works
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}

	return cli.NewContext(app, fs, nil)
}

func TestResolveString_CLIWins(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"backend-url": "http://cli:8000"}, nil)
	got := resolveString(c, "backend-url", "http://config:8000")
	if got != "http://cli:8000" {
		t.Errorf("expected CLI to win, got %q", got)
	}
}

func TestResolveString_ConfigFallback(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"backend-url": ""})
	got := resolveString(c, "backend-url", "http://config:8000")
	if got != "http://config:8000" {
		t.Errorf("expected config fallback, got %q", got)
	}
}

func TestResolveString_UfaveDefault(t *testing.T) {
	c := newTestCLIContext(t, nil, map[string]string{"upload-driver": "http"})
	got := resolveString(c, "upload-driver", "")
	if got != "http" {
		t.Errorf("expected urfave default, got %q", got)
	}
}

func TestConfigVal_NilConfig(t *testing.T) {
	got := configVal(nil, func(fc *config.Config) string { return fc.Backend.URL })
	if got != "" {
		t.Errorf("expected empty for nil config, got %q", got)
	}
}

func TestConfigVal_NonNil(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendConfig{URL: "http://from-config:8000"}}
	got := configVal(cfg, func(fc *config.Config) string { return fc.Backend.URL })
	if got != "http://from-config:8000" {
		t.Errorf("expected from-config URL, got %q", got)
	}
}

func TestResolveInt_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.IntFlag{Name: "notify-retries"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("notify-retries", 0, "")
	_ = fs.Set("notify-retries", "7")
	c := cli.NewContext(app, fs, nil)

	got := resolveInt(c, "notify-retries", 3)
	if got != 7 {
		t.Errorf("expected CLI to win with 7, got %d", got)
	}
}

func TestResolveInt_ConfigFallback(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.IntFlag{Name: "notify-retries"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("notify-retries", 0, "")
	c := cli.NewContext(app, fs, nil)

	got := resolveInt(c, "notify-retries", 5)
	if got != 5 {
		t.Errorf("expected config fallback 5, got %d", got)
	}
}

func TestResolveBool_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.BoolFlag{Name: "s3-path-style"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("s3-path-style", false, "")
	_ = fs.Set("s3-path-style", "true")
	c := cli.NewContext(app, fs, nil)

	if !resolveBool(c, "s3-path-style", false) {
		t.Error("expected CLI true to win")
	}
}

func TestResolveDuration_CLIWins(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.DurationFlag{Name: "notify-timeout"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("notify-timeout", 0, "")
	_ = fs.Set("notify-timeout", "30s")
	c := cli.NewContext(app, fs, nil)

	got := resolveDuration(c, "notify-timeout", 10*time.Second)
	if got != 30*time.Second {
		t.Errorf("expected CLI 30s to win, got %v", got)
	}
}

func TestResolveDuration_ConfigFallback(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.DurationFlag{Name: "notify-timeout"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("notify-timeout", 0, "")
	c := cli.NewContext(app, fs, nil)

	got := resolveDuration(c, "notify-timeout", 10*time.Second)
	if got != 10*time.Second {
		t.Errorf("expected config fallback 10s, got %v", got)
	}
}

// --- parseNotifyConfigWithPrecedence ---

// newNotifyTestContext builds a CLI context with notifier-related flags.
func newNotifyTestContext(t *testing.T, flags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "notify-url"},
		&cli.StringFlag{Name: "notify-channel"},
		&cli.DurationFlag{Name: "notify-timeout"},
		&cli.IntFlag{Name: "notify-retries", Value: -1},
		&cli.StringSliceFlag{Name: "notify-header"},
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("notify-url", "", "")
	fs.String("notify-channel", "", "")
	fs.Duration("notify-timeout", 0, "")
	fs.Int("notify-retries", -1, "")

	for name, val := range flags {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}

	return cli.NewContext(app, fs, nil)
}

func TestParseNotifyConfig_WebhookValid(t *testing.T) {
	c := newNotifyTestContext(t, map[string]string{
		"notify-url": "https://hooks.example.com/meetings",
	})

	nc, err := parseNotifyConfigWithPrecedence(c, nil, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.kind != "webhook" {
		t.Errorf("kind = %q, want %q", nc.kind, "webhook")
	}
	if nc.url != "https://hooks.example.com/meetings" {
		t.Errorf("url = %q, want %q", nc.url, "https://hooks.example.com/meetings")
	}
}

func TestParseNotifyConfig_WebhookMissingURL(t *testing.T) {
	c := newNotifyTestContext(t, nil)

	_, err := parseNotifyConfigWithPrecedence(c, nil, "webhook")
	if err == nil {
		t.Fatal("expected error for missing URL")
	}
	if !strings.Contains(err.Error(), "--notify-url is required when --notify=webhook") {
		t.Errorf("error should mention --notify-url, got: %v", err)
	}
}

func TestParseNotifyConfig_RedisValid(t *testing.T) {
	c := newNotifyTestContext(t, map[string]string{
		"notify-url":     "redis://localhost:6379/0",
		"notify-channel": "meetings",
	})

	nc, err := parseNotifyConfigWithPrecedence(c, nil, "redis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.kind != "redis" {
		t.Errorf("kind = %q, want %q", nc.kind, "redis")
	}
	if nc.channel != "meetings" {
		t.Errorf("channel = %q, want %q", nc.channel, "meetings")
	}
}

func TestParseNotifyConfig_RedisMissingURL(t *testing.T) {
	c := newNotifyTestContext(t, nil)

	_, err := parseNotifyConfigWithPrecedence(c, nil, "redis")
	if err == nil {
		t.Fatal("expected error for missing URL")
	}
	if !strings.Contains(err.Error(), "--notify-url is required when --notify=redis") {
		t.Errorf("error should mention redis URL requirement, got: %v", err)
	}
}

func TestParseNotifyConfig_UnknownType(t *testing.T) {
	c := newNotifyTestContext(t, map[string]string{
		"notify-url": "https://example.com",
	})

	_, err := parseNotifyConfigWithPrecedence(c, nil, "kafka")
	if err == nil {
		t.Fatal("expected error for unknown notify type")
	}
	if !strings.Contains(err.Error(), "unknown notify type") {
		t.Errorf("error should mention unknown type, got: %v", err)
	}
	if !strings.Contains(err.Error(), "kafka") {
		t.Errorf("error should include the bad type name, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Valid options") {
		t.Errorf("error should list valid options, got: %v", err)
	}
}

func TestParseNotifyConfig_DefaultRetriesPerKind(t *testing.T) {
	webhookCtx := newNotifyTestContext(t, map[string]string{
		"notify-url": "https://example.com",
	})
	nc, err := parseNotifyConfigWithPrecedence(webhookCtx, nil, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.retries != 3 {
		t.Errorf("webhook default retries = %d, want 3", nc.retries)
	}

	redisCtx := newNotifyTestContext(t, map[string]string{
		"notify-url": "redis://localhost:6379",
	})
	nc, err = parseNotifyConfigWithPrecedence(redisCtx, nil, "redis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.retries != 3 {
		t.Errorf("redis default retries = %d, want 3", nc.retries)
	}
}

func TestParseNotifyConfig_ConfigProvidesURL(t *testing.T) {
	// CLI has no --notify-url set; config provides it
	c := newNotifyTestContext(t, nil)
	cfg := &config.Config{
		Notify: config.NotifyConfig{
			URL: "https://from-config.example.com",
		},
	}

	nc, err := parseNotifyConfigWithPrecedence(c, cfg, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.url != "https://from-config.example.com" {
		t.Errorf("url should come from config, got %q", nc.url)
	}
}

func TestParseNotifyConfig_CLIOverridesConfigURL(t *testing.T) {
	c := newNotifyTestContext(t, map[string]string{
		"notify-url": "https://cli-url.example.com",
	})
	cfg := &config.Config{
		Notify: config.NotifyConfig{
			URL: "https://config-url.example.com",
		},
	}

	nc, err := parseNotifyConfigWithPrecedence(c, cfg, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.url != "https://cli-url.example.com" {
		t.Errorf("CLI should override config URL, got %q", nc.url)
	}
}

func TestParseNotifyConfig_ConfigProvidesRetries(t *testing.T) {
	c := newNotifyTestContext(t, map[string]string{
		"notify-url": "https://example.com",
	})
	retries := 5
	cfg := &config.Config{
		Notify: config.NotifyConfig{
			URL:     "https://example.com",
			Retries: &retries,
		},
	}

	nc, err := parseNotifyConfigWithPrecedence(c, cfg, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.retries != 5 {
		t.Errorf("retries should come from config (5), got %d", nc.retries)
	}
}

func TestParseNotifyConfig_ConfigHeadersMerged(t *testing.T) {
	c := newNotifyTestContext(t, map[string]string{
		"notify-url": "https://example.com",
	})
	cfg := &config.Config{
		Notify: config.NotifyConfig{
			URL: "https://example.com",
			Headers: map[string]string{
				"X-Api-Key": "secret-123",
				"X-Source":  "meeting-summary",
			},
		},
	}

	nc, err := parseNotifyConfigWithPrecedence(c, cfg, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.headers["X-Api-Key"] != "secret-123" {
		t.Errorf("config header X-Api-Key not merged, got %v", nc.headers)
	}
	if nc.headers["X-Source"] != "meeting-summary" {
		t.Errorf("config header X-Source not merged, got %v", nc.headers)
	}
}

func TestParseNotifyConfig_CLIHeaderOverridesConfig(t *testing.T) {
	// String slice flags need the full app.Run path
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "notify-url"},
		&cli.StringSliceFlag{Name: "notify-header"},
		&cli.DurationFlag{Name: "notify-timeout"},
		&cli.IntFlag{Name: "notify-retries", Value: -1},
		&cli.StringFlag{Name: "notify-channel"},
	}

	cfg := &config.Config{
		Notify: config.NotifyConfig{
			URL:     "https://example.com",
			Headers: map[string]string{"X-Api-Key": "from-config"},
		},
	}

	var nc notifyChoice
	var parseErr error
	app.Action = func(c *cli.Context) error {
		nc, parseErr = parseNotifyConfigWithPrecedence(c, cfg, "webhook")
		return nil
	}

	_ = app.Run([]string{"test",
		"--notify-url", "https://example.com",
		"--notify-header", "X-Api-Key=from-cli",
		"--notify-header", "X-Extra=added",
	})

	if parseErr != nil {
		t.Fatalf("unexpected error: %v", parseErr)
	}
	if nc.headers["X-Api-Key"] != "from-cli" {
		t.Errorf("CLI header should override config, got %v", nc.headers)
	}
	if nc.headers["X-Extra"] != "added" {
		t.Errorf("CLI-only header should be present, got %v", nc.headers)
	}
}

func TestParseNotifyConfig_MalformedHeader(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "notify-url"},
		&cli.StringSliceFlag{Name: "notify-header"},
		&cli.DurationFlag{Name: "notify-timeout"},
		&cli.IntFlag{Name: "notify-retries", Value: -1},
		&cli.StringFlag{Name: "notify-channel"},
	}

	var parseErr error
	app.Action = func(c *cli.Context) error {
		_, parseErr = parseNotifyConfigWithPrecedence(c, nil, "webhook")
		return nil
	}

	_ = app.Run([]string{"test",
		"--notify-url", "https://example.com",
		"--notify-header", "no-equals-sign",
	})

	if parseErr == nil {
		t.Fatal("expected error for malformed header")
	}
	if !strings.Contains(parseErr.Error(), "invalid --notify-header") {
		t.Errorf("error should mention invalid header, got: %v", parseErr)
	}
	if !strings.Contains(parseErr.Error(), "key=value") {
		t.Errorf("error should suggest key=value format, got: %v", parseErr)
	}
}

// --- buildNotifier ---

func TestBuildNotifier_Webhook(t *testing.T) {
	notifier, err := buildNotifier(notifyChoice{
		kind:    "webhook",
		url:     "https://hooks.example.com/meetings",
		retries: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notifier == nil {
		t.Fatal("expected a notifier")
	}
	_ = notifier.Close()
}

func TestBuildNotifier_Redis(t *testing.T) {
	// Construction only parses the URL; no connection is made until Publish
	notifier, err := buildNotifier(notifyChoice{
		kind:    "redis",
		url:     "redis://localhost:6379/0",
		retries: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notifier == nil {
		t.Fatal("expected a notifier")
	}
	_ = notifier.Close()
}

func TestBuildNotifier_RedisInvalidURL(t *testing.T) {
	_, err := buildNotifier(notifyChoice{kind: "redis", url: "not-a-redis-url"})
	if err == nil {
		t.Fatal("expected error for unparseable redis URL")
	}
}

func TestBuildNotifier_UnknownType(t *testing.T) {
	_, err := buildNotifier(notifyChoice{kind: "carrier-pigeon", url: "x"})
	if err == nil {
		t.Fatal("expected error for unknown notifier kind")
	}
}

// --- buildSessionCompletedEvent ---

func TestBuildSessionCompletedEvent_BasicFields(t *testing.T) {
	result := &session.Result{
		SessionID: "sess-001",
		Resource:  "standup.wav",
		Outcome:   session.OutcomeCompleted,
		State: types.StreamState{
			Status:      "Your meeting report is ready!",
			Transcript:  "Hello everyone",
			Summary:     "A short standup.",
			Decisions:   "Ship it",
			ActionItems: "Update the runbook",
		},
		DurationMS:  5000,
		CapturePath: "/captures/standup.capture",
		Metrics: metrics.Snapshot{
			TranscriptFragments: 12,
			SummaryFragments:    2,
		},
	}

	event := buildSessionCompletedEvent(result, "/recordings/standup.wav")

	if event.SchemaVersion != adapter.EventSchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", event.SchemaVersion, adapter.EventSchemaVersion)
	}
	if event.EventType != "session_completed" {
		t.Errorf("EventType = %q, want %q", event.EventType, "session_completed")
	}
	if event.TranscriptFragments != 12 {
		t.Errorf("TranscriptFragments = %d, want %d", event.TranscriptFragments, 12)
	}
	if event.SummaryFragments != 2 {
		t.Errorf("SummaryFragments = %d, want %d", event.SummaryFragments, 2)
	}
	if event.SessionID != "sess-001" {
		t.Errorf("SessionID = %q, want %q", event.SessionID, "sess-001")
	}
	if event.Media != "standup.wav" {
		t.Errorf("Media = %q, want base name %q", event.Media, "standup.wav")
	}
	if event.Resource != "standup.wav" {
		t.Errorf("Resource = %q, want %q", event.Resource, "standup.wav")
	}
	if event.Outcome != "completed" {
		t.Errorf("Outcome = %q, want %q", event.Outcome, "completed")
	}
	if event.Transcript != "Hello everyone" {
		t.Errorf("Transcript = %q, want %q", event.Transcript, "Hello everyone")
	}
	if event.Summary != "A short standup." {
		t.Errorf("Summary = %q, want %q", event.Summary, "A short standup.")
	}
	if event.DurationMs != 5000 {
		t.Errorf("DurationMs = %d, want %d", event.DurationMs, 5000)
	}
	if event.CapturePath != "/captures/standup.capture" {
		t.Errorf("CapturePath = %q, want %q", event.CapturePath, "/captures/standup.capture")
	}
	if event.Error != "" {
		t.Errorf("Error should be empty for clean state, got %q", event.Error)
	}
	if event.Timestamp == "" {
		t.Error("Timestamp should not be empty")
	}
}

func TestBuildSessionCompletedEvent_WithError(t *testing.T) {
	errText := "File not found on server."
	result := &session.Result{
		SessionID: "sess-002",
		Outcome:   session.OutcomeFailed,
		State:     types.StreamState{Error: &errText},
	}

	event := buildSessionCompletedEvent(result, "missing.wav")

	if event.Outcome != "failed" {
		t.Errorf("Outcome = %q, want %q", event.Outcome, "failed")
	}
	if event.Error != errText {
		t.Errorf("Error = %q, want %q", event.Error, errText)
	}
}

func TestBuildSessionCompletedEvent_OutcomeMapsCorrectly(t *testing.T) {
	for _, outcome := range []session.Outcome{
		session.OutcomeCompleted,
		session.OutcomeFailed,
		session.OutcomeCancelled,
	} {
		t.Run(string(outcome), func(t *testing.T) {
			result := &session.Result{SessionID: "s", Outcome: outcome}
			event := buildSessionCompletedEvent(result, "a.wav")
			if event.Outcome != string(outcome) {
				t.Errorf("Outcome = %q, want %q", event.Outcome, string(outcome))
			}
		})
	}
}

// --- runAction via app.Run ---

// newTestApp creates a cli.App with RunCommand wired up and ExitErrHandler
// suppressed so errors are returned instead of calling os.Exit.
func newTestApp() *cli.App {
	app := cli.NewApp()
	app.Commands = []*cli.Command{RunCommand()}
	app.ExitErrHandler = func(c *cli.Context, err error) {} // suppress os.Exit
	return app
}

// newTestMedia writes a small fake recording and returns its path.
func newTestMedia(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standup.wav")
	if err := os.WriteFile(path, []byte("RIFF fake audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// newStubBackend serves the upload and stream endpoints with a fixed
// three-record feed ending in the completion sentinel.
func newStubBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/upload-meeting/", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"filename": %q}`, header.Filename)
	})
	mux.HandleFunc("/transcribe-stream/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, body := range []string{
			`{"tag": "STATUS", "message": "Generating transcript..."}`,
			`{"transcript": "Hello everyone"}`,
			`{"summary": "A short standup."}`,
			`[DONE]`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", body)
			flusher.Flush()
		}
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestRunAction_MissingMediaArg(t *testing.T) {
	app := newTestApp()

	err := app.Run([]string{"meeting-summary", "run"})
	if err == nil {
		t.Fatal("expected error for missing media argument")
	}
	if !strings.Contains(err.Error(), "expected exactly one media file argument") {
		t.Errorf("error should mention the argument requirement, got: %v", err)
	}
}

func TestRunAction_MediaNotFound(t *testing.T) {
	app := newTestApp()

	err := app.Run([]string{"meeting-summary", "run", "/nonexistent/standup.wav"})
	if err == nil {
		t.Fatal("expected error for missing media file")
	}
	if !strings.Contains(err.Error(), "media file not found") {
		t.Errorf("error should mention media file not found, got: %v", err)
	}
	if !strings.Contains(err.Error(), "ls -la") {
		t.Errorf("error should suggest checking the path, got: %v", err)
	}
}

func TestRunAction_InvalidFormat(t *testing.T) {
	app := newTestApp()
	media := newTestMedia(t)

	err := app.Run([]string{"meeting-summary", "run", "--format", "xml", media})
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("error should mention invalid format, got: %v", err)
	}
}

func TestRunAction_InvalidUploadDriver(t *testing.T) {
	app := newTestApp()
	media := newTestMedia(t)

	err := app.Run([]string{"meeting-summary", "run", "--upload-driver", "gcs", media})
	if err == nil {
		t.Fatal("expected error for invalid upload driver")
	}
	if !strings.Contains(err.Error(), "invalid --upload-driver") {
		t.Errorf("error should mention the driver flag, got: %v", err)
	}
}

func TestRunAction_S3RequiresBucket(t *testing.T) {
	app := newTestApp()
	media := newTestMedia(t)

	err := app.Run([]string{"meeting-summary", "run", "--upload-driver", "s3", media})
	if err == nil {
		t.Fatal("expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "--s3-bucket is required") {
		t.Errorf("error should mention --s3-bucket, got: %v", err)
	}
}

func TestRunAction_WebhookRequiresURL(t *testing.T) {
	app := newTestApp()
	media := newTestMedia(t)

	err := app.Run([]string{"meeting-summary", "run", "--notify", "webhook", media})
	if err == nil {
		t.Fatal("expected error for missing notify URL")
	}
	if !strings.Contains(err.Error(), "--notify-url is required when --notify=webhook") {
		t.Errorf("error should mention --notify-url, got: %v", err)
	}
}

func TestRunAction_UnknownNotifyType(t *testing.T) {
	app := newTestApp()
	media := newTestMedia(t)

	err := app.Run([]string{"meeting-summary", "run", "--notify", "kafka", media})
	if err == nil {
		t.Fatal("expected error for unknown notify type")
	}
	if !strings.Contains(err.Error(), "unknown notify type") {
		t.Errorf("error should mention unknown type, got: %v", err)
	}
}

func TestRunAction_CaptureDirMissing(t *testing.T) {
	app := newTestApp()
	media := newTestMedia(t)

	err := app.Run([]string{"meeting-summary", "run", "--capture", "/nonexistent/captures", media})
	if err == nil {
		t.Fatal("expected error for missing capture directory")
	}
	if !strings.Contains(err.Error(), "capture directory does not exist") {
		t.Errorf("error should mention the capture directory, got: %v", err)
	}
}

func TestRunAction_ConfigFileNotFound(t *testing.T) {
	app := newTestApp()
	media := newTestMedia(t)

	err := app.Run([]string{"meeting-summary", "run", "--config", "/nonexistent/meeting-summary.yaml", media})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error should mention config file not found, got: %v", err)
	}
}

// TestRunAction_BackendUnreachable verifies that transport failures fold
// into a failed outcome with exit code 1 instead of a usage error.
func TestRunAction_BackendUnreachable(t *testing.T) {
	app := newTestApp()
	media := newTestMedia(t)

	err := app.Run([]string{"meeting-summary", "run",
		"--backend-url", "http://127.0.0.1:1",
		media,
	})
	if err == nil {
		t.Fatal("expected an exit coder carrying the failed outcome")
	}
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("expected cli.ExitCoder, got %T: %v", err, err)
	}
	if coder.ExitCode() != session.ExitCodeFailed {
		t.Errorf("exit code = %d, want %d", coder.ExitCode(), session.ExitCodeFailed)
	}
}

func TestRunAction_CompletedSession(t *testing.T) {
	ts := newStubBackend(t)
	app := newTestApp()
	media := newTestMedia(t)

	err := app.Run([]string{"meeting-summary", "run",
		"--backend-url", ts.URL,
		media,
	})
	if err == nil {
		t.Fatal("expected an exit coder carrying the completed outcome")
	}
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("expected cli.ExitCoder, got %T: %v", err, err)
	}
	if coder.ExitCode() != session.ExitCodeCompleted {
		t.Errorf("exit code = %d, want %d", coder.ExitCode(), session.ExitCodeCompleted)
	}
}

// TestRunAction_ConfigProvidesBackendURL validates that the config file
// can supply the backend URL.
func TestRunAction_ConfigProvidesBackendURL(t *testing.T) {
	ts := newStubBackend(t)
	media := newTestMedia(t)

	configPath := filepath.Join(t.TempDir(), "meeting-summary.yaml")
	configContent := "backend:\n  url: " + ts.URL + "\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	app := newTestApp()
	err := app.Run([]string{"meeting-summary", "run",
		"--config", configPath,
		media,
	})
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("expected cli.ExitCoder, got %T: %v", err, err)
	}
	if coder.ExitCode() != session.ExitCodeCompleted {
		t.Errorf("exit code = %d, want %d (config URL should be used)", coder.ExitCode(), session.ExitCodeCompleted)
	}
}

// TestRunAction_CLIOverridesConfigBackendURL validates that --backend-url
// beats the config file value.
func TestRunAction_CLIOverridesConfigBackendURL(t *testing.T) {
	ts := newStubBackend(t)
	media := newTestMedia(t)

	// Config points at a dead port; CLI points at the live stub
	configPath := filepath.Join(t.TempDir(), "meeting-summary.yaml")
	configContent := "backend:\n  url: http://127.0.0.1:1\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	app := newTestApp()
	err := app.Run([]string{"meeting-summary", "run",
		"--config", configPath,
		"--backend-url", ts.URL,
		media,
	})
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("expected cli.ExitCoder, got %T: %v", err, err)
	}
	if coder.ExitCode() != session.ExitCodeCompleted {
		t.Errorf("exit code = %d, want %d (CLI URL should win)", coder.ExitCode(), session.ExitCodeCompleted)
	}
}

// TestRunAction_CaptureWritesFile verifies that --capture leaves a finalized
// capture file next to the session.
func TestRunAction_CaptureWritesFile(t *testing.T) {
	ts := newStubBackend(t)
	media := newTestMedia(t)
	captureDir := t.TempDir()

	app := newTestApp()
	err := app.Run([]string{"meeting-summary", "run",
		"--backend-url", ts.URL,
		"--capture", captureDir,
		media,
	})
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("expected cli.ExitCoder, got %T: %v", err, err)
	}
	if coder.ExitCode() != session.ExitCodeCompleted {
		t.Fatalf("exit code = %d, want %d", coder.ExitCode(), session.ExitCodeCompleted)
	}

	entries, readErr := os.ReadDir(captureDir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one capture file, found %d", len(entries))
	}
	if !strings.HasSuffix(entries[0].Name(), ".capture") {
		t.Errorf("capture file name = %q, want .capture suffix", entries[0].Name())
	}
}

// --- exit codes ---

func TestOutcomeExitCodes(t *testing.T) {
	tests := []struct {
		outcome session.Outcome
		want    int
	}{
		{session.OutcomeCompleted, 0},
		{session.OutcomeFailed, 1},
		{session.OutcomeCancelled, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			if got := tt.outcome.ExitCode(); got != tt.want {
				t.Errorf("ExitCode(%q) = %d, want %d", tt.outcome, got, tt.want)
			}
		})
	}
}
