// Package main provides the meeting-stub development backend.
//
// The stub speaks the production wire protocol without loading any
// models: uploads land in a local directory and the analysis stream
// replays a canned event sequence derived from the transcript text. It
// exists for offline development and end-to-end testing of the
// meeting-summary client.
//
// Usage:
//
//	meeting-stub serve [--addr :8000] [--upload-dir uploads] [--delay 50ms]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sree6273/AI-meeting-summary/iox"
	"github.com/sree6273/AI-meeting-summary/log"
	"github.com/sree6273/AI-meeting-summary/types"
)

const (
	uploadRoute = "/upload-meeting/"
	streamRoute = "/transcribe-stream/"
)

// Status lines mirror the production backend phrasing so client output
// looks the same against either.
const (
	statusConnected   = "Connection established. Starting audio extraction..."
	statusRecognizing = "Running speech recognition... (This may take a moment)"
	statusAnalyzing   = "Transcription complete. Starting structured analysis..."
	statusDecisions   = "Extracting Key Decisions..."
	statusActions     = "Extracting Action Items..."
	statusReportReady = "Structured analysis complete. Report ready."

	errFileNotFound = "File not found on server."
)

// transcriptChunks is how many pieces the transcript streams in.
const transcriptChunks = 12

// summaryBlockWords caps the words per summarization block.
const summaryBlockWords = 400

// defaultTranscript seeds sessions when no --transcript override is
// given.
const defaultTranscript = "Good morning everyone, thanks for joining the weekly sync. " +
	"Last sprint we closed out the ingestion backlog and the error budget is back in the green. " +
	"The reporting dashboard is feature complete and passed review on Tuesday. " +
	"We discussed the legacy export path and agreed it stays until the next release so downstream teams have time to migrate. " +
	"Priya walked us through the incident from Thursday night, which traced back to a misconfigured retry policy. " +
	"The fix is already deployed and the postmortem doc is circulating for comments. " +
	"Marcus flagged that the staging cluster is running close to capacity and we will need another node before the load test. " +
	"We also looked at the onboarding feedback and decided to fold the setup scripts into the main repository. " +
	"Next week the focus is the load test, the dashboard rollout, and closing the remaining migration tickets. " +
	"That is everything on the agenda, thanks everyone."

// Canned analysis paired with the default transcript.
const (
	defaultDecision = "The team agreed to ship the reporting dashboard and to keep the " +
		"legacy export path until the next release."
	defaultActionItem = "Priya will circulate the incident postmortem for comments, and " +
		"Marcus will request an additional staging node before the load test."
)

// Fallback analysis for custom transcripts, phrased the way the
// production models report empty findings.
const (
	noDecisions   = "No key decisions were explicitly mentioned."
	noActionItems = "No specific action items were assigned."
)

func main() {
	app := &cli.App{
		Name:           "meeting-stub",
		Usage:          "Local stand-in for the meeting transcription backend",
		Version:        types.Version,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, respecting cli.ExitCoder.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the upload and transcription-stream endpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: ":8000",
			},
			&cli.StringFlag{
				Name:  "upload-dir",
				Usage: "Directory where uploads are stored",
				Value: "uploads",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "Pause between stream events",
				Value: 50 * time.Millisecond,
			},
			&cli.StringFlag{
				Name:  "transcript",
				Usage: "Text file to stream instead of the canned transcript",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	uploadDir := c.String("upload-dir")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory %s: %w", uploadDir, err)
	}

	transcript := defaultTranscript
	decision, actionItem := defaultDecision, defaultActionItem
	if path := c.String("transcript"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("transcript file not readable: %w", err)
		}
		transcript = strings.TrimSpace(string(data))
		// The stub does not analyze; custom text gets the no-findings lines
		decision, actionItem = noDecisions, noActionItems
	}

	srv := &stubServer{
		uploads:    uploadDir,
		delay:      c.Duration("delay"),
		transcript: transcript,
		decision:   decision,
		actionItem: actionItem,
		logger:     log.NewLogger("").With(map[string]any{"component": "meeting-stub"}),
	}

	addr := c.String("addr")
	httpSrv := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           srv.routes(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}()

	srv.logger.Info("stub backend listening", map[string]any{
		"addr":       addr,
		"upload_dir": uploadDir,
	})
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// stubServer holds the canned analysis and upload directory.
type stubServer struct {
	uploads    string
	delay      time.Duration
	transcript string
	decision   string
	actionItem string
	logger     *log.Logger
}

func (s *stubServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(uploadRoute, s.handleUpload)
	mux.HandleFunc(streamRoute, s.handleStream)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleUpload stores the multipart file and echoes the stored name,
// which keys the stream endpoint.
func (s *stubServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `multipart field "file" is required`, http.StatusBadRequest)
		return
	}
	defer iox.DiscardClose(file)

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}

	dst, err := os.Create(filepath.Join(s.uploads, name))
	if err != nil {
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	written, err := io.Copy(dst, file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	s.logger.Info("file uploaded", map[string]any{
		"filename": name,
		"bytes":    written,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"filename": name})
}

// handleStream emits the canned analysis as an event stream. Every
// response ends with the completion sentinel, the not-found case
// included.
func (s *stubServer) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, streamRoute))
	if err != nil || name == "" {
		http.Error(w, "filename required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	st := &eventStream{w: w, flusher: flusher, delay: s.delay, ctx: r.Context()}

	if _, err := os.Stat(filepath.Join(s.uploads, filepath.Base(name))); err != nil {
		st.payload(types.Payload{Tag: types.TagError, Message: errFileNotFound})
		st.done()
		return
	}

	s.logger.Info("stream opened", map[string]any{"filename": name})
	s.streamAnalysis(st)
	s.logger.Info("stream finished", map[string]any{"filename": name})
}

// streamAnalysis walks the production event sequence: statuses, the
// word-chunked transcript, per-block summaries, decisions, action
// items, and the report-ready status.
func (s *stubServer) streamAnalysis(st *eventStream) {
	defer st.done()

	if !st.payload(status(statusConnected)) {
		return
	}
	if !st.payload(status(statusRecognizing)) {
		return
	}

	for _, chunk := range chunkWords(strings.Fields(s.transcript), transcriptChunks) {
		if !st.payload(types.Payload{Transcript: chunk}) {
			return
		}
	}

	if !st.payload(status(statusAnalyzing)) {
		return
	}

	blocks := summaryBlocks(s.transcript, summaryBlockWords)
	if !st.payload(status(fmt.Sprintf("Summarizing %d text blocks...", len(blocks)))) {
		return
	}
	for _, block := range blocks {
		if !st.payload(types.Payload{Summary: blockSummary(block)}) {
			return
		}
	}

	if !st.payload(status(statusDecisions)) {
		return
	}
	if !st.payload(types.Payload{Decision: s.decision}) {
		return
	}

	if !st.payload(status(statusActions)) {
		return
	}
	if !st.payload(types.Payload{ActionItem: s.actionItem}) {
		return
	}

	st.payload(status(statusReportReady))
}

func status(msg string) types.Payload {
	return types.Payload{Tag: types.TagStatus, Message: msg}
}

// eventStream writes SSE frames with the configured pacing. Writes stop
// reporting true once the client is gone.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	delay   time.Duration
	ctx     context.Context
	wrote   bool
}

// payload emits one data record, pausing before every event after the
// first.
func (st *eventStream) payload(p types.Payload) bool {
	if st.wrote && st.delay > 0 {
		select {
		case <-st.ctx.Done():
			return false
		case <-time.After(st.delay):
		}
	} else if st.ctx.Err() != nil {
		return false
	}

	body, err := json.Marshal(p)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(st.w, "data: %s\n\n", body); err != nil {
		return false
	}
	st.flusher.Flush()
	st.wrote = true
	return true
}

// done writes the completion sentinel.
func (st *eventStream) done() {
	_, _ = io.WriteString(st.w, "data: "+types.DoneSentinel+"\n\n")
	st.flusher.Flush()
}

// chunkWords splits words into roughly parts pieces, preserving order.
func chunkWords(words []string, parts int) []string {
	if len(words) == 0 {
		return nil
	}
	size := len(words) / parts
	if size < 1 {
		size = 1
	}
	var chunks []string
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// splitSentences breaks text after sentence-ending punctuation followed
// by whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '?', '!':
			end := i + 1
			for end < len(text) && (text[end] == ' ' || text[end] == '\t' || text[end] == '\n') {
				end++
			}
			if end > i+1 {
				if s := strings.TrimSpace(text[start:end]); s != "" {
					out = append(out, s)
				}
				start = end
				i = end - 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// summaryBlocks groups sentences into blocks of at most maxWords words.
func summaryBlocks(text string, maxWords int) []string {
	sentences := splitSentences(text)
	var blocks []string
	var current []string
	words := 0
	for _, sentence := range sentences {
		n := len(strings.Fields(sentence))
		if words+n > maxWords && len(current) > 0 {
			blocks = append(blocks, strings.Join(current, " "))
			current, words = nil, 0
		}
		current = append(current, sentence)
		words += n
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, " "))
	}
	return blocks
}

// blockSummary fakes the summarizer: the block's leading sentence.
func blockSummary(block string) string {
	sentences := splitSentences(block)
	if len(sentences) == 0 {
		return block
	}
	return sentences[0]
}
