// Package debuglog writes human-readable Markdown transcripts of every AI
// interaction. Writes never fail the caller: I/O errors are logged and dropped.
package debuglog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"nana-be/internal/pkg/logger"
	"nana-be/pkg/llm"
)

const (
	fileTimestamp     = "20060102_150405"
	readableTimestamp = "2006-01-02 15:04:05"
)

type Interaction struct {
	Name      string
	SessionID string
	Parts     []llm.Part
	Response  *llm.Response
	// Parsed is the decoded result, rendered as pretty JSON when set.
	Parsed any
	Start  time.Time
	End    time.Time
	Err    error
}

type Recorder interface {
	LogInteraction(in Interaction)
	LogCacheHit(documentName, summary, sessionID string)
}

// KeyLocker serializes writers that target the same file pair.
type KeyLocker interface {
	Lock(key string) func()
}

type FileRecorder struct {
	dir    string
	log    logger.ILogger
	locker KeyLocker
	now    func() time.Time
}

var _ Recorder = &FileRecorder{}

func NewFileRecorder(dir string, log logger.ILogger, locker KeyLocker) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}
	if locker == nil {
		locker = &singleLocker{}
	}
	return &FileRecorder{dir: dir, log: log, locker: locker, now: time.Now}, nil
}

// WithClock replaces the wall clock used for timestamps.
func (r *FileRecorder) WithClock(now func() time.Time) *FileRecorder {
	r.now = now
	return r
}

func (r *FileRecorder) Dir() string { return r.dir }

func (r *FileRecorder) LogInteraction(in Interaction) {
	now := r.now()
	ts := now.Format(fileTimestamp)
	name := Sanitize(in.Name)
	promptBody := renderPrompt(in.Parts)
	responseBody := renderResponse(in)

	var promptPath, responsePath, promptHeader, responseHeader string
	appendMode := false

	if in.SessionID != "" {
		sid := Sanitize(in.SessionID)
		promptPath = filepath.Join(r.dir, "prompts_"+sid+".md")
		responsePath = filepath.Join(r.dir, "responses_"+sid+".md")

		unlock := r.locker.Lock(sid)
		defer unlock()

		interaction := fmt.Sprintf("# Interaction: %s (%s)\n", name, ts)
		if exists(promptPath) {
			appendMode = true
			promptHeader = "\n\n---\n\n" + interaction
			responseHeader = promptHeader
		} else {
			promptHeader = fmt.Sprintf("# Session: %s\n\n---\n\n%s", sid, interaction)
			responseHeader = promptHeader
		}
	} else {
		promptPath = filepath.Join(r.dir, fmt.Sprintf("prompt_%s_%s.md", ts, name))
		responsePath = filepath.Join(r.dir, fmt.Sprintf("response_%s_%s.md", ts, name))
		promptHeader = fmt.Sprintf("# Prompt: %s\n**Timestamp:** %s\n", name, ts)
		responseHeader = fmt.Sprintf("# Response: %s (%s)\n", name, ts)

		unlock := r.locker.Lock(promptPath)
		defer unlock()
	}

	var p strings.Builder
	p.WriteString(promptHeader)
	fmt.Fprintf(&p, "**Time:** %s\n", now.Format(readableTimestamp))
	p.WriteString("\n---\n\n")
	p.WriteString(promptBody)

	var resp strings.Builder
	resp.WriteString(responseHeader)
	fmt.Fprintf(&resp, "**Duration:** %.4f seconds\n", in.End.Sub(in.Start).Seconds())
	if in.Err == nil && in.Response != nil && in.Response.Usage != nil {
		u := in.Response.Usage
		resp.WriteString("**Token Usage:**\n")
		fmt.Fprintf(&resp, "- Prompt: %d\n", u.PromptTokens)
		fmt.Fprintf(&resp, "- Candidates: %d\n", u.CandidateTokens)
		fmt.Fprintf(&resp, "- Total: %d\n", u.TotalTokens)
	}
	resp.WriteString("\n---\n\n")
	resp.WriteString(responseBody)

	r.write(promptPath, p.String(), appendMode)
	r.write(responsePath, resp.String(), appendMode)
}

func (r *FileRecorder) LogCacheHit(documentName, summary, sessionID string) {
	now := r.now()
	ts := now.Format(fileTimestamp)

	var promptPath, responsePath, header string
	appendMode := false

	if sessionID != "" {
		sid := Sanitize(sessionID)
		promptPath = filepath.Join(r.dir, "prompts_"+sid+".md")
		responsePath = filepath.Join(r.dir, "responses_"+sid+".md")

		unlock := r.locker.Lock(sid)
		defer unlock()

		if exists(promptPath) {
			appendMode = true
			header = fmt.Sprintf("\n\n---\n\n# Cache Hit (%s)\n", ts)
		} else {
			header = fmt.Sprintf("# Session: %s\n\n---\n\n# Cache Hit (%s)\n", sid, ts)
		}
	} else {
		promptPath = filepath.Join(r.dir, fmt.Sprintf("cache_hit_%s.md", ts))
		header = fmt.Sprintf("# Cache Hit (%s)\n", ts)

		unlock := r.locker.Lock(promptPath)
		defer unlock()
	}

	var p strings.Builder
	p.WriteString(header)
	fmt.Fprintf(&p, "**Time:** %s\n", now.Format(readableTimestamp))
	fmt.Fprintf(&p, "**Document:** %s\n", documentName)
	p.WriteString("\n---\n\n")
	p.WriteString("*No LLM prompt sent - notes served from client-side cache.*\n\n")
	p.WriteString(summary)
	r.write(promptPath, p.String(), appendMode)

	if responsePath == "" {
		return
	}
	var resp strings.Builder
	resp.WriteString(header)
	resp.WriteString("**Duration:** 0.0000 seconds (cached)\n")
	resp.WriteString("**Token Usage:** None (served from cache)\n")
	resp.WriteString("\n---\n\n")
	resp.WriteString("*No LLM response - notes served from client-side cache.*\n\n")
	resp.WriteString(summary)
	r.write(responsePath, resp.String(), appendMode)
}

func (r *FileRecorder) write(path, content string, appendMode bool) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		r.log.Warn("DEBUGLOG", "Failed to open debug log", map[string]interface{}{"path": path, "error": err.Error()})
		return
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		r.log.Warn("DEBUGLOG", "Failed to write debug log", map[string]interface{}{"path": path, "error": err.Error()})
	}
}

func renderPrompt(parts []llm.Part) string {
	if len(parts) == 1 && !parts[0].IsBlob() {
		return parts[0].Text
	}
	var b strings.Builder
	for _, part := range parts {
		if part.IsBlob() {
			b.WriteString("[Binary/File Part]: (Data hidden)\n\n")
			continue
		}
		b.WriteString(part.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

func renderResponse(in Interaction) string {
	if in.Err != nil {
		return fmt.Sprintf("## Error Occurred\n\n```\n%s\n```", in.Err.Error())
	}
	var b strings.Builder
	if in.Response != nil {
		fmt.Fprintf(&b, "## Raw Text Response\n\n%s\n\n", in.Response.Text)
	}
	if in.Parsed != nil {
		if pretty, err := json.MarshalIndent(in.Parsed, "", "  "); err == nil {
			fmt.Fprintf(&b, "## Parsed JSON\n\n```json\n%s\n```\n\n", pretty)
		}
	}
	return b.String()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Sanitize maps an identifier to a safe file-name fragment.
func Sanitize(id string) string {
	var b strings.Builder
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if len(out) > 100 {
		out = out[:100]
	}
	if out == "" {
		return "unknown"
	}
	return out
}

type singleLocker struct {
	mu sync.Mutex
}

func (l *singleLocker) Lock(string) func() {
	l.mu.Lock()
	return l.mu.Unlock
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) LogInteraction(Interaction)         {}
func (NopRecorder) LogCacheHit(string, string, string) {}
