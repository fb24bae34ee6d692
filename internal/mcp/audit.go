package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/simsweep/internal/constants"
	"github.com/nvandessel/simsweep/internal/pathutil"
)

// AuditFile is the name of the tool audit log under <root>/.simsweep/.
const AuditFile = "audit.jsonl"

// AuditEntry is one line of the audit log: a tool call and its outcome.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends entries to <root>/.simsweep/audit.jsonl.
// A nil *AuditLogger discards everything.
type AuditLogger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewAuditLogger opens the audit log under root. Auditing is best effort:
// when the file cannot be opened a warning goes to stderr and nil is returned.
func NewAuditLogger(root string) *AuditLogger {
	dir := filepath.Join(root, constants.ConfigDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log disabled: %v\n", err)
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, AuditFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log disabled: %v\n", err)
		return nil
	}
	return &AuditLogger{f: f, enc: json.NewEncoder(f)}
}

// Log appends entry.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f != nil {
		_ = a.enc.Encode(entry)
	}
}

// Close closes the log. Later calls to Log are dropped.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f, a.enc = nil, nil
	return err
}

// paramPolicy says how much of a tool argument reaches the audit log.
type paramPolicy int

const (
	logValue paramPolicy = iota + 1
	logRedactedPath
)

var auditPolicies = map[string]paramPolicy{
	"kind":       logValue,
	"limit":      logValue,
	"failed":     logValue,
	"automation": logRedactedPath,
	"config":     logRedactedPath,
	"batch_dir":  logRedactedPath,
}

// sanitizeToolParams keeps the arguments listed in auditPolicies, shortening
// paths to their last two elements, and records how many were passed.
// Empty arguments are omitted.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}
	out := map[string]string{"_param_count": strconv.Itoa(len(params))}
	for key, val := range params {
		s := fmt.Sprint(val)
		if s == "" {
			continue
		}
		switch auditPolicies[key] {
		case logValue:
			out[key] = s
		case logRedactedPath:
			out[key] = pathutil.RedactPath(s)
		}
	}
	return out
}

// auditTool records a finished tool call.
func (s *Server) auditTool(tool string, start time.Time, err error, params map[string]string) {
	entry := AuditEntry{
		Timestamp:  start,
		Tool:       tool,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     "success",
		Params:     params,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.auditLogger.Log(entry)
}
