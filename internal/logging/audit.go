package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// AuditEventType names an audit event; each maps to one Mangle predicate.
type AuditEventType string

const (
	// Atom evaluations -> atom_eval/6
	AuditAtomEval AuditEventType = "atom_eval"

	// Store edits -> edit_applied/5
	AuditEditApply  AuditEventType = "edit_apply"
	AuditEditRevert AuditEventType = "edit_revert"

	// Learned clauses -> nogood_learned/4
	AuditNogood AuditEventType = "nogood"

	// Store context lifecycle -> context_event/3
	AuditContextOpen  AuditEventType = "context_open"
	AuditContextClose AuditEventType = "context_close"
)

// AuditEvent is one JSON line of the audit log. MangleFact carries the same
// event as a fact so the log can be loaded into a Mangle program.
type AuditEvent struct {
	Timestamp  int64          `json:"ts"`
	EventType  AuditEventType `json:"event"`
	Target     string         `json:"target"`
	Action     string         `json:"action"`
	Detail     string         `json:"detail,omitempty"`
	Count      int            `json:"count"`
	DurationMs int64          `json:"dur_ms"`
	MangleFact string         `json:"mangle"`
}

var (
	auditMu   sync.Mutex
	auditFile *os.File
)

// InitAudit starts appending audit events to path. An empty path disables
// auditing.
func InitAudit(path string) error {
	auditMu.Lock()
	defer auditMu.Unlock()
	if path == "" || auditFile != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = f
	fmt.Fprintf(f, "# Audit log started at %s\n", time.Now().Format(time.RFC3339))
	return nil
}

// CloseAudit closes the audit log.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditLogger writes audit events. The zero value is ready to use.
type AuditLogger struct{}

// Audit returns the audit logger.
func Audit() AuditLogger { return AuditLogger{} }

// Log writes event if auditing is enabled.
func (AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	event.MangleFact = generateMangleFact(event)
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.Write(append(data, '\n'))
}

func generateMangleFact(e AuditEvent) string {
	switch e.EventType {
	case AuditAtomEval:
		return fmt.Sprintf("atom_eval(%d, \"%s\", \"%s\", /%s, %d, %d).",
			e.Timestamp, escapeString(e.Target), escapeString(e.Detail), e.Action, e.Count, e.DurationMs)
	case AuditEditApply, AuditEditRevert:
		return fmt.Sprintf("edit_applied(%d, /%s, \"%s\", /%s, \"%s\").",
			e.Timestamp, e.EventType, escapeString(e.Target), e.Action, escapeString(e.Detail))
	case AuditNogood:
		return fmt.Sprintf("nogood_learned(%d, /%s, %d, \"%s\").",
			e.Timestamp, e.Action, e.Count, escapeString(e.Detail))
	case AuditContextOpen, AuditContextClose:
		return fmt.Sprintf("context_event(%d, /%s, \"%s\").",
			e.Timestamp, e.EventType, escapeString(e.Target))
	default:
		return fmt.Sprintf("audit_event(%d, /%s, \"%s\").",
			e.Timestamp, e.EventType, escapeString(e.Detail))
	}
}

func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// AtomEvaluated records one external atom evaluation.
func (a AuditLogger) AtomEvaluated(atom, inputs, outcome string, tuples int, d time.Duration) {
	a.Log(AuditEvent{EventType: AuditAtomEval, Target: atom, Detail: inputs, Action: outcome, Count: tuples, DurationMs: d.Milliseconds()})
}

// EditApplied records an edit applied to (or reverted from) a store.
func (a AuditLogger) EditApplied(location, kind, edit string, revert bool) {
	t := AuditEditApply
	if revert {
		t = AuditEditRevert
	}
	a.Log(AuditEvent{EventType: t, Target: location, Action: kind, Detail: edit})
}

// NogoodLearned records a learned clause.
func (a AuditLogger) NogoodLearned(source string, size int, clause string) {
	a.Log(AuditEvent{EventType: AuditNogood, Action: source, Count: size, Detail: clause})
}

// ContextEvent records a store context being opened or torn down.
func (a AuditLogger) ContextEvent(location string, opened bool) {
	t := AuditContextClose
	if opened {
		t = AuditContextOpen
	}
	a.Log(AuditEvent{EventType: t, Target: location})
}
