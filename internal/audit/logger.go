// Package audit records security-relevant decisions (channel upgrades) to the audit log.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"laundry-ops/backend/internal/audit/domain"
	auditrepo "laundry-ops/backend/internal/audit/repository"
	"laundry-ops/backend/internal/realtime"
)

const writeTimeout = 5 * time.Second

// Logger writes audit events. Every write is best-effort: failures are logged and never reach the caller.
type Logger struct {
	repo     auditrepo.Repository
	inflight sync.WaitGroup
}

// NewLogger returns a Logger persisting to repo. A nil repo disables auditing.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry synchronously.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, ip, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

type admissionMetadata struct {
	Reason    string `json:"reason,omitempty"`
	Status    int    `json:"status,omitempty"`
	CloseCode int    `json:"close_code,omitempty"`
}

// RecordAdmission implements realtime.AdmissionRecorder. The write runs in the background so the
// upgrade is never held up by the database.
func (l *Logger) RecordAdmission(ctx context.Context, rec realtime.AdmissionRecord) {
	if l == nil || l.repo == nil {
		return
	}
	action := domain.ActionChannelRejected
	if rec.Accepted {
		action = domain.ActionChannelAccepted
	}
	meta, _ := json.Marshal(admissionMetadata{Reason: rec.Reason, Status: rec.Status, CloseCode: rec.CloseCode})
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		l.LogEvent(wctx, rec.Subject, action, "ws:"+rec.Channel, rec.RemoteAddr, string(meta))
	}()
}

// Wait blocks until every background admission write has finished. Call it before closing the database.
func (l *Logger) Wait() {
	if l == nil {
		return
	}
	l.inflight.Wait()
}
