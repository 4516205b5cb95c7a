// Package audit records security-relevant events (session and login
// link lifecycle, user management) as JSON lines, enriched with the
// request id and the acting user.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"tau.org/internal/auth"
	"tau.org/internal/obs"
)

// Event names the auditable actions. The set is closed; handlers log
// these constants rather than ad-hoc strings so the audit stream stays
// greppable.
type Event string

const (
	EventSessionCreate  Event = "session.create"
	EventSessionDestroy Event = "session.destroy"
	EventLinkIssued     Event = "login_link.issued"
	EventLinkRedeemed   Event = "login_link.redeemed"
	EventUserUpdated    Event = "user.updated"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// requestIDFromContext extracts the audit request id from context if present.
func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry for the event, naming the acting user
// when one is authenticated on the context.
func LogEvent(ctx context.Context, event Event, fields map[string]any) error {
	if strings.TrimSpace(string(event)) == "" {
		return errors.New("audit event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": string(event),
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if actor, ok := auth.UserFromContext(ctx); ok {
		entry["user_id"] = actor.ID.String()
		entry["handle"] = actor.Handle
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
