package audit

import (
	"context"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// Audit actions for chat-service.
const (
	ActionConnect      = "chat.connect"
	ActionAuthFailed   = "chat.auth_failed"
	ActionDisconnect   = "chat.disconnect"
	ActionSendDirect   = "chat.send_direct"
	ActionSendRoom     = "chat.send_room"
	ActionJoinChannels = "chat.join_channels"
	ActionAccessDenied = "chat.access_denied"
	ActionRateLimited  = "chat.rate_limited"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogTarget emits an audit entry about an operation on a channel or peer.
func LogTarget(ctx context.Context, action, userID, targetID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
