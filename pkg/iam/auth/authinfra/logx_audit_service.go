package authinfra

import (
	"context"

	"github.com/Abraxas-365/courier/pkg/iam/auth"
	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/logx"
)

// LogxAuditService writes audit events as structured log entries.
type LogxAuditService struct{}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogAuthFailure(ctx context.Context, reason string, ip string) {
	logx.WithFields(logx.Fields{
		"audit_event": "auth_failure",
		"reason":      reason,
		"ip":          ip,
		"request_id":  kernel.RequestID(ctx),
	}).Warn("Audit: authentication failed")
}

func (s *LogxAuditService) LogAccessDenied(ctx context.Context, userID kernel.UserID, scope string, ip string) {
	logx.WithFields(logx.Fields{
		"audit_event": "access_denied",
		"user_id":     userID,
		"scope":       scope,
		"ip":          ip,
		"request_id":  kernel.RequestID(ctx),
	}).Warn("Audit: access denied")
}

func (s *LogxAuditService) LogAdminAction(ctx context.Context, userID kernel.UserID, action string, ip string) {
	logx.WithFields(logx.Fields{
		"audit_event": "admin_action",
		"user_id":     userID,
		"action":      action,
		"ip":          ip,
		"request_id":  kernel.RequestID(ctx),
	}).Info("Audit: admin action")
}

var _ auth.AuditService = (*LogxAuditService)(nil)
