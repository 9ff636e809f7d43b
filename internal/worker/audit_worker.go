package worker

import (
	"github.com/spec-kit/backoffice-auth/internal/service"
)

// StartAuditWorker registers the audit subscribers on the event dispatcher.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
