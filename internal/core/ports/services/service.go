package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	Matching  MatchingSvcFacade
	Approval  ApprovalSvcFacade
	Exception ExceptionSvcFacade
	Audit     AuditSvcFacade
	Ingestion IngestionSvcFacade
	User      UserSvcFacade
	Auth      TokenSvcFacade
	Reporting ReportingSvcFacade
}
