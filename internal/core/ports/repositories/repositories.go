package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	StatementRepo StatementRepositoryFacade
	LedgerRepo    LedgerRepositoryFacade
	MatchRepo     MatchRepositoryFacade
	ExceptionRepo ExceptionRepositoryFacade
	AuditRepo     AuditRepositoryFacade
	UserRepo      UserRepositoryFacade
	ReportingRepo ReportingRepositoryFacade
}
