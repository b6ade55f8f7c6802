package repository

import "context"

// TxRepositories bundles the repositories bound to one open transaction.
type TxRepositories struct {
	ThreatModels ThreatModelRepository
	Threats      ThreatRepository
	Safeguards   SafeguardRepository
}

// TransactionManager runs work inside a single relational transaction. The
// merge engine holds one transaction across the whole merge: any error
// returned by fn rolls back every relational write performed so far.
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(repos TxRepositories) error) error
}
