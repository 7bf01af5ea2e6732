package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

// Reconciler repairs account balances that drifted from their transactions.
type Reconciler struct {
	accounts domain.AccountRepository
	tx       domain.TxManager
	log      logrus.FieldLogger
}

func NewReconciler(accounts domain.AccountRepository, tx domain.TxManager, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{accounts: accounts, tx: tx, log: log}
}

func (r *Reconciler) Reconcile(ctx context.Context) ([]domain.BalanceCorrection, error) {
	var corrections []domain.BalanceCorrection
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		corrections, err = r.accounts.ReconcileBalances(ctx)
		return err
	})
	if err != nil {
		r.log.WithError(err).Error("balance reconciliation failed")
		return nil, err
	}

	for _, c := range corrections {
		r.log.WithFields(logrus.Fields{
			"account_id": c.AccountID,
			"stored":     c.Stored.String(),
			"computed":   c.Computed.String(),
		}).Warn("account balance corrected")
	}
	r.log.WithField("corrections", len(corrections)).Info("balance reconciliation finished")
	return corrections, nil
}
