package main

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

const sessionCleanupSchedule = "@every 1m"

type balanceReconciler interface {
	Reconcile(ctx context.Context) ([]domain.BalanceCorrection, error)
}

type sessionPurger interface {
	PurgeExpired() int
}

// StartScheduler registers the background jobs and starts the cron runner.
// The caller stops it on shutdown.
func StartScheduler(log logrus.FieldLogger, reconcileSchedule string, reconciler balanceReconciler, sessions sessionPurger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(reconcileSchedule, func() {
		corrections, err := reconciler.Reconcile(context.Background())
		if err != nil {
			log.WithError(err).Error("Error reconciling account balances")
			return
		}
		log.WithField("corrected", len(corrections)).Info("Account balances reconciled")
	})
	if err != nil {
		return nil, err
	}

	_, err = c.AddFunc(sessionCleanupSchedule, func() {
		if n := sessions.PurgeExpired(); n > 0 {
			log.WithField("purged", n).Debug("Expired 2FA sessions removed")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
