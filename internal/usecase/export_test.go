package usecase

import "time"

// Clock injection for tests; production code always uses time.Now.

func SetLedgerClock(uc LedgerUseCase, f func() time.Time) { uc.(*ledgerUC).now = f }

func SetAccessClock(uc AccessUseCase, f func() time.Time) { uc.(*accessUC).now = f }
