package usecases

import "time"

// LedgerObserver receives engine and settlement outcomes. *metrics.Metrics implements it.
type LedgerObserver interface {
	ObserveMovement(txType, outcome string, fee int64, started time.Time)
	ObserveTransientRetry()
	ObserveSettlement(status string)
	ObserveDuplicateCallback()
	ObservePendingReverified(n int)
	ObserveLeaderboardRecompute(err error)
}

type noopObserver struct{}

func (noopObserver) ObserveMovement(string, string, int64, time.Time) {}
func (noopObserver) ObserveTransientRetry()                          {}
func (noopObserver) ObserveSettlement(string)                        {}
func (noopObserver) ObserveDuplicateCallback()                       {}
func (noopObserver) ObservePendingReverified(int)                    {}
func (noopObserver) ObserveLeaderboardRecompute(error)               {}

func observerOrNoop(o LedgerObserver) LedgerObserver {
	if o == nil {
		return noopObserver{}
	}
	return o
}
