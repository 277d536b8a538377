package task

import (
	"context"

	"github.com/wonny/sas/internal/contracts"
)

// ChanObserver delivers the completion on a channel
type ChanObserver chan contracts.Completion

// NewChanObserver creates an observer buffered for the single completion
func NewChanObserver() ChanObserver {
	return make(ChanObserver, 1)
}

// RunCompleted implements contracts.Observer
func (c ChanObserver) RunCompleted(done contracts.Completion) {
	select {
	case c <- done:
	default:
		// 완료 신호는 한 번뿐이므로 버퍼가 차 있으면 버린다
	}
}

// Wait blocks until the completion arrives or ctx is done
func (c ChanObserver) Wait(ctx context.Context) (contracts.Completion, error) {
	select {
	case done := <-c:
		return done, nil
	case <-ctx.Done():
		return contracts.Completion{}, ctx.Err()
	}
}

// MultiObserver fans a completion out to several observers in order
type MultiObserver []contracts.Observer

// RunCompleted implements contracts.Observer
func (m MultiObserver) RunCompleted(done contracts.Completion) {
	for _, o := range m {
		if o != nil {
			o.RunCompleted(done)
		}
	}
}
