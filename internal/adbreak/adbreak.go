// Package adbreak runs the preroll ad break that precedes game start.
package adbreak

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Placement names an ad placement on the host.
type Placement string

const (
	PlacementPreroll Placement = "preroll"
)

// Outcome is how an ad break settled.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeNoShow   Outcome = "no_show"
)

// Hooks are handed to the host. The host may fire them any number of times,
// from any goroutine.
type Hooks struct {
	Done   func()
	NoShow func()
}

// Shower triggers an ad placement on the host.
type Shower interface {
	ShowAd(ctx context.Context, placement Placement, description string, hooks Hooks) error
}

// Callbacks are the game's continuations. Nil fields are skipped.
type Callbacks struct {
	OnComplete func()
	OnNoShow   func()
}

// Preroll triggers the preroll placement. Only the first outcome counts: one
// continuation runs, once, no matter how the host fires its hooks. A host
// error settles as a no-show. The returned channel yields the outcome and is
// then closed.
func Preroll(ctx context.Context, s Shower, cb Callbacks, log *zap.Logger) <-chan Outcome {
	if log == nil {
		log = zap.NewNop()
	}
	out := make(chan Outcome, 1)

	var once sync.Once
	settle := func(o Outcome) {
		once.Do(func() {
			log.Info("ad break settled", zap.String("placement", string(PlacementPreroll)), zap.String("outcome", string(o)))
			switch o {
			case OutcomeComplete:
				if cb.OnComplete != nil {
					cb.OnComplete()
				}
			case OutcomeNoShow:
				if cb.OnNoShow != nil {
					cb.OnNoShow()
				}
			}
			out <- o
			close(out)
		})
	}

	hooks := Hooks{
		Done:   func() { settle(OutcomeComplete) },
		NoShow: func() { settle(OutcomeNoShow) },
	}
	if err := s.ShowAd(ctx, PlacementPreroll, "Preroll", hooks); err != nil {
		log.Warn("ad break failed", zap.Error(err))
		settle(OutcomeNoShow)
	}
	return out
}
