package client

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/handwave/relay/internal/protocol"
)

func TestCorrelatorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// However many requests are in flight and whatever order their
	// responses arrive in, every waiter receives exactly the response
	// carrying its own request id.
	properties.Property("each waiter gets its own tagged response", prop.ForAll(
		func(n int, seed int64) bool {
			c := NewCorrelator(time.Hour)

			ids := make([]string, n)
			chans := make([]<-chan outcome, n)
			for i := 0; i < n; i++ {
				ids[i], chans[i] = c.Issue()
			}

			// Resolve in a shuffled order.
			order := rand.New(rand.NewSource(seed)).Perm(n)
			var wg sync.WaitGroup
			for _, i := range order {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					c.Resolve(protocol.NewResponse(ids[i], "reply-"+ids[i]))
				}(i)
			}
			wg.Wait()

			for i := 0; i < n; i++ {
				out := <-chans[i]
				if out.err != nil {
					return false
				}
				if out.resp.RequestID != ids[i] {
					return false
				}
				if out.resp.Response != "reply-"+ids[i] {
					return false
				}
			}
			return c.Pending() == 0
		},
		gen.IntRange(1, 25),
		gen.Int64(),
	))

	// A response and a cancellation racing for the same entry produce
	// exactly one winner and exactly one delivered outcome.
	properties.Property("resolution race has a single winner", prop.ForAll(
		func(n int) bool {
			c := NewCorrelator(time.Hour)

			for i := 0; i < n; i++ {
				id, ch := c.Issue()

				var wg sync.WaitGroup
				var resolved, cancelled bool
				wg.Add(2)
				go func() {
					defer wg.Done()
					resolved = c.Resolve(protocol.NewResponse(id, "ok"))
				}()
				go func() {
					defer wg.Done()
					cancelled = c.Cancel(id, ErrTimeout)
				}()
				wg.Wait()

				if resolved == cancelled {
					return false
				}

				out := <-ch
				if resolved && out.err != nil {
					return false
				}
				if cancelled && !errors.Is(out.err, ErrTimeout) {
					return false
				}
				select {
				case <-ch:
					return false
				default:
				}
			}
			return true
		},
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
