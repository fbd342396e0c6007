package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestLimiterQuotaProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Within one window, admitted count is exactly min(attempts, quota),
	// regardless of how many attempts arrive.
	properties.Property("admitted count never exceeds quota", prop.ForAll(
		func(quota, attempts int) bool {
			l := NewLimiter(Config{Quota: quota, Window: time.Hour})

			admitted := 0
			for i := 0; i < attempts; i++ {
				if l.Allow("user") {
					admitted++
				}
			}

			want := attempts
			if quota < want {
				want = quota
			}
			return admitted == want
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 60),
	))

	// One user exhausting its quota never affects another user's budget.
	properties.Property("users consume independent budgets", prop.ForAll(
		func(quota, users int) bool {
			l := NewLimiter(Config{Quota: quota, Window: time.Hour})

			for u := 0; u < users; u++ {
				key := fmt.Sprintf("user-%d", u)
				for i := 0; i < quota; i++ {
					if !l.Allow(key) {
						return false
					}
				}
				if l.Allow(key) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
