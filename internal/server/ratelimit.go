package server

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// rateLimiter is a single token bucket shared by all clients. Intake is low
// volume; the bucket protects the backends from bursts of provisioning runs.
type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = int(math.Ceil(perSecond))
	}

	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := rl.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)

			return
		}

		next.ServeHTTP(w, r)
	})
}
