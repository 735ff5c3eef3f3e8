// Package ratelimiter limits requests per key with golang.org/x/time/rate
// token buckets.
//
//	limiter, err := ratelimiter.New(ratelimiter.Config{RatePerSecond: 5, Burst: 10})
//	if err != nil {
//		return err
//	}
//	r.With(ratelimiter.Middleware(limiter, ratelimiter.ClientIP, nil)).Post("/verify", verify)
//
// Buckets idle for longer than Config.IdleTTL are swept periodically, so the
// number of tracked keys stays bounded by recent traffic.
package ratelimiter
