// Package ratelimit holds the request gates used by redditsaver.
//
// QuotaLimiter follows the quota Reddit reports in X-Ratelimit-Remaining and
// X-Ratelimit-Reset: call Wait before each listing request and Update with
// the headers of every response, including error responses.
//
//	limiter := ratelimit.NewQuotaLimiter()
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	resp, err := client.Do(req)
//	if resp != nil {
//	    limiter.Update(resp.Header)
//	}
//
// TokenBucket is a client-side throttle for hosts that report no quota,
// such as the media CDNs. Both satisfy Limiter.
package ratelimit
