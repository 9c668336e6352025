// Package reddit provides a client for the Reddit OAuth API and the
// pagination loop over a user's saved listing.
//
// A Client obtains a bearer token through the password grant, fetches
// listing pages and opens media downloads. A Fetcher drives the listing
// under a QuotaGate, decodes every t3 child into a SavedRecord and resolves
// its Media variant once:
//
//	client := reddit.NewClient(30*time.Second, "redditsaver/1.0", log)
//	if err := client.Authenticate(ctx, creds); err != nil {
//	    return err
//	}
//	fetcher := reddit.NewFetcher(client, ratelimit.NewQuotaLimiter(), reddit.FetcherOptions{
//	    Username: creds.Username,
//	    PageSize: 25,
//	    Limit:    100,
//	}, log)
//	records, err := fetcher.FetchSaved(ctx)
//
// Downstream code switches on the concrete Media type: Image, Gallery,
// Video, SelfText or Unknown.
package reddit
