// Package saver runs one download pass over a user's saved items.
//
// New builds the whole pipeline from a config.Config: Reddit client, quota
// limiter, paginated fetcher, storage manager and media downloader. Run then
// fetches the listing and saves each record in order:
//
//	s, err := saver.New(ctx, cfg, log)
//	if err != nil {
//	    return err
//	}
//	summary, err := s.Run(ctx)
//
// Run and per-record log lines carry the run_id of the pass.
package saver
