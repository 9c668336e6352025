// Package storage manages the on-disk output tree.
//
// Files land in <output>/<subreddit>/, where the subreddit name is passed
// through Sanitize first. WriteFile goes through a temporary file and a
// rename, so a reader never sees a half-written image.
//
//	mgr, err := storage.NewManager("./downloads", 0755, 0644)
//	dir, err := mgr.SubredditDir("", "EarthPorn")
//	n, err := mgr.WriteFile(filepath.Join(dir, "abc123.jpg"), body)
//
// There is no duplicate detection: saving the same record twice overwrites
// the earlier file.
package storage
