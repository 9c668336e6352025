package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"redditsaver/internal/downloader"
	"redditsaver/pkg/auth"
	"redditsaver/pkg/config"
	apperrors "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/saver"
	"redditsaver/pkg/ui"
)

var (
	outputDir       string
	limit           int
	pageSize        int
	continueOnError bool
	exhaustedPolicy string
	timeout         time.Duration
	accountName     string
	username        string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download media from the account's saved posts",
	Long: `Fetch up to --limit saved items, newest first, and save their media.

Images are written as <id>.<ext>, galleries as <id>_gallery_<n>.<ext> and
Reddit-hosted videos as <id>.mp4, each under <output>/<subreddit>/.
Self posts and links to unsupported hosts are skipped.`,
	Example: `  # Save the 10 most recent saved posts into ./downloads
  redditsaver download --output ./downloads

  # Save 200 items, 100 per request, and keep going past failures
  redditsaver download -l 200 --page-size 100 --continue-on-error

  # Use a specific stored account
  redditsaver download --account myaccount`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(cmd)
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	addDownloadFlags(downloadCmd)
	addDownloadFlags(rootCmd)
}

func addDownloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: current directory)")
	cmd.Flags().IntVarP(&limit, "limit", "l", config.DefaultConfig().Download.Limit, "maximum number of saved items to fetch")
	cmd.Flags().IntVar(&pageSize, "page-size", config.DefaultConfig().Download.PageSize, "items per listing request (1-100)")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep going when a record fails to download")
	cmd.Flags().StringVar(&exhaustedPolicy, "exhausted-policy", config.ExhaustedStop, "what to do when the listing ends before --limit (stop, error)")
	cmd.Flags().DurationVar(&timeout, "timeout", config.DefaultConfig().Download.Timeout, "HTTP timeout per request")
	cmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Reddit username")
}

// downloadFlags collects only the flags the user actually set, so that
// config file and environment values are not overridden by flag defaults.
func downloadFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags().Changed

	if set("output") {
		flags["output"] = outputDir
	}
	if set("limit") {
		flags["limit"] = limit
	}
	if set("page-size") {
		flags["page-size"] = pageSize
	}
	if set("continue-on-error") {
		flags["continue-on-error"] = continueOnError
	}
	if set("exhausted-policy") {
		flags["exhausted-policy"] = exhaustedPolicy
	}
	if set("timeout") {
		flags["timeout"] = timeout
	}
	if set("username") {
		flags["username"] = username
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

func runDownload(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, downloadFlags(cmd))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger().WithField("version", version)
	log.Info("redditsaver starting")

	if err := resolveCredentials(cfg, log); err != nil {
		ui.PrintError("No Reddit credentials found", err.Error())
		fmt.Fprintln(ui.Output, "\nTo store credentials, run:\n  redditsaver auth login")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Account", cfg.Reddit.Username)
	ui.PrintInfo("Output", outputLabel(cfg.Output.BaseDirectory))
	ui.PrintInfo("Limit", strconv.Itoa(cfg.Download.Limit))

	s, err := saver.New(ctx, cfg, log)
	if err != nil {
		ui.PrintError("Failed to initialize", err.Error())
		return err
	}

	tracker := ui.NewStatusTracker(cfg.Download.Limit)
	s.SetOnRecord(func(out *downloader.Outcome, err error) {
		files, skipped := 0, false
		if out != nil {
			files, skipped = len(out.Files), out.Skipped
		}
		tracker.Observe(files, skipped, err)
		tracker.PrintProgress(ui.Output)
	})

	summary, runErr := s.Run(ctx)
	fmt.Fprintln(ui.Output)
	if summary != nil {
		printSummary(summary)
	}

	switch {
	case runErr == nil:
		ui.PrintSuccess("All saved items processed")
		return nil
	case errors.Is(runErr, apperrors.ErrListingExhausted) && len(summary.Failures) == 0:
		ui.PrintWarning("Saved listing ended early", fmt.Sprintf("%d of %d", summary.Records, cfg.Download.Limit))
		return runErr
	default:
		ui.PrintError("Download finished with errors", runErr.Error())
		return runErr
	}
}

// resolveCredentials fills missing Reddit credentials from the auth store.
// An explicit --account always wins over config and environment values.
func resolveCredentials(cfg *config.Config, log logger.Logger) error {
	if accountName == "" && cfg.HasCredentials() {
		log.Debug("Using credentials from configuration")
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	switch {
	case accountName != "":
		account, err = manager.Retrieve(accountName)
	case cfg.Reddit.Username != "":
		account, err = manager.Retrieve(cfg.Reddit.Username)
	default:
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		return err
	}

	cfg.Reddit.Username = account.Username
	cfg.Reddit.ClientID = account.ClientID
	cfg.Reddit.ClientSecret = account.ClientSecret
	cfg.Reddit.Password = account.Password
	if account.UserAgent != "" {
		cfg.Reddit.UserAgent = account.UserAgent
	}
	log.WithField("account", account.Username).Info("Using stored credentials")
	return nil
}

func outputLabel(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

func printSummary(s *saver.Summary) {
	var rows [][]string
	for _, kind := range s.Kinds() {
		rows = append(rows, []string{"kind", string(kind), strconv.Itoa(s.ByKind[kind])})
	}

	reasons := make([]string, 0, len(s.Skipped))
	for r := range s.Skipped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		rows = append(rows, []string{"skipped", r, strconv.Itoa(s.Skipped[r])})
	}
	for _, f := range s.Failures {
		rows = append(rows, []string{"failed", f.RecordID, f.Err.Error()})
	}

	footer := []string{"total", fmt.Sprintf("%d files, %d bytes", s.Files, s.Bytes), s.Duration.Round(time.Millisecond).String()}
	fmt.Fprintln(ui.Output, ui.RenderTable([]string{"", "Item", "Count"}, rows, footer))
	ui.PrintInfo("Run", s.RunID)
}
