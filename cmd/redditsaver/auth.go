package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"redditsaver/pkg/auth"
	"redditsaver/pkg/config"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/reddit"
	"redditsaver/pkg/ui"
)

var skipVerify bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Reddit credentials",
	Long: `Manage stored Reddit credentials.

Accounts are kept in, in order of preference:
  - The system keychain (when available)
  - An AES-GCM encrypted file (PBKDF2 key, passphrase from
    REDDITSAVER_PASSPHRASE or a generated file)
  - Environment variables (read only)`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store the credentials of a Reddit script app",
	Long: `Prompt for the client id, client secret and password of a Reddit script
app and store them. The credentials are checked against Reddit's token
endpoint first unless --skip-verify is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "store without requesting a token first")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowAppSetupGuide(ui.Output)
	fmt.Fprintln(ui.Output)

	account := &auth.Account{}
	if len(args) > 0 {
		account.Username = strings.TrimSpace(args[0])
	} else {
		account.Username = prompt(reader, "Reddit username: ")
	}
	if account.Username == "" {
		ui.PrintError("Username is required")
		return fmt.Errorf("username is required")
	}

	if existing, _ := manager.Retrieve(account.Username); existing != nil {
		answer := prompt(reader, fmt.Sprintf("Account '%s' already exists. Update credentials? (y/N): ", account.Username))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	account.ClientID = prompt(reader, "Client id: ")
	fmt.Fprint(ui.Output, "Client secret: ")
	if account.ClientSecret, err = readSecret(reader); err != nil {
		return fmt.Errorf("failed to read client secret: %w", err)
	}
	fmt.Fprint(ui.Output, "Password: ")
	if account.Password, err = readSecret(reader); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	account.UserAgent = prompt(reader, "User agent (Enter for default): ")

	if err := account.Validate(); err != nil {
		ui.PrintError("Incomplete credentials", err.Error())
		return err
	}

	if !skipVerify {
		if err := verifyAccount(cmd.Context(), account); err != nil {
			ui.PrintError("Reddit rejected the credentials", err.Error())
			return err
		}
		ui.PrintSuccess("Credentials accepted by Reddit")
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		return err
	}

	ui.PrintSuccess("Account saved: " + account.Username)
	fmt.Fprintln(ui.Output, "\nDownload your saved posts with:")
	fmt.Fprintf(ui.Output, "  redditsaver download --account %s\n", account.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	name := strings.TrimSpace(args[0])
	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		return err
	}
	ui.PrintSuccess("Account removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		return err
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'redditsaver auth login' to add one")
		return nil
	}

	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		m := a.Masked()
		rows = append(rows, []string{m.Username, m.ClientID, m.ClientSecret, m.UserAgent, m.LastModified.Format(time.DateTime)})
	}
	fmt.Fprintln(ui.Output, ui.RenderTable([]string{"Username", "Client ID", "Secret", "User Agent", "Modified"}, rows, nil))
	return nil
}

// verifyAccount requests a token with the account's credentials
func verifyAccount(ctx context.Context, account *auth.Account) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ua := account.UserAgent
	if ua == "" {
		ua = reddit.DefaultUserAgent
	}
	client := reddit.NewClient(config.DefaultConfig().Download.Timeout, ua, logger.NewNopLogger())
	_, err := client.AccessToken(ctx, reddit.Credentials{
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
		Username:     account.Username,
		Password:     account.Password,
	})
	return err
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Fprint(ui.Output, label)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readSecret reads without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Output)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
