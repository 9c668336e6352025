package auth

import (
	"fmt"
	"io"
	"strings"
)

// AppPrefsURL is where Reddit script apps are created
const AppPrefsURL = "https://www.reddit.com/prefs/apps"

// ShowAppSetupGuide explains how to obtain a client id and secret
func ShowAppSetupGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "REDDIT APP SETUP")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "redditsaver signs in with the password grant of a Reddit \"script\" app.")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "1. Open %s while logged in\n", AppPrefsURL)
	fmt.Fprintln(w, "2. Click \"create another app...\" at the bottom")
	fmt.Fprintln(w, "3. Pick the type \"script\" and use http://localhost:8080 as redirect uri")
	fmt.Fprintln(w, "4. The string under the app name is the client id")
	fmt.Fprintln(w, "5. The \"secret\" field is the client secret")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Only the account that created the app can use it with its own password.")
	fmt.Fprintln(w, "Accounts with two-factor auth must append :<code> to the password.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
