package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write starter config and policy files",
	Long: `Write a starter scangate.yaml and rules.tsv into the current
directory. Existing files are left untouched.

The starter policy fails on reflected XSS and SQL injection, warns on
the common missing-header findings, and ignores everything else, which
is a reasonable first gate for a ZAP baseline scan.`,
	Example: `  scangate init
  scangate init --dir ci/`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("dir", ".", "Directory to write the starter files into")
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir") //nolint:errcheck // flag registered above

	files := []struct {
		name    string
		content string
	}{
		{"scangate.yaml", starterConfig},
		{"rules.tsv", starterPolicy},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil {
			cmd.Printf("%s already exists, skipping\n", path)
			continue
		}
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil { //nolint:gosec // starter files are not sensitive
			return fmt.Errorf("writing %s: %w", path, err)
		}
		cmd.Printf("wrote %s\n", path)
	}
	return nil
}

const starterConfig = `# scangate configuration
policy: rules.tsv
strict: false
format: table
# historyDB: gate.db

# serve mode
listenAddr: ":8080"
metricsPath: /metrics
refreshEvery: 1m

# notify:
#   onPass: false
#   minSeverity: LOW
#   webhooks:
#     - type: slack
#       url: https://hooks.slack.com/services/T000/B000/XXXX
#   email:
#     host: smtp.example.com
#     port: 587
#     from: scangate@example.com
#     to: [security@example.com]
`

const starterPolicy = `# Gate policy: rule_id<TAB>ACTION[<TAB>note]
# First match wins; unmatched findings are ignored.
40012	FAIL	Cross Site Scripting (Reflected)
40018	FAIL	SQL Injection
9001*	FAIL	all server-side code injection plugins
10020	WARN	Missing Anti-clickjacking Header
10021	WARN	X-Content-Type-Options Header Missing
10038	WARN	Content Security Policy Header Not Set
10096	IGNORE	Timestamp Disclosure
`
