package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scangate/scangate/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a scangate config file",
	Long: `Load and validate a scangate YAML config file.

Checks for YAML syntax errors, invalid values, and incomplete
notification targets. Exits 0 on success, 1 on validation failure.`,
	Example: `  scangate validate scangate.yaml
  scangate validate scangate.yaml && echo "Config OK"`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, err := config.Load(args[0])
	if err != nil {
		cmd.PrintErrln(err)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("validation failed")
	}
	cmd.Println("config OK")
	return nil
}
