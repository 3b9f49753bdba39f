package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scangate/scangate/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and validate gate policy files",
}

var policyShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "List the rules of a policy file",
	Long: `Load a policy file and print its rules in declaration order.

Rules are matched top to bottom; the first rule whose id matches a
finding wins.`,
	Example: `  scangate policy show rules.tsv
  scangate policy show policy.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPolicyShow,
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a policy file loads and compiles",
	Long: `Load a policy file, validate every rule, and compile its glob
patterns. Exits 0 on success, 1 on failure.`,
	Example: `  scangate policy validate rules.tsv && echo "Policy OK"`,
	Args: cobra.ExactArgs(1),
	RunE: runPolicyValidate,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyValidateCmd)
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	pol, err := policy.Load(args[0])
	if err != nil {
		return err
	}
	return listRules(cmd.OutOrStdout(), pol)
}

func listRules(w io.Writer, pol policy.Policy) error {
	if len(pol.Rules) == 0 {
		fmt.Fprintf(w, "No rules in %s (default action %s applies to everything).\n", pol.Source, pol.DefaultAction()) //nolint:errcheck // best-effort output
		return nil
	}

	fmt.Fprintf(w, "policy %s: %d rule(s), default %s\n\n", pol.Name, len(pol.Rules), pol.DefaultAction()) //nolint:errcheck // best-effort output
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tACTION\tNOTE") //nolint:errcheck // best-effort output
	for i := range pol.Rules {
		r := &pol.Rules[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Action, r.Note) //nolint:errcheck // best-effort output
	}
	return tw.Flush()
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	pol, err := policy.Load(args[0])
	if err == nil {
		_, err = pol.Compile()
	}
	if err != nil {
		cmd.PrintErrln(err)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("validation failed")
	}
	cmd.Printf("policy OK: %d rule(s), default %s\n", len(pol.Rules), pol.DefaultAction())
	return nil
}
