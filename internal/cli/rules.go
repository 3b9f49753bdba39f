package cli

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"
)

const defaultStaleSeconds = 86400 // 24h without a recorded run

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Generate PrometheusRule YAML for scangate alerts",
	Long: `Output a static PrometheusRule YAML manifest with alert rules for
failed gates, critical findings, warning pileups, and stale runs.

No cluster connection required. The output is valid
monitoring.coreos.com/v1 PrometheusRule YAML suitable for kubectl apply.`,
	Example: `  # Generate with default thresholds
  scangate rules

  # Alert when no run is recorded for 48h
  scangate rules --stale-after 48h

  # Custom metadata
  scangate rules --name scangate-alerts --namespace monitoring

  # Add extra labels for PrometheusRule selection
  scangate rules --labels 'prometheus=kube,role=alert-rules'

  # Apply directly
  scangate rules | kubectl apply -f -`,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().Duration("stale-after", 0, "Alert when no run is recorded for this long (default: 24h)")
	rulesCmd.Flags().Int("max-warnings", 10, "Alert when warned findings exceed this count")
	rulesCmd.Flags().String("name", "scangate-alerts", "PrometheusRule metadata.name")
	rulesCmd.Flags().String("namespace", "", "PrometheusRule metadata.namespace")
	rulesCmd.Flags().String("labels", "", "Extra labels (comma-separated key=value pairs)")
}

type rulesData struct {
	Labels       map[string]string
	Name         string
	Namespace    string
	StaleSeconds int64
	MaxWarnings  int
}

func runRules(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")             //nolint:errcheck // flag registered above
	ns, _ := cmd.Flags().GetString("namespace")          //nolint:errcheck // flag registered above
	labelsStr, _ := cmd.Flags().GetString("labels")      //nolint:errcheck // flag registered above
	staleDur, _ := cmd.Flags().GetDuration("stale-after") //nolint:errcheck // flag registered above
	maxWarn, _ := cmd.Flags().GetInt("max-warnings")      //nolint:errcheck // flag registered above

	staleSec := int64(defaultStaleSeconds)
	if staleDur > 0 {
		staleSec = int64(staleDur / time.Second)
	}

	labels := make(map[string]string)
	if labelsStr != "" {
		for _, pair := range strings.Split(labelsStr, ",") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) == 2 {
				labels[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
			}
		}
	}

	data := rulesData{
		Name:         name,
		Namespace:    ns,
		Labels:       labels,
		StaleSeconds: staleSec,
		MaxWarnings:  maxWarn,
	}

	tmpl, err := template.New("prometheusrule").Parse(prometheusRuleTemplate)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	return tmpl.Execute(cmd.OutOrStdout(), data)
}

const prometheusRuleTemplate = `apiVersion: monitoring.coreos.com/v1
kind: PrometheusRule
metadata:
  name: {{ .Name }}
{{- if .Namespace }}
  namespace: {{ .Namespace }}
{{- end }}
  labels:
    app.kubernetes.io/name: scangate
{{- range $k, $v := .Labels }}
    {{ $k }}: {{ $v }}
{{- end }}
spec:
  groups:
    - name: scangate.rules
      rules:
        - alert: ScangateGateFailed
          expr: scangate_gate_passed == 0
          for: 0m
          labels:
            severity: critical
          annotations:
            summary: "Security gate failed on the last run"
            description: "The most recent scangate evaluation produced blocking findings. Check the build page or the scangate dashboard."
        - alert: ScangateCriticalFindings
          expr: scangate_findings_total{action="FAIL",severity="CRITICAL"} > 0
          for: 0m
          labels:
            severity: critical
          annotations:
            summary: "Critical findings are blocking the gate"
            description: "{{"{{"}} $value {{"}}"}} critical finding(s) with action {{"{{"}} $labels.action {{"}}"}} in the last run."
        - alert: ScangateWarningsPilingUp
          expr: sum(scangate_findings_total{action="WARN"}) > {{ .MaxWarnings }}
          for: 30m
          labels:
            severity: warning
          annotations:
            summary: "Warned findings exceed {{ .MaxWarnings }}"
            description: "The warning backlog has exceeded {{ .MaxWarnings }} for 30 minutes. Triage the policy or fix the findings before they mask new ones."
        - alert: ScangateRunStale
          expr: time() - scangate_run_timestamp_seconds > {{ .StaleSeconds }}
          for: 15m
          labels:
            severity: warning
          annotations:
            summary: "No gate run recorded recently"
            description: "No scangate run has been recorded for more than {{ .StaleSeconds }}s. Either deploys stopped flowing or the gate is being skipped."
`
