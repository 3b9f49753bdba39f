package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/scangate/scangate/internal/finding"
	"github.com/scangate/scangate/internal/gate"
)

// SlackPayload is the JSON body sent to Slack incoming webhooks.
type SlackPayload struct {
	Blocks []SlackBlock `json:"blocks"`
}

// SlackBlock is a Slack Block Kit block.
type SlackBlock struct {
	Text *SlackText `json:"text,omitempty"`
	Type string     `json:"type"`
}

// SlackText is a Slack text element.
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) sendSlack(webhookURL string, run gate.Run, failures, warnings []finding.Finding) {
	blocks := []SlackBlock{
		{
			Type: "header",
			Text: &SlackText{
				Type: "plain_text",
				Text: subject(run),
			},
		},
		{
			Type: "section",
			Text: &SlackText{
				Type: "mrkdwn",
				Text: run.Verdict.Summary(),
			},
		},
	}

	for i := range failures {
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: slackLine("FAIL", failures[i])},
		})
	}
	for i := range warnings {
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: slackLine("WARN", warnings[i])},
		})
	}

	footer := "Source: scangate"
	if run.Commit != "" {
		footer += " | commit " + run.Commit
	}
	footer += " | " + time.Now().UTC().Format(time.RFC3339)
	blocks = append(blocks, SlackBlock{
		Type: "context",
		Text: &SlackText{Type: "mrkdwn", Text: footer},
	})

	payload := SlackPayload{Blocks: blocks}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("notification: slack marshal error", "err", err)
		return
	}

	n.post(webhookURL, "application/json", body)
}

// slackLine renders one finding as a Slack mrkdwn section line.
func slackLine(action string, f finding.Finding) string {
	where := f.Location
	if where == "" {
		where = f.Tool
	}
	desc := f.Description
	if desc == "" {
		desc = string(f.Category)
	}
	return fmt.Sprintf("%s [%s] *%s* in `%s`: %s", action, f.Severity, f.RuleID, where, desc)
}
