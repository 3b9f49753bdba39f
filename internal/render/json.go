package render

import (
	"encoding/json"
	"io"

	"github.com/scangate/scangate/internal/gate"
)

// EvalOutput is the JSON envelope for `scangate eval --format json`.
// Wraps the run with exit-code metadata without polluting the Run type
// stored in history and served by the /api/v1 endpoints.
type EvalOutput struct {
	Run      gate.Run `json:"run"`
	ExitCode int      `json:"exitCode"`
}

// WriteJSON serializes an EvalOutput envelope to w.
func WriteJSON(w io.Writer, run gate.Run, exitCode int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(EvalOutput{
		ExitCode: exitCode,
		Run:      run,
	})
}
