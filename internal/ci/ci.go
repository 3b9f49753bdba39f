// Package ci discovers pipeline provenance from CI environment variables.
package ci

import "os"

// Provenance identifies the pipeline execution a gate run belongs to.
type Provenance struct {
	System   string `json:"system,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
	Build    string `json:"build,omitempty"`
	Commit   string `json:"commit,omitempty"`
}

// Describe reads pipeline, build, and commit identifiers from the
// environment. Jenkins, GitHub Actions, and GitLab CI are recognized;
// outside CI every field is empty. Explicit flags override these values
// at the command layer.
func Describe() Provenance {
	switch {
	case os.Getenv("JENKINS_URL") != "" || (os.Getenv("JOB_NAME") != "" && os.Getenv("BUILD_NUMBER") != ""):
		return Provenance{
			System:   "jenkins",
			Pipeline: os.Getenv("JOB_NAME"),
			Build:    os.Getenv("BUILD_NUMBER"),
			Commit:   os.Getenv("GIT_COMMIT"),
		}
	case os.Getenv("GITHUB_ACTIONS") == "true":
		return Provenance{
			System:   "github",
			Pipeline: os.Getenv("GITHUB_WORKFLOW"),
			Build:    os.Getenv("GITHUB_RUN_NUMBER"),
			Commit:   os.Getenv("GITHUB_SHA"),
		}
	case os.Getenv("GITLAB_CI") == "true":
		return Provenance{
			System:   "gitlab",
			Pipeline: os.Getenv("CI_PROJECT_PATH"),
			Build:    os.Getenv("CI_PIPELINE_ID"),
			Commit:   os.Getenv("CI_COMMIT_SHA"),
		}
	}
	return Provenance{}
}
