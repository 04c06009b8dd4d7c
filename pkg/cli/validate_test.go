package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/asclepius/pkg/cli"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func runValidate(path string) error {
	return cli.Run(context.Background(), []string{"asclepius", "--log-output", "stderr", "validate", "--config", path}, "test")
}

func TestRun_ValidateCommand_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
[capacity.beds]
total = 40
available = 12

[capacity.blood]
"O-" = { total = 30 }

[[callout]]
name = "surgery on-call"
contact = "C0SURGERY"
method = "SLACK"
min_alert_level = "YELLOW"

[[area]]
id = "red-zone"
name = "Red zone"
`)

	// Only the configuration is checked, no repository connection
	gt.NoError(t, runValidate(path))
}

func TestRun_ValidateCommand_InvalidCapacity(t *testing.T) {
	path := writeConfig(t, `
[capacity.icu_beds]
total = 4
available = 9
`)
	gt.Value(t, runValidate(path)).NotNil()
}

func TestRun_ValidateCommand_DuplicateCallout(t *testing.T) {
	path := writeConfig(t, `
[[callout]]
name = "surgery"
contact = "C0SURGERY"
method = "SLACK"
min_alert_level = "YELLOW"

[[callout]]
name = "surgery"
contact = "+81-3-0000-0000"
method = "PHONE"
min_alert_level = "RED"
`)
	gt.Value(t, runValidate(path)).NotNil()
}

func TestRun_ValidateCommand_InvalidCalloutMethod(t *testing.T) {
	path := writeConfig(t, `
[[callout]]
name = "pager"
contact = "12345"
method = "PAGER"
min_alert_level = "RED"
`)
	gt.Value(t, runValidate(path)).NotNil()
}

func TestRun_ValidateCommand_MissingFile(t *testing.T) {
	gt.Value(t, runValidate(filepath.Join(t.TempDir(), "missing.toml"))).NotNil()
}

func TestRun_ValidateCommand_ConfigRequired(t *testing.T) {
	err := cli.Run(context.Background(), []string{"asclepius", "validate"}, "test")
	gt.Value(t, err).NotNil()
}
