package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikiedits/internal/config"
	"wikiedits/internal/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestSetup(t *testing.T) {
	base := t.TempDir()
	f := Flags{
		ConfigPath:   writeConfig(t, "output:\n  base_path: "+base+"\n"),
		Domain:       "wikipedia",
		MainCategory: "philosophy",
		LogLevel:     "debug",
		YearsBack:    2,
	}

	runner, log, err := f.Setup()
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, filepath.Join(base, "wikipedia", "raw", "philosophy"), runner.Layout().RawDir())
	assert.NotEmpty(t, runner.Report().RunID)
}

func TestSetup_Errors(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  error
	}{
		{"unknown main category", Flags{Domain: "wikipedia", MainCategory: "astrology"}, config.ErrUnknownMainCategory},
		{"negative years back", Flags{Domain: "wikipedia", MainCategory: "philosophy", YearsBack: -1}, config.ErrInvalidYearsBack},
		{"bad log level", Flags{Domain: "wikinews", MainCategory: "all", LogLevel: "loud"}, config.ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.flags.Setup()
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, _, err := (&Flags{Domain: "wiktionary", MainCategory: "all"}).Setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid domain")
}

func TestNewCommand(t *testing.T) {
	base := t.TempDir()
	cfgPath := writeConfig(t, "output:\n  base_path: "+base+"\nmetrics:\n  enabled: true\n")
	reportPath := filepath.Join(base, "report.md")

	var called bool

	cmd := NewCommand("test", "test stage", "parse", true, func(_ context.Context, r *pipeline.Runner) error {
		called = true
		assert.Equal(t, "philosophy", r.Layout().MainCategory)

		return nil
	})

	cmd.SetArgs([]string{
		"--config", cfgPath,
		"--domain", "wikipedia",
		"--main_category", "philosophy",
		"--years_back", "3",
		"--report", reportPath,
	})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.True(t, called)
	assert.FileExists(t, reportPath)
	assert.FileExists(t, filepath.Join(base, "wikipedia", "metrics", "parse.prom"))
}

func TestNewCommand_RequiresDomain(t *testing.T) {
	cmd := NewCommand("test", "test stage", "parse", false, func(context.Context, *pipeline.Runner) error { return nil })
	cmd.SetArgs([]string{"--main_category", "philosophy"})

	require.Error(t, cmd.ExecuteContext(context.Background()))
}
