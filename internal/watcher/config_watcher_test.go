package watcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlevet/titlevet-go/internal/risk"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const rulesTemplate = `{
  "version": "%s",
  "maxScore": 100,
  "thresholds": {"critical": 75, "high": 50, "medium": 25},
  "categories": {
    "whois": {"weight": 0.5, "maxScore": 100, "ruleGroups": []},
    "website": {"weight": 0.3, "maxScore": 100, "ruleGroups": []},
    "socialMedia": {"weight": 0.2, "maxScore": 100, "ruleGroups": []}
  }
}`

func writeRules(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newWatcherFixture(t *testing.T) (*ConfigWatcher, *risk.Engine, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "risk_rules.json")
	writeRules(t, path, fmt.Sprintf(rulesTemplate, "1.0.0"))

	cfg, err := risk.LoadConfig(path)
	require.NoError(t, err)

	engine := risk.NewEngine(cfg, testLogger())
	cw, err := NewConfigWatcher(path, engine, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { cw.Stop() })

	return cw, engine, path
}

func TestReload_SwapsValidConfig(t *testing.T) {
	cw, engine, path := newWatcherFixture(t)

	writeRules(t, path, fmt.Sprintf(rulesTemplate, "2.0.0"))
	cw.reload()

	assert.Equal(t, "2.0.0", engine.CurrentConfig().Version)
}

func TestReload_KeepsOldConfigOnInvalidDocument(t *testing.T) {
	cw, engine, path := newWatcherFixture(t)

	writeRules(t, path, `{"version": ""}`)
	cw.reload()
	assert.Equal(t, "1.0.0", engine.CurrentConfig().Version)

	writeRules(t, path, `{not json`)
	cw.reload()
	assert.Equal(t, "1.0.0", engine.CurrentConfig().Version)
}

func TestReload_KeepsOldConfigWhenFileRemoved(t *testing.T) {
	cw, engine, path := newWatcherFixture(t)

	require.NoError(t, os.Remove(path))
	cw.reload()
	assert.Equal(t, "1.0.0", engine.CurrentConfig().Version)
}

func TestNewConfigWatcher_MissingDirectory(t *testing.T) {
	engine := risk.NewEngine(&risk.Config{}, testLogger())
	_, err := NewConfigWatcher("/nonexistent/dir/risk_rules.json", engine, testLogger())
	assert.Error(t, err)
}
