package log

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newBufferedEntry(level logrus.Level) (*logrus.Entry, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logrus.NewEntry(logger), &buf
}

func TestBadgerLogrusAdapter_DemotesInfo(t *testing.T) {
	entry, buf := newBufferedEntry(logrus.InfoLevel)
	adapter := NewBadgerLogrusAdapter(entry)

	adapter.Infof("Compaction for level: %d\n", 0)
	assert.Empty(t, buf.String(), "badger info lines are debug-only")

	adapter.Warningf("Value log %s truncated\n", "000001.vlog")
	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "store=badger")
	assert.Contains(t, out, "000001.vlog truncated\"")
}

func TestBadgerLogrusAdapter_DebugLevel(t *testing.T) {
	entry, buf := newBufferedEntry(logrus.DebugLevel)
	adapter := NewBadgerLogrusAdapter(entry)

	adapter.Infof("Opened %d tables", 3)
	assert.Contains(t, buf.String(), "level=debug")

	buf.Reset()
	adapter.Debugf("noise")
	assert.Empty(t, buf.String())

	adapter.Errorf("failed: %v", "disk full")
	assert.Contains(t, buf.String(), "level=error")
}
