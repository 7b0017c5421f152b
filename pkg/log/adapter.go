package log

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// BadgerLogrusAdapter implements badger.Logger on top of a logrus entry.
// Badger reports compactions and table flushes at Info; those are demoted to Debug
// so they do not interleave with audit progress.
type BadgerLogrusAdapter struct {
	entry *logrus.Entry
}

// NewBadgerLogrusAdapter creates a new adapter tagged with store=badger
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry: entry.WithField("store", "badger")}
}

func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{}) { l.entry.Errorf(trim(f), v...) }

func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) { l.entry.Warnf(trim(f), v...) }

func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{}) { l.entry.Debugf(trim(f), v...) }

func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{}) { l.entry.Tracef(trim(f), v...) }

// badger format strings end with a newline; logrus adds its own
func trim(f string) string { return strings.TrimRight(f, "\n") }
