// Copyright 2024 The mvn2get Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sink provides the EventSink the resolver reports progress and
// problems through, backed by logrus, grounded on please_maven's
// log-level-gated Notice/Debug/Info calls and securestor-securestor's
// logrus setup.
package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/groboclown/mvn2get/internal/problem"
)

// EventSink is the capability the resolver core reports activity through.
type EventSink interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Debug(format string, args ...any)
	Trace(format string, args ...any)
	Problem(p problem.Problem)
	Progress(coordinate string)
}

// LogLevel mirrors spec.md §6's log_level option.
type LogLevel string

const (
	LevelWarn  LogLevel = "warn"
	LevelInfo  LogLevel = "info"
	LevelDebug LogLevel = "debug"
	LevelTrace LogLevel = "trace"
)

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelInfo:
		return logrus.InfoLevel
	case LevelDebug:
		return logrus.DebugLevel
	case LevelTrace:
		return logrus.TraceLevel
	default:
		return logrus.WarnLevel
	}
}

// LogrusSink is the production EventSink: structured logging via logrus,
// with an optional spinner-style progress indicator cycling through
// indicators for each reported coordinate.
type LogrusSink struct {
	log          *logrus.Logger
	showProgress bool
	indicators   string
	progressOut  io.Writer

	mu   sync.Mutex
	tick int
}

// New builds a LogrusSink writing to out at the given level. indicators
// is the glyph sequence cycled through for progress display
// (progress_indicators in the configuration); showProgress gates whether
// Progress emits anything at all.
func New(out io.Writer, level LogLevel, showProgress bool, indicators string) *LogrusSink {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level.logrusLevel())
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if indicators == "" {
		indicators = `|/-\`
	}
	return &LogrusSink{log: log, showProgress: showProgress, indicators: indicators, progressOut: out}
}

func (s *LogrusSink) Info(format string, args ...any)  { s.log.Infof(format, args...) }
func (s *LogrusSink) Warn(format string, args ...any)  { s.log.Warnf(format, args...) }
func (s *LogrusSink) Debug(format string, args ...any) { s.log.Debugf(format, args...) }
func (s *LogrusSink) Trace(format string, args ...any) { s.log.Tracef(format, args...) }

func (s *LogrusSink) Problem(p problem.Problem) {
	s.log.WithFields(logrus.Fields{
		"kind":       p.Kind,
		"coordinate": p.Coordinate,
		"url":        p.URL,
	}).Warn(p.Message)
}

// Progress cycles the next indicator glyph and writes a single-line
// status for coordinate, a no-op if showProgress is false.
func (s *LogrusSink) Progress(coordinate string) {
	if !s.showProgress || len(s.indicators) == 0 {
		return
	}
	s.mu.Lock()
	glyph := s.indicators[s.tick%len(s.indicators)]
	s.tick++
	s.mu.Unlock()
	fmt.Fprintf(s.progressOut, "\r%c %s", glyph, coordinate)
}
