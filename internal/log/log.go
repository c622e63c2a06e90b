// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log is a minimal leveled logger shared by all postpipe packages.
// Output goes to stderr so pipeline results on stdout stay machine-readable.
package log

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

type Level int32

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var level atomic.Int32

func init() {
	level.Store(int32(InfoLevel))
}

// SetLogLevel sets the minimum level that will be emitted.
func SetLogLevel(l Level) {
	level.Store(int32(l))
}

// GetLogLevel returns the current minimum level.
func GetLogLevel() Level {
	return Level(level.Load())
}

func output(l Level, tag, format string, args ...any) {
	if Level(level.Load()) > l {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(os.Stderr, "%s [%s] %s\n", ts, tag, fmt.Sprintf(format, args...))
}

func Debug(format string, args ...any) {
	output(DebugLevel, "DEBUG", format, args...)
}

func Info(format string, args ...any) {
	output(InfoLevel, "INFO", format, args...)
}

func Warn(format string, args ...any) {
	output(WarnLevel, "WARN", format, args...)
}

func Error(format string, args ...any) {
	output(ErrorLevel, "ERROR", format, args...)
}
