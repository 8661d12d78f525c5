/*******************************************************************************
*
* Copyright 2016 Stefan Majewsky <majewsky@gmx.net>
*
* This file is part of Holo.
*
* Holo is free software: you can redistribute it and/or modify it under the
* terms of the GNU General Public License as published by the Free Software
* Foundation, either version 3 of the License, or (at your option) any later
* version.
*
* Holo is distributed in the hope that it will be useful, but WITHOUT ANY
* WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS FOR
* A PARTICULAR PURPOSE. See the GNU General Public License for more details.
*
* You should have received a copy of the GNU General Public License along with
* Holo. If not, see <http://www.gnu.org/licenses/>.
*
*******************************************************************************/

//Package logging provides the prefixed, level-gated logger: "ERROR:" lines
//are always shown, "WARNING:" and informational lines are suppressed by the
//quiet flag.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

//Logger wraps an slog.Logger with "ERROR:"/"WARNING:" line prefixes and a
//quiet flag that suppresses everything but errors.
type Logger struct {
	inner *slog.Logger
	quiet bool
}

//New creates a Logger writing to w. Informational and warning records are
//only emitted when quiet is false; error records are always emitted.
func New(w io.Writer, quiet bool) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{inner: slog.New(h), quiet: quiet}
}

//Default returns a Logger writing to os.Stderr.
func Default(quiet bool) *Logger {
	return New(os.Stderr, quiet)
}

//SetQuiet toggles suppression of informational and warning output.
func (l *Logger) SetQuiet(quiet bool) {
	l.quiet = quiet
}

//Errorf reports a fatal-for-the-operation condition. Never suppressed.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.inner.Error(fmt.Sprintf("ERROR: "+format, args...))
}

//Warnf reports a tolerated condition (e.g. a checksum mismatch that does
//not abort the install).
func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	l.inner.Warn(fmt.Sprintf("WARNING: "+format, args...))
}

//Infof reports routine progress.
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	l.inner.Info(fmt.Sprintf(format, args...))
}
