// Alarmd
// Copyright (C) 2013-2026+ the alarmd contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package cli handles command-line parsing for the alarmd daemon. It's
// the first thing its main() calls.
package cli

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
)

// Args is the alarmd daemon's command line, parsed with go-arg. Only
// the two debug knobs the design mandates are required; everything else
// is an optional override of an otherwise sane default.
type Args struct {
	LogLevel string `arg:"--log-level" default:"info" help:"error, info, or debug"`
	LogDest  string `arg:"--log-dest" default:"stderr" help:"stderr, journal, or file"`
	LogFile  string `arg:"--log-file" help:"path to write to when --log-dest=file"`

	QueueFile     string `arg:"--queue-file" help:"path to the persisted queue file"`
	SnoozeDefault int64  `arg:"--snooze-default" default:"540" help:"default snooze length, in seconds"`

	SystemBus bool `arg:"--system-bus" help:"export the dbus service on the system bus instead of the session bus"`

	MetricsListen string `arg:"--metrics-listen" help:"address to serve Prometheus metrics on; empty disables it"`

	version string `arg:"-"`
}

// Version implements go-arg's version-string hook.
func (a *Args) Version() string { return a.version }

// Parse parses argv (excluding argv[0]) into Args. --help prints usage
// and --version prints version, both exiting 0; any other parse error is
// returned to the caller.
func Parse(program, version string, argv []string) (*Args, error) {
	args := &Args{version: version}

	config := arg.Config{Program: program}
	parser, err := arg.NewParser(config, args)
	if err != nil {
		return nil, fmt.Errorf("cli config error: %w", err)
	}

	err = parser.Parse(argv)
	switch err {
	case nil:
		return args, nil
	case arg.ErrHelp:
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	case arg.ErrVersion:
		fmt.Printf("%s\n", version)
		os.Exit(0)
	}
	return nil, fmt.Errorf("argument error: %w", err)
}
