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

// Command alarmd is the alarm scheduling daemon: it loads the persisted
// queue, arms the earliest alarm against the time oracle and (where
// available) the hardware wake source, dispatches fired events through
// their configured actions, and exports the queue over dbus.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/alarmd/alarmd/cli"
	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/dispatch"
	"github.com/alarmd/alarmd/engine/lifecycle"
	"github.com/alarmd/alarmd/engine/queue"
	"github.com/alarmd/alarmd/engine/scheduler"
	"github.com/alarmd/alarmd/engine/scheduler/hwwake"
	"github.com/alarmd/alarmd/engine/timeoracle"
	"github.com/alarmd/alarmd/ipc"
	"github.com/alarmd/alarmd/logging"
	"github.com/alarmd/alarmd/metrics"
)

// version is set at link time (-ldflags "-X main.version=...").
var version = "dev"

// defaultQueueFile is where the queue persists if --queue-file isn't given.
const defaultQueueFile = "/var/lib/alarmd/queue"

// instanceID identifies this run in log lines, the same role
// purpleidea-mgmt/lib/deploy.go mints a uuid for a deployment.
var instanceID = uuid.New()

func main() {
	args, err := cli.Parse("alarmd", version, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.ParseLevel(args.LogLevel), logging.ParseDestination(args.LogDest), args.LogFile)
	if err != nil {
		log.Fatalf("logging setup failed: %v", err)
	}
	defer logger.Close()
	logger.Logf("alarmd %s starting, instance %s", version, instanceID)

	if err := run(args, logger); err != nil {
		logger.Logf("fatal: %v", err)
		os.Exit(1)
	}
}

func run(args *cli.Args, logger *logging.Logger) error {
	queueFile := args.QueueFile
	if queueFile == "" {
		queueFile = defaultQueueFile
	}

	store, err := queue.Open(queueFile)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer store.Close()
	if args.SnoozeDefault > 0 {
		store.SetSnoozeDefault(args.SnoozeDefault)
	}

	oracle, err := timeoracle.NewDirect()
	if err != nil {
		return fmt.Errorf("time oracle: %w", err)
	}
	defer oracle.Close()

	wake := hwwake.New()

	dispatcher := dispatch.New()
	dispatcher.Logf = logger.At(logging.LevelDebug)

	eng := lifecycle.New(store, oracle, nil, dispatcher, noUIService{})
	eng.Logf = logger.At(logging.LevelInfo)
	sched := scheduler.New(oracle, store, wake, eng)
	sched.Logf = logger.At(logging.LevelDebug)
	eng.AttachScheduler(sched)

	var mtx *metrics.Metrics
	if args.MetricsListen != "" {
		mtx = &metrics.Metrics{Listen: args.MetricsListen}
		if err := mtx.Init(); err != nil {
			return fmt.Errorf("metrics init: %w", err)
		}
		if err := mtx.Start(); err != nil {
			return fmt.Errorf("metrics start: %w", err)
		}
		defer mtx.Stop()
	}

	server := ipc.NewLocalServer(eng, store)

	var conn *dbus.Conn
	if args.SystemBus {
		conn, err = dbus.ConnectSystemBus()
	} else {
		conn, err = dbus.ConnectSessionBus()
	}
	if err != nil {
		logger.Logf("dbus unavailable, running without IPC: %v", err)
	} else {
		defer conn.Close()
		dbusServer, err := ipc.NewDBusServer(conn, server)
		if err != nil {
			logger.Logf("dbus export failed, running without IPC: %v", err)
		} else {
			dbusServer.Logf = logger.At(logging.LevelInfo)
		}
	}

	stop := make(chan struct{})
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	signal.Notify(signals, syscall.SIGTERM)

	go sched.Run(stop)
	sched.Recompute()

	if ok, _ := daemon.SdNotify(false, daemon.SdNotifyReady); ok {
		logger.Logf("notified systemd of readiness")
	}

	var fatalErr error
	select {
	case <-signals:
		logger.Logf("shutting down")
	case <-sched.Fatal.C():
		fatalErr = sched.Fatal.Err()
	}
	close(stop)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	return fatalErr
}

// noUIService is used until a real desktop/UI collaborator is wired in;
// every presented event simply waits out its resend timer.
type noUIService struct{}

func (noUIService) Present(e *alarm.Event) error    { return nil }
func (noUIService) Cancel(cookie alarm.Cookie) error { return nil }
