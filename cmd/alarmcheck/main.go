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

// Command alarmcheck is the pre-boot status handoff utility: a boot
// script runs it before starting the rest of userspace and uses its
// exit status to decide whether to continue booting normally, boot into
// the minimal acting-dead mode, reprogram the wake alarm and power back
// off, or treat the situation as an error.
package main

import (
	"fmt"
	"os"

	"github.com/alarmd/alarmd/engine/alarm"
	"github.com/alarmd/alarmd/engine/queue"
	"github.com/alarmd/alarmd/engine/timeoracle"
)

// Status mirrors the original alarmcheck.c's alarmretval enum. The C
// values run ERR=-1, NORMAL=0, ACTDEAD=1, FUTURE=2; process exit codes
// can't be negative, so ERR is reassigned the first unused small value
// instead of being dropped.
type Status int

const (
	StatusNormal  Status = 0
	StatusActdead Status = 1
	StatusFuture  Status = 2
	StatusErr     Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "NORMAL"
	case StatusActdead:
		return "ACTDEAD"
	case StatusFuture:
		return "FUTURE"
	default:
		return "ERR"
	}
}

// horizon24h is TIME_T_24H from the original: a wake alarm further out
// than this is treated as worth reprogramming and shutting down for,
// rather than booting now to wait it out.
const horizon24h = 24 * 60 * 60

func main() {
	path := defaultQueueFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	status := checkAlarmStatus(path)
	fmt.Println(status)
	os.Exit(int(status))
}

const defaultQueueFile = "/var/lib/alarmd/queue"

// checkAlarmStatus loads the persisted queue and classifies the
// earliest wake-capable alarm, the same decision check_alarm_status did
// against a single CAL-stored alarm_time/action pair: this daemon keeps
// a whole queue instead of one slot, so the earliest BOOT or ACTDEAD
// event standing in for that single stored alarm.
func checkAlarmStatus(path string) Status {
	store, err := queue.Open(path)
	if err != nil {
		return StatusErr
	}
	defer store.Close()

	oracle, err := timeoracle.NewDirect()
	if err != nil {
		return StatusErr
	}
	defer oracle.Close()

	now := oracle.Now()

	var earliest *alarm.Event
	for _, e := range store.Snapshot() {
		if e.Flags.Has(alarm.FlagDisabled) {
			continue
		}
		if !e.Flags.Has(alarm.FlagBoot) && !e.Flags.Has(alarm.FlagActDead) {
			continue // can't wake the device, not a boot-time concern
		}
		if e.Trigger <= alarm.TriggerUnset {
			continue
		}
		if earliest == nil || e.Trigger < earliest.Trigger {
			earliest = e
		}
	}

	if earliest == nil {
		return StatusErr
	}
	if earliest.Trigger-now > horizon24h {
		return StatusFuture
	}
	if earliest.Flags.Has(alarm.FlagActDead) {
		return StatusActdead
	}
	return StatusNormal
}
