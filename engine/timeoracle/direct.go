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

package timeoracle

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alarmd/alarmd/alarmerr"
	"github.com/alarmd/alarmd/engine/alarm"
)

// LocaltimePath is where Linux keeps the system timezone, usually a
// symlink into the zoneinfo database.
const LocaltimePath = "/etc/localtime"

// driftPollInterval is how often the background goroutine compares wall-
// clock elapsed time against monotonic elapsed time to detect a step.
const driftPollInterval = 5 * time.Second

// driftTolerance is how far wall and monotonic elapsed time may diverge
// before it is treated as an externally-caused jump rather than normal
// scheduling jitter.
const driftTolerance = 2 * time.Second

// Direct is the OS-clock-backed Oracle driver: wall time comes from
// time.Now(), monotonic time from the runtime's monotonic reading (carried
// inside time.Time), and the system zone from LocaltimePath. An optional
// offset lets tests pin "now" to a fixed reference instant (spec.md §8
// uses 2008-01-03 06:05:00 EET as its scenario reference).
type Direct struct {
	offsetMu sync.RWMutex
	offset   time.Duration

	zoneMu      sync.Mutex // guards currentZone, mirroring the TZ save/restore scope
	currentZone string

	subMu sync.Mutex
	subs  map[int]chan<- Change
	nextSub int

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewDirect builds a Direct oracle and starts its background watches.
func NewDirect() (*Direct, error) {
	zone, err := readSystemZone()
	if err != nil {
		zone = "UTC"
	}
	d := &Direct{
		currentZone: zone,
		subs:        make(map[int]chan<- Change),
		done:        make(chan struct{}),
	}

	if w, err := fsnotify.NewWatcher(); err == nil {
		d.watcher = w
		if err := w.Add(LocaltimePath); err == nil {
			d.wg.Add(1)
			go d.watchZone()
		}
	}

	d.wg.Add(1)
	go d.watchDrift()

	return d, nil
}

// SetOffset shifts every future Now() call by delta; MonotonicNow() is
// not affected. Used by tests to pin a deterministic reference time
// without touching the real system clock.
func (d *Direct) SetOffset(delta time.Duration) {
	d.offsetMu.Lock()
	d.offset = delta
	d.offsetMu.Unlock()
}

func (d *Direct) readOffset() time.Duration {
	d.offsetMu.RLock()
	defer d.offsetMu.RUnlock()
	return d.offset
}

// Now implements Oracle.
func (d *Direct) Now() int64 {
	return time.Now().Add(d.readOffset()).Unix()
}

// MonotonicNow implements Oracle. time.Now() already carries a monotonic
// reading internally; subtracting two time.Time values uses it
// automatically, so we expose seconds-since-an-arbitrary-epoch derived
// from it rather than relying on the (offsettable) wall clock.
func (d *Direct) MonotonicNow() int64 {
	return int64(time.Since(processStart) / time.Second)
}

// processStart anchors MonotonicNow; time.Since uses the monotonic
// component of both time.Time values when it is present, so wall-clock
// adjustments never affect the result.
var processStart = time.Now()

// Zone implements Oracle.
func (d *Direct) Zone() string {
	d.zoneMu.Lock()
	defer d.zoneMu.Unlock()
	return d.currentZone
}

// Mktime implements Oracle.
func (d *Direct) Mktime(bd alarm.BrokenDown, tz string) (int64, error) {
	loc, err := d.zoneFor(tz)
	if err != nil {
		return 0, err
	}
	sec := bd.Second
	if sec == alarm.Unset {
		sec = 0
	}
	t := time.Date(bd.Year, time.Month(bd.Month+1), bd.Day, bd.Hour, bd.Minute, sec, 0, loc)
	return t.Unix(), nil
}

// Localtime implements Oracle.
func (d *Direct) Localtime(sec int64, tz string) (alarm.BrokenDown, error) {
	loc, err := d.zoneFor(tz)
	if err != nil {
		return alarm.BrokenDown{}, err
	}
	t := time.Unix(sec, 0).In(loc)
	return alarm.BrokenDown{
		Year: t.Year(), Month: int(t.Month()) - 1, Day: t.Day(),
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
		Weekday: int(t.Weekday()),
	}, nil
}

// zoneFor resolves tz to a *time.Location, falling back to the current
// system zone (guarded by zoneMu) when tz is empty. This is the scoped
// acquisition of process-wide zone state called for by Design Notes
// bullet 2: the lock is held only for the read of currentZone, never
// across the (already zone-explicit, and therefore safe to run
// concurrently) time.LoadLocation/time.Date call itself.
func (d *Direct) zoneFor(tz string) (*time.Location, error) {
	name := tz
	if name == "" {
		d.zoneMu.Lock()
		name = d.currentZone
		d.zoneMu.Unlock()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, alarmerr.New(alarmerr.KindInvalid, "unknown timezone %q: %v", name, err)
	}
	return loc, nil
}

// Subscribe implements Oracle.
func (d *Direct) Subscribe(ch chan<- Change) (cancel func()) {
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = ch
	d.subMu.Unlock()

	return func() {
		d.subMu.Lock()
		delete(d.subs, id)
		d.subMu.Unlock()
	}
}

func (d *Direct) notify(c Change) {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for _, ch := range d.subs {
		select {
		case ch <- c:
		default: // never block a scheduler pass on a slow subscriber
		}
	}
}

// Close implements Oracle.
func (d *Direct) Close() error {
	close(d.done)
	d.wg.Wait()
	if d.watcher != nil {
		return d.watcher.Close()
	}
	return nil
}

func (d *Direct) watchZone() {
	defer d.wg.Done()
	for {
		select {
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			zone, err := readSystemZone()
			if err != nil {
				continue
			}
			d.zoneMu.Lock()
			changed := zone != d.currentZone
			d.currentZone = zone
			d.zoneMu.Unlock()
			if changed {
				d.notify(Change{ZoneChanged: true})
			}
		case _, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
		case <-d.done:
			return
		}
	}
}

func (d *Direct) watchDrift() {
	defer d.wg.Done()
	ticker := time.NewTicker(driftPollInterval)
	defer ticker.Stop()

	// lastWall has its monotonic reading stripped (Round(0)) so that
	// Sub below is forced through the wall clock, where an NTP step or a
	// manual date(1) change actually shows up; time.Time.Sub uses the
	// monotonic reading instead whenever both operands carry one, which
	// would make wallDelta just reflect elapsed ticker time.
	lastWall := time.Now().Round(0)
	lastMono := time.Now()
	for {
		select {
		case <-ticker.C:
			nowWall := time.Now().Round(0)
			nowMono := time.Now()
			wallDelta := nowWall.Sub(lastWall)
			monoDelta := nowMono.Sub(lastMono)
			drift := wallDelta - monoDelta
			if drift < 0 {
				drift = -drift
			}
			if drift > driftTolerance {
				d.notify(Change{TimeChanged: true})
			}
			lastWall, lastMono = nowWall, nowMono
		case <-d.done:
			return
		}
	}
}

// readSystemZone resolves the system timezone name from the LocaltimePath
// symlink target, e.g. "/usr/share/zoneinfo/Europe/Helsinki" ->
// "Europe/Helsinki".
func readSystemZone() (string, error) {
	target, err := os.Readlink(LocaltimePath)
	if err != nil {
		return "", err
	}
	const marker = "zoneinfo/"
	idx := -1
	for i := 0; i+len(marker) <= len(target); i++ {
		if target[i:i+len(marker)] == marker {
			idx = i + len(marker)
			break
		}
	}
	if idx < 0 {
		return "", fmt.Errorf("could not find zoneinfo marker in %q", target)
	}
	return target[idx:], nil
}
