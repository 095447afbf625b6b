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

//go:build linux

package hwwake

import (
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// rtcDevice is where this host's wall-clock-backup RTC lives. hwrtc.c
// hardcodes the same path.
const rtcDevice = "/dev/rtc0"

// rtcWkAlrmIoctl is RTC_WKALM_SET from <linux/rtc.h>: _IOW('p', 0x0f,
// struct rtc_wkalrm).
const rtcWkAlrmIoctl = 0x4028700f

// rtcTime mirrors struct rtc_time from <linux/rtc.h> field for field.
type rtcTime struct {
	Sec, Min, Hour        int32
	Mday, Mon, Year       int32
	Wday, Yday, Isdst     int32
}

// rtcWkAlrm mirrors struct rtc_wkalrm.
type rtcWkAlrm struct {
	Enabled uint8
	Pending uint8
	_       [2]byte // struct padding before the embedded rtc_time
	Time    rtcTime
}

// RTC arms the kernel's real-time-clock wake alarm via ioctl, the same
// interface hwrtc_set_alarm uses. Times are always programmed in UTC,
// mirroring hwrtc_mktime's forced TZ=UTC around the conversion: the
// kernel's RTC clock itself has no concept of timezone.
type RTC struct {
	mu sync.Mutex
}

func detectRTC() Source {
	if _, err := os.Stat(rtcDevice); err != nil {
		return nil
	}
	return &RTC{}
}

// Arm implements hwwake.Source.
func (r *RTC) Arm(utcSec int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fd, err := unix.Open(rtcDevice, unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	t := time.Unix(utcSec, 0).UTC()
	wk := rtcWkAlrm{
		Enabled: 1,
		Time: rtcTime{
			Sec: int32(t.Second()), Min: int32(t.Minute()), Hour: int32(t.Hour()),
			Mday: int32(t.Day()), Mon: int32(t.Month()) - 1, Year: int32(t.Year()) - 1900,
		},
	}
	return ioctlWkAlrm(fd, &wk)
}

// Disarm implements hwwake.Source.
func (r *RTC) Disarm() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fd, err := unix.Open(rtcDevice, unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	wk := rtcWkAlrm{Enabled: 0}
	return ioctlWkAlrm(fd, &wk)
}

// CanWakeDevice implements hwwake.Source.
func (r *RTC) CanWakeDevice() bool { return true }

// Priority implements hwwake.Source; it outranks the no-op fallback.
func (r *RTC) Priority() int { return 10 }

func ioctlWkAlrm(fd int, wk *rtcWkAlrm) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(rtcWkAlrmIoctl), uintptr(unsafe.Pointer(wk)))
	if errno != 0 {
		return errno
	}
	return nil
}
