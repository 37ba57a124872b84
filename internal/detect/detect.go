// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// probeTimeout bounds the whole hardware probe when the caller set no deadline.
const probeTimeout = 10 * time.Second

// ErrUnknown means a hardware fact could not be determined.
var ErrUnknown = errors.New("hardware identity unknown")

// =============================================================================
// ARCHITECTURE
// =============================================================================

// DefaultArch is assumed when the arch file is missing or names a virtual
// build.
const DefaultArch = "RPi.arm"

// Arch returns the platform string from path (normally /etc/arch).
func Arch(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		util.Debugf("ARCH_DEFAULT | path=%s error=%v", path, err)
		return DefaultArch
	}
	arch := strings.TrimRight(string(data), " \t\r\n")
	if arch == "" || strings.HasPrefix(arch, "Virtual") {
		return DefaultArch
	}
	return arch
}

// IsRPi reports whether arch names a Raspberry Pi build.
func IsRPi(arch string) bool {
	return strings.HasPrefix(arch, "RPi")
}

// =============================================================================
// REVISION CODES
// =============================================================================

// Revision is the board revision code from /proc/cpuinfo.
type Revision uint32

// TypeUnknown is Identity.Type when the board type is not encoded.
const TypeUnknown = -1

var revisionRe = regexp.MustCompile(`(?m)^Revision\s*:\s*([0-9a-fA-F]+)\s*$`)

// ParseRevision extracts the revision code from cpuinfo text.
func ParseRevision(cpuinfo string) (Revision, error) {
	m := revisionRe.FindStringSubmatch(cpuinfo)
	if m == nil {
		return 0, fmt.Errorf("%w: no revision line", ErrUnknown)
	}
	n, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad revision %q: %v", ErrUnknown, m[1], err)
	}
	return Revision(n), nil
}

// NewStyle reports whether bit 23 is set, meaning the code carries type and
// memory fields.
func (r Revision) NewStyle() bool {
	return r&(1<<23) != 0
}

// Type returns the board type field (bits 4-11) of a new-style code.
func (r Revision) Type() (int, bool) {
	if !r.NewStyle() {
		return TypeUnknown, false
	}
	return int((r >> 4) & 0xff), true
}

// RAMMB returns the memory size of a new-style code in megabytes.
func (r Revision) RAMMB() (int, bool) {
	if !r.NewStyle() {
		return 0, false
	}
	return 1 << (((r >> 20) & 0x7) + 8), true
}

// String formats the code the way cpuinfo does.
func (r Revision) String() string {
	return strconv.FormatUint(uint64(r), 16)
}

var boardNames = map[int]string{
	0x00: "A",
	0x01: "B",
	0x02: "A+",
	0x03: "B+",
	0x04: "2B",
	0x06: "CM1",
	0x08: "3B",
	0x09: "Zero",
	0x0a: "CM3",
	0x0c: "Zero W",
	0x0d: "3B+",
	0x0e: "3A+",
	0x10: "CM3+",
	0x11: "4B",
	0x12: "Zero 2 W",
	0x13: "400",
	0x14: "CM4",
	0x15: "CM4S",
	0x17: "5",
}

// =============================================================================
// IDENTITY
// =============================================================================

// RAM sources recorded in Identity.RAMSource.
const (
	RAMFromRevision = "revision"
	RAMFromVcgencmd = "vcgencmd"
)

// Identity is what could be learned about the board. Zero fields are unknown.
type Identity struct {
	Revision  string `json:"revision,omitempty"`
	NewStyle  bool   `json:"new_style"`
	Type      int    `json:"type"`
	Model     string `json:"model,omitempty"`
	RAMMB     int    `json:"ram_mb,omitempty"`
	RAMSource string `json:"ram_source,omitempty"`
}

// HasType reports whether the board type is known.
func (id Identity) HasType() bool {
	return id.Type != TypeUnknown
}

// DecodeRevision fills the facts encoded in rev. Old-style codes yield only
// the revision itself.
func DecodeRevision(rev Revision) Identity {
	id := Identity{Revision: rev.String(), NewStyle: rev.NewStyle(), Type: TypeUnknown}
	if t, ok := rev.Type(); ok {
		id.Type = t
		id.Model = boardNames[t]
	}
	if mb, ok := rev.RAMMB(); ok {
		id.RAMMB = mb
		id.RAMSource = RAMFromRevision
	}
	return id
}

// ProbeHardware reads the revision from cpuinfoPath and decodes it. When the
// revision does not encode RAM size (old-style, missing or unparsable) the
// size is the sum of the ARM and GPU splits reported by vcgencmd. Nothing
// here fails: unknown facts stay zero.
func ProbeHardware(ctx context.Context, cpuinfoPath string, runner util.Runner, vcgencmd string) Identity {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	id := Identity{Type: TypeUnknown}
	if data, err := os.ReadFile(cpuinfoPath); err != nil {
		log.Printf("DETECT_CPUINFO_UNAVAILABLE | path=%s error=%v", cpuinfoPath, err)
	} else if rev, err := ParseRevision(string(data)); err != nil {
		log.Printf("DETECT_REVISION_UNKNOWN | path=%s error=%v", cpuinfoPath, err)
	} else {
		id = DecodeRevision(rev)
	}

	if id.RAMMB == 0 {
		if mb, err := queryMemSplit(ctx, runner, vcgencmd); err != nil {
			log.Printf("DETECT_RAM_UNKNOWN | error=%v", err)
		} else {
			id.RAMMB = mb
			id.RAMSource = RAMFromVcgencmd
		}
	}

	log.Printf("DETECT_HARDWARE | revision=%s new_style=%v type=%d ram_mb=%d ram_source=%s",
		id.Revision, id.NewStyle, id.Type, id.RAMMB, id.RAMSource)
	return id
}

var memRe = regexp.MustCompile(`=\s*(\d+)M`)

// queryMemSplit sums `vcgencmd get_mem arm` and `vcgencmd get_mem gpu`.
func queryMemSplit(ctx context.Context, runner util.Runner, vcgencmd string) (int, error) {
	if runner == nil {
		runner = util.ExecRunner{}
	}
	if vcgencmd == "" {
		vcgencmd = "vcgencmd"
	}

	total := 0
	for _, part := range []string{"arm", "gpu"} {
		out, err := runner.Run(ctx, vcgencmd, "get_mem", part)
		if err != nil {
			return 0, fmt.Errorf("%w: %s get_mem %s: %v", ErrUnknown, vcgencmd, part, err)
		}
		m := memRe.FindStringSubmatch(string(out))
		if m == nil {
			return 0, fmt.Errorf("%w: unexpected get_mem %s output %q", ErrUnknown, part, strings.TrimSpace(string(out)))
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%w: get_mem %s value %q: %v", ErrUnknown, part, m[1], err)
		}
		total += n
	}
	return total, nil
}
