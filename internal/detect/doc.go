// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect identifies the board rpi-bootcfg is running on.
//
// Sources, in order:
//   - /etc/arch for the platform gate (Arch, IsRPi)
//   - the Revision line of /proc/cpuinfo (ParseRevision, DecodeRevision)
//   - `vcgencmd get_mem arm` + `vcgencmd get_mem gpu` for RAM size when the
//     revision code does not carry it
//
// New-style revision codes (bit 23 set) encode the board type in bits 4-11
// and the RAM size as 2^(bits 20-22 + 8) MB. Old-style codes are opaque.
//
// Missing sources never fail the probe; the affected Identity fields are
// left unknown.
package detect
