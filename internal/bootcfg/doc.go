// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bootcfg reads and rewrites key=value lines of the firmware config.txt.
//
// It is deliberately not a general config parser. Only lines of the form
//
//	[#][ \t]*KEY[ \t]*=[ \t]*VALUE
//
// for a key the caller names are ever inspected. Everything else (comments,
// blank lines, unknown keys, dtoverlay lines) passes through unchanged.
//
// # Usage
//
//	doc := bootcfg.Parse(text)
//	var plan bootcfg.Plan
//	if m, ok := doc.Find("arm_freq"); ok {
//	    plan.Replace(m, bootcfg.ActiveLine("arm_freq", "900"))
//	} else {
//	    plan.Append(bootcfg.ActiveLine("arm_freq", "900"))
//	}
//	newText := doc.Apply(&plan)
package bootcfg
