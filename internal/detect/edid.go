// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jeranaias/rpi-bootcfg/internal/util"
)

// DumpEDID asks tvservice to write the attached display's EDID block to path.
// The caller must make path's volume writable first.
func DumpEDID(ctx context.Context, runner util.Runner, tvservice, path string) error {
	if runner == nil {
		runner = util.ExecRunner{}
	}
	if tvservice == "" {
		tvservice = "tvservice"
	}

	out, err := runner.Run(ctx, tvservice, "-d", path)
	if err != nil {
		return fmt.Errorf("%s -d %s: %w: %s", tvservice, path, err, strings.TrimSpace(string(out)))
	}
	log.Printf("EDID_DUMPED | path=%s", path)
	return nil
}
