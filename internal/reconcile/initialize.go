// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jeranaias/rpi-bootcfg/internal/bootcfg"
	"github.com/jeranaias/rpi-bootcfg/internal/props"
	"github.com/jeranaias/rpi-bootcfg/internal/settings"
)

// =============================================================================
// REVERSE INITIALIZATION
// =============================================================================

// InitReport summarizes what Initialize did to the store.
type InitReport struct {
	// FileFound is false when config.txt did not exist.
	FileFound bool

	// Updated lists settings overwritten with the file's value.
	Updated []props.Property

	// Seeded lists derived settings filled from a legacy key.
	Seeded []props.Property

	// NotSet lists catalog properties with no active line in the file.
	NotSet []props.Property
}

// Initialize seeds the settings store from an existing config.txt. It never
// touches the file.
//
// For each catalog property with an active line (first one wins), the
// setting is overwritten when its current value, rendered as a string,
// differs from the file's. Properties missing from the file keep their
// setting. Then each backfill rule copies a legacy key's file value into
// every derived setting that is both missing from the file and unset in the
// store.
//
// A missing file is not an error.
func Initialize(cat *props.Catalog, store settings.Store, path string) (InitReport, error) {
	var report InitReport

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("INIT_SKIPPED | path=%s reason=not_found", path)
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("%w: %s: %v", ErrRead, path, err)
	}
	report.FileFound = true

	log.Printf("INIT_START | path=%s catalog=%s", path, cat.Name)
	doc := bootcfg.Parse(string(data))
	reader := settings.NewReader(store)

	for _, p := range cat.All() {
		m, ok := doc.FindActive(string(p))
		if !ok {
			log.Printf("INIT_NOT_SET | key=%s", p)
			report.NotSet = append(report.NotSet, p)
			continue
		}

		current, err := reader.Read(string(p))
		if err != nil {
			return report, err
		}
		if m.Value != current.String() {
			if err := store.Set(string(p), m.Value); err != nil {
				return report, err
			}
			report.Updated = append(report.Updated, p)
		}
		log.Printf("INIT_VALUE | key=%s value=%s", p, m.Value)
	}

	for _, rule := range cat.Backfills {
		legacy, ok := doc.FindActive(string(rule.Legacy))
		if !ok {
			continue
		}
		for _, derived := range rule.Derived {
			if _, inFile := doc.FindActive(string(derived)); inFile {
				continue
			}
			raw, err := store.Get(string(derived))
			if err != nil {
				return report, err
			}
			if !settings.ParseValue(raw).IsAbsent() {
				continue
			}
			if err := store.Set(string(derived), legacy.Value); err != nil {
				return report, err
			}
			log.Printf("INIT_BACKFILL | key=%s from=%s value=%s", derived, rule.Legacy, legacy.Value)
			report.Seeded = append(report.Seeded, derived)
		}
	}

	return report, nil
}
