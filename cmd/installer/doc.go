// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
The installer sets up rpi-bootcfg on a device.

# Overview

It checks the system, writes the application config and a systemd unit for
the service, and can seed the settings store from the existing config.txt.

# Building

	go build -o rpi-bootcfg-installer ./cmd/installer

# Command Line Options

	--config PATH   application config to create
	--variant NAME  classic or extended
	--store NAME    toml or sqlite
	--unit PATH     systemd unit to create (empty to skip)
	--binary PATH   rpi-bootcfg binary used in ExecStart
	--init          seed settings from config.txt
	--force         replace an existing application config
	--yes           do not ask for confirmation

# System Checks

  - Platform: /etc/arch names a Raspberry Pi build
  - config.txt: present on the boot partition
  - Disk Space: room for the settings store
  - vcgencmd, tvservice: available for hardware detection and EDID dumps

Only a disk space failure stops the installation.
*/
package main
