/*
DESCRIPTION
  printimer is the darkroom timer daemon: it wires the control core to
  the relay or DMX light hardware, the meter probe, the buzzer and the
  settings store, and runs the state controller loop.

AUTHORS
  Miles Whitaker <miles@opendarkroom.org>
  Petra Lindqvist <petra@opendarkroom.org>
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package main is the timer daemon.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/rpi"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/opendarkroom/printimer/clock"
	"github.com/opendarkroom/printimer/config"
	"github.com/opendarkroom/printimer/controller"
	"github.com/opendarkroom/printimer/device"
	"github.com/opendarkroom/printimer/device/buzzer"
	"github.com/opendarkroom/printimer/device/dmx"
	"github.com/opendarkroom/printimer/device/meter"
	"github.com/opendarkroom/printimer/device/relay"
	"github.com/opendarkroom/printimer/display"
)

// Current software version.
const version = "v0.9.2"

// Logging configuration.
const (
	logPath      = "/var/log/printimer/printimer.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = true
)

// Misc constants.
const (
	pkg             = "printimer: "
	defaultSettings = "/etc/printimer/settings.json"
	defaultI2CBus   = 1
	watchdogDivisor = 2
)

func main() {
	var (
		showVersion  = flag.Bool("version", false, "show version")
		settingsPath = flag.String("settings", defaultSettings, "settings document path")
		enlargerPin  = flag.Int("enlarger-pin", 17, "enlarger relay GPIO pin")
		safePin      = flag.Int("safelight-pin", 27, "safelight relay GPIO pin")
		dmxPort      = flag.String("dmx", "", "DMX serial port for a dimmable head (empty for relay)")
		dmxAddr      = flag.Int("dmx-addr", 1, "DMX start address of the head")
		verbosity    = flag.Int("verbosity", int(logging.Info), "logging verbosity")
	)
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}

	log := logging.New(int8(*verbosity), io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info(pkg+"starting", "version", version)

	store, err := config.NewStore(*settingsPath, log)
	if err != nil {
		log.Fatal(pkg+"could not open settings store", "error", err.Error())
	}

	err = embd.InitGPIO()
	if err != nil {
		log.Fatal(pkg+"could not initialise GPIO", "error", err.Error())
	}
	defer embd.CloseGPIO()

	relays, err := relay.New(*enlargerPin, *safePin, log)
	if err != nil {
		log.Fatal(pkg+"could not open relays", "error", err.Error())
	}
	defer relays.Close()

	// The actuator is the relay lamp unless a DMX head is configured.
	var act device.LightActuator = relays
	if *dmxPort != "" {
		p := store.DefaultEnlarger()
		if p == nil || p.Control == nil {
			log.Fatal(pkg + "DMX requested but active enlarger profile has no control block")
		}
		head, err := dmx.New(*dmxPort, *dmxAddr, p.Control, log)
		if err != nil {
			log.Fatal(pkg+"could not open DMX head", "error", err.Error())
		}
		defer head.Close()
		act = head
	}

	var buzz buzzer.Buzzer
	ab, err := buzzer.NewALSA(log)
	if err != nil {
		log.Warning(pkg+"no buzzer output, cues disabled", "error", err.Error())
		buzz = &buzzer.Null{}
	} else {
		buzz = ab
	}

	err = embd.InitI2C()
	if err != nil {
		log.Fatal(pkg+"could not initialise I2C", "error", err.Error())
	}
	defer embd.CloseI2C()
	probe := meter.NewTCS3472(embd.NewI2CBus(defaultI2CBus), log)

	kp := newTerminalKeypad()

	ctrl := controller.New(store, display.Null{}, act, probe, relays, buzz,
		kp, clock.System(), log)

	err = store.Watch(func(cfg config.Config) {
		log.Info(pkg + "settings changed externally")
	})
	if err != nil {
		log.Warning(pkg+"settings watch unavailable", "error", err.Error())
	}
	defer store.Close()

	notifyHealth(log)

	log.Info(pkg + "entering controller loop")
	ctrl.Loop()
	log.Info(pkg + "controller loop ended")
}

// notifyHealth tells systemd we are up and keeps its watchdog fed.
func notifyHealth(log logging.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warning(pkg+"systemd notify failed", "error", err.Error())
		return
	}
	if !sent {
		return
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	go func() {
		for {
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			time.Sleep(interval / watchdogDivisor)
		}
	}()
}
