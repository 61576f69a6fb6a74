package main

import (
	"context"
	"log"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/lcdmon/minidash/lcdpipe"
)

// keyEventSource is the slice of the evdev device the watcher consumes.
type keyEventSource interface {
	ReadOne() (*evdev.InputEvent, error)
}

// watchInput listens for power-key presses and queues a full redraw on
// each one, until ctx is cancelled. A missing input device is not fatal;
// headless boards simply run without the button.
func watchInput(ctx context.Context, deviceName string, sched *lcdpipe.Scheduler) {
	if deviceName == "" {
		return
	}

	paths, err := evdev.ListDevicePaths()
	if err != nil {
		log.Printf("input: list devices: %v", err)
		return
	}

	var devPath string
	for _, ip := range paths {
		if ip.Name == deviceName {
			devPath = ip.Path
			break
		}
	}
	if devPath == "" {
		log.Printf("input: device %q not found, button disabled", deviceName)
		return
	}

	keyboard, err := evdev.Open(devPath)
	if err != nil {
		log.Printf("input: open %s: %v", devPath, err)
		return
	}
	defer keyboard.Ungrab()

	if err := keyboard.Grab(); err != nil {
		log.Printf("input: grab failed: %v", err)
	}

	// ReadOne blocks in the kernel; closing the device on cancellation is
	// what unblocks it so the loop can observe ctx and return.
	go func() {
		<-ctx.Done()
		keyboard.Close()
	}()

	name, _ := keyboard.Name()
	log.Printf("using input device: %s (%s)", devPath, name)

	watchKeys(ctx, keyboard, sched)
}

// watchKeys runs the event loop until ctx is cancelled.
func watchKeys(ctx context.Context, dev keyEventSource, sched *lcdpipe.Scheduler) {
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("input: read: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if ev.Type == evdev.EV_KEY && ev.Code == evdev.KEY_POWER && ev.Value == 1 {
			log.Println("power key pressed, forcing full redraw")
			sched.ForceFullRedraw()
		}
	}
}
