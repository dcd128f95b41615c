// Command crossing-rig runs the level crossing display rig and publishes its
// transitions to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/crossing-rig/internal/config"
	"github.com/sweeney/crossing-rig/internal/console"
	"github.com/sweeney/crossing-rig/internal/display"
	"github.com/sweeney/crossing-rig/internal/gpio"
	"github.com/sweeney/crossing-rig/internal/logic"
	"github.com/sweeney/crossing-rig/internal/mqtt"
	"github.com/sweeney/crossing-rig/internal/rig"
	"github.com/sweeney/crossing-rig/internal/status"
	"github.com/sweeney/crossing-rig/internal/web"
)

// statusPeriod is how often the status tracker and heartbeat are refreshed.
const statusPeriod = 250 * time.Millisecond

var errConsoleClosed = errors.New("console closed")

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	simulate := flag.Bool("sim", false, "Run without hardware, driven from an interactive console")
	printState := flag.Bool("print-state", false, "Print the mode switch position and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyFlags(&cfg, *broker, *httpAddr, *simulate)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags lets command-line flags override the loaded configuration.
func applyFlags(cfg *config.Config, broker, httpAddr string, simulate bool) {
	if broker != "" {
		cfg.Telemetry.Broker = broker
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP = ""
	default:
		cfg.HTTP = httpAddr
	}
	if simulate {
		cfg.Simulate = true
	}
}

// hardware is the opened rig I/O plus the simulator inputs when simulating.
type hardware struct {
	rig.Hardware
	sim *gpio.FakeInputs
}

func (h hardware) Close() error {
	var err error
	for _, c := range []interface{ Close() error }{h.Inputs, h.Motor, h.LEDs, h.Display} {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

func openHardware(cfg config.Config) (hardware, error) {
	if cfg.Simulate {
		in := gpio.NewFakeInputs()
		return hardware{
			Hardware: rig.Hardware{
				Inputs:  in,
				Motor:   gpio.NewSimPort("motor", false),
				LEDs:    gpio.NewSimPort("leds", true),
				Display: display.Log{},
			},
			sim: in,
		}, nil
	}

	var hw hardware
	inputs, err := gpio.NewRealInputs(cfg.Pins.Chip, cfg.InputPins())
	if err != nil {
		return hw, fmt.Errorf("init inputs: %w", err)
	}
	hw.Inputs = inputs

	motor, err := gpio.NewRealPort(cfg.Pins.Chip, cfg.Pins.Motor)
	if err != nil {
		hw.Close()
		return hardware{}, fmt.Errorf("init motor port: %w", err)
	}
	hw.Motor = motor

	leds, err := gpio.NewRealPort(cfg.Pins.Chip, cfg.Pins.LEDs)
	if err != nil {
		hw.Close()
		return hardware{}, fmt.Errorf("init led port: %w", err)
	}
	hw.LEDs = leds

	lcd, err := display.NewHD44780(cfg.Pins.Chip, cfg.LCDPins())
	if err != nil {
		// The rig is usable without its panel.
		log.Printf("display: %v, logging instead", err)
		hw.Display = display.Log{}
	} else {
		hw.Display = lcd
	}
	return hw, nil
}

func run(cfg config.Config, printState bool) error {
	hw, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := hw.Close(); err != nil {
			log.Printf("close hardware: %v", err)
		}
	}()

	// Print state mode
	if printState {
		pos, err := hw.Inputs.ModeSwitch()
		if err != nil {
			return fmt.Errorf("read mode switch: %w", err)
		}
		fmt.Printf("MODE: %s\n", modeString(pos))
		return nil
	}

	rc, err := cfg.Rig()
	if err != nil {
		return err
	}
	ctrl := rig.New(rc, hw.Hardware)

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.MQTT())
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		DebounceMs:  cfg.Timing.Debounce.Milliseconds(),
		RampMs:      cfg.Timing.RampPeriod.Milliseconds(),
		WalkMs:      cfg.Timing.WalkPeriod.Milliseconds(),
		HeartbeatMs: cfg.Telemetry.Heartbeat.Milliseconds(),
		Broker:      cfg.Telemetry.Broker,
		HTTPAddr:    cfg.HTTP,
		Simulated:   cfg.Simulate,
	})
	tracker.Update(ctrl.Snapshot(), logic.EventCounts{}, 0)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	if hw.sim != nil {
		con := console.New(hw.sim, ctrl.Snapshot)
		g.Go(func() error {
			if err := con.Run(gctx); err != nil {
				return err
			}
			return errConsoleClosed
		})
	}

	log.Printf("started: debounce=%v ramp=%v walk=%v broker=%s heartbeat=%v simulate=%v",
		cfg.Timing.Debounce, cfg.Timing.RampPeriod, cfg.Timing.WalkPeriod,
		cfg.Telemetry.Broker, cfg.Telemetry.Heartbeat, cfg.Simulate)

	ticker := time.NewTicker(statusPeriod)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	loopErr := runLoop(ctrl, publisher, publisher, tracker, cfg.Telemetry.Heartbeat, time.Now, ticker.C, sigCh, gctx.Done())

	cancel()
	err = g.Wait()
	if errors.Is(err, errConsoleClosed) || errors.Is(err, context.Canceled) {
		err = nil
	}
	return multierr.Combine(loopErr, err)
}

// source is the part of the rig the run loop reads.
type source interface {
	Events() <-chan logic.Event
	Snapshot() logic.Snapshot
	Dropped() int64
}

// runLoop publishes rig events, keeps the status tracker current and sends
// heartbeats until a signal arrives or done is closed.
func runLoop(rg source, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, done <-chan struct{}) error {
	startTime := now()
	hb := logic.NewHeartbeat(startTime)
	var counts logic.EventCounts

	refresh := func() {
		if tracker == nil {
			return
		}
		tracker.Update(rg.Snapshot(), counts, rg.Dropped())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	handle := func(event logic.Event) {
		counts.Add(event.Type)
		if event.Mode != "" {
			log.Printf("event: %s (mode=%s on=%v rotating=%v)", event.Type, event.Mode, event.On, event.Rotating)
		} else {
			log.Printf("event: %s (on=%v rotating=%v)", event.Type, event.On, event.Rotating)
		}
		if err := publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
		refresh()
	}

	shutdown := func(reason string) error {
		// Publish whatever the rig emitted before the shutdown request.
	drain:
		for {
			select {
			case event := <-rg.Events():
				handle(event)
			default:
				break drain
			}
		}

		event := mqtt.SystemEvent{
			Timestamp: now(),
			Event:     "SHUTDOWN",
			Reason:    reason,
			Retained:  true,
		}
		if tracker != nil {
			refresh()
			event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", reason)
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		} else {
			log.Printf("published shutdown event")
		}
		return nil
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return shutdown(signalName(s))

		case <-done:
			log.Printf("rig stopped, shutting down")
			return shutdown("STOPPED")

		case event := <-rg.Events():
			handle(event)

		case <-tick:
			t := now()
			refresh()

			if hbData := hb.Check(t, heartbeat, counts); hbData != nil {
				log.Printf("heartbeat: uptime=%v on=%d off=%d rotations=%d emergencies=%d dropped=%d",
					hbData.Uptime, hbData.Counts.On, hbData.Counts.Off, hbData.Counts.RotationStart,
					hbData.Counts.Emergency, rg.Dropped())

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func modeString(pos [logic.NumModes]bool) string {
	m, ok := logic.SelectMode(pos)
	if !ok {
		return "NONE"
	}
	return m.String()
}
