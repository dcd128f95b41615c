// Package config loads the rig configuration from defaults, an optional YAML
// file and CRIG_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"

	"github.com/sweeney/crossing-rig/internal/display"
	"github.com/sweeney/crossing-rig/internal/gpio"
	"github.com/sweeney/crossing-rig/internal/logic"
	"github.com/sweeney/crossing-rig/internal/mqtt"
	"github.com/sweeney/crossing-rig/internal/rig"
)

// Validation errors.
var (
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidPins     = errors.New("invalid pins")
	ErrDuplicatePin    = errors.New("duplicate pin")
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// Config is the complete daemon configuration.
type Config struct {
	Pins      Pins              `yaml:"pins"`
	Timing    Timing            `yaml:"timing"`
	Modes     map[string][]Step `yaml:"modes"`
	Telemetry Telemetry         `yaml:"telemetry"`
	HTTP      string            `yaml:"http" env:"CRIG_HTTP"`
	Simulate  bool              `yaml:"simulate" env:"CRIG_SIMULATE"`
}

// Pins holds BCM line offsets on Chip.
type Pins struct {
	Chip      string `yaml:"chip" env:"CRIG_GPIO_CHIP"`
	OnOff     int    `yaml:"on_off" env:"CRIG_PIN_ON_OFF"`
	Rotate    int    `yaml:"rotate" env:"CRIG_PIN_ROTATE"`
	Emergency int    `yaml:"emergency" env:"CRIG_PIN_EMERGENCY"`
	Mode      []int  `yaml:"mode" env:"CRIG_PINS_MODE" envSeparator:","`
	Motor     []int  `yaml:"motor" env:"CRIG_PINS_MOTOR" envSeparator:","`
	LEDs      []int  `yaml:"leds" env:"CRIG_PINS_LED" envSeparator:","`
	LCD       LCD    `yaml:"lcd"`
}

// LCD holds the HD44780 wiring.
type LCD struct {
	RS   int   `yaml:"rs" env:"CRIG_LCD_RS"`
	E    int   `yaml:"e" env:"CRIG_LCD_E"`
	Data []int `yaml:"data" env:"CRIG_LCD_DATA" envSeparator:","`
}

// Timing holds the rig periods.
type Timing struct {
	Debounce       time.Duration `yaml:"debounce" env:"CRIG_DEBOUNCE"`
	RampPeriod     time.Duration `yaml:"ramp_period" env:"CRIG_RAMP_PERIOD"`
	WalkPeriod     time.Duration `yaml:"walk_period" env:"CRIG_WALK_PERIOD"`
	BlinkPeriod    time.Duration `yaml:"blink_period" env:"CRIG_BLINK_PERIOD"`
	DispatchPeriod time.Duration `yaml:"dispatch_period" env:"CRIG_DISPATCH_PERIOD"`
}

// Step is one scheduled event of a mode override. Target is a speed name
// ("super-fast", "fast", "medium", "slow", "super-slow") or "stop".
type Step struct {
	After  time.Duration `yaml:"after"`
	Target string        `yaml:"target"`
}

// Telemetry configures MQTT publishing.
type Telemetry struct {
	Broker    string        `yaml:"broker" env:"CRIG_BROKER"`
	ClientID  string        `yaml:"client_id" env:"CRIG_CLIENT_ID"`
	Heartbeat time.Duration `yaml:"heartbeat" env:"CRIG_HEARTBEAT"`
	Buffer    int           `yaml:"buffer" env:"CRIG_BUFFER"`
}

// Default returns the stock configuration.
func Default() Config {
	rc := rig.DefaultConfig()
	return Config{
		Pins: Pins{
			Chip:      "gpiochip0",
			OnOff:     gpio.DefaultPinOnOff,
			Rotate:    gpio.DefaultPinRotate,
			Emergency: gpio.DefaultPinEmergency,
			Mode:      append([]int(nil), gpio.DefaultPinsMode...),
			Motor:     append([]int(nil), gpio.DefaultPinsMotor...),
			LEDs:      append([]int(nil), gpio.DefaultPinsLED...),
			LCD: LCD{
				RS:   display.DefaultLCDPins.RS,
				E:    display.DefaultLCDPins.E,
				Data: append([]int(nil), display.DefaultLCDPins.Data[:]...),
			},
		},
		Timing: Timing{
			Debounce:       rc.Debounce,
			RampPeriod:     rc.RampPeriod,
			WalkPeriod:     rc.WalkPeriod,
			BlinkPeriod:    rc.BlinkPeriod,
			DispatchPeriod: rc.DispatchPeriod,
		},
		Telemetry: Telemetry{
			Broker:    "tcp://192.168.1.200:1883",
			ClientID:  "crossing-rig",
			Heartbeat: 15 * time.Minute,
			Buffer:    mqtt.DefaultBufferSize,
		},
		HTTP: ":80",
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped when
// path is empty) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate reports the first problem found in cfg.
func (c Config) Validate() error {
	periods := []struct {
		name string
		d    time.Duration
	}{
		{"debounce", c.Timing.Debounce},
		{"ramp_period", c.Timing.RampPeriod},
		{"walk_period", c.Timing.WalkPeriod},
		{"blink_period", c.Timing.BlinkPeriod},
		{"dispatch_period", c.Timing.DispatchPeriod},
	}
	for _, p := range periods {
		if p.d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidPeriod, p.name, p.d)
		}
	}
	if c.Telemetry.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative, got %v", ErrInvalidPeriod, c.Telemetry.Heartbeat)
	}

	if err := c.validatePins(); err != nil {
		return err
	}

	if _, err := c.Schedules(); err != nil {
		return err
	}
	return nil
}

func (c Config) validatePins() error {
	p := c.Pins
	counts := []struct {
		name string
		got  int
		want int
	}{
		{"mode", len(p.Mode), logic.NumModes},
		{"motor", len(p.Motor), 4},
		{"leds", len(p.LEDs), 8},
		{"lcd.data", len(p.LCD.Data), 4},
	}
	for _, n := range counts {
		if n.got != n.want {
			return fmt.Errorf("%w: %s needs %d lines, got %d", ErrInvalidPins, n.name, n.want, n.got)
		}
	}

	// The LCD is only driven on real hardware; in simulation its lines may
	// overlap others.
	named := map[string][]int{
		"on_off":    {p.OnOff},
		"rotate":    {p.Rotate},
		"emergency": {p.Emergency},
		"mode":      p.Mode,
		"motor":     p.Motor,
		"leds":      p.LEDs,
	}
	if !c.Simulate {
		named["lcd"] = append([]int{p.LCD.RS, p.LCD.E}, p.LCD.Data...)
	}

	seen := make(map[int]string)
	for _, group := range []string{"on_off", "rotate", "emergency", "mode", "motor", "leds", "lcd"} {
		for _, pin := range named[group] {
			if pin < 0 {
				return fmt.Errorf("%w: %s has negative line %d", ErrInvalidPins, group, pin)
			}
			if other, ok := seen[pin]; ok {
				return fmt.Errorf("%w: line %d used by %s and %s", ErrDuplicatePin, pin, other, group)
			}
			seen[pin] = group
		}
	}
	return nil
}

// Schedules returns the default mode schedules with any overrides applied.
func (c Config) Schedules() (logic.Schedules, error) {
	s := logic.DefaultSchedules()
	for name, steps := range c.Modes {
		m, err := parseMode(name)
		if err != nil {
			return s, err
		}
		events := make([]logic.ScheduledEvent, 0, len(steps))
		for i, st := range steps {
			speed, err := logic.ParseSpeed(st.Target)
			if err != nil {
				return s, fmt.Errorf("%w: %s step %d: %v", ErrInvalidSchedule, name, i, err)
			}
			e := logic.ScheduledEvent{After: st.After, Effect: logic.SetTarget(speed)}
			if speed == logic.SpeedStop {
				e.Effect = logic.RequestStop()
			}
			events = append(events, e)
		}
		s[m] = events
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return s, nil
}

func parseMode(name string) (logic.Mode, error) {
	for m := logic.Mode(0); m < logic.NumModes; m++ {
		if strings.EqualFold(m.String(), name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidSchedule, name)
}

// Rig converts the timing and schedules to a rig.Config.
func (c Config) Rig() (rig.Config, error) {
	s, err := c.Schedules()
	if err != nil {
		return rig.Config{}, err
	}
	rc := rig.DefaultConfig()
	rc.Debounce = c.Timing.Debounce
	rc.RampPeriod = c.Timing.RampPeriod
	rc.WalkPeriod = c.Timing.WalkPeriod
	rc.BlinkPeriod = c.Timing.BlinkPeriod
	rc.DispatchPeriod = c.Timing.DispatchPeriod
	rc.Schedules = s
	return rc, nil
}

// InputPins returns the input wiring.
func (c Config) InputPins() gpio.InputPins {
	return gpio.InputPins{
		OnOff:     c.Pins.OnOff,
		Rotate:    c.Pins.Rotate,
		Emergency: c.Pins.Emergency,
		Mode:      c.Pins.Mode,
	}
}

// LCDPins returns the display wiring. cfg must be valid.
func (c Config) LCDPins() display.LCDPins {
	p := display.LCDPins{RS: c.Pins.LCD.RS, E: c.Pins.LCD.E}
	copy(p.Data[:], c.Pins.LCD.Data)
	return p
}

// MQTT returns the publisher options.
func (c Config) MQTT() mqtt.Options {
	return mqtt.Options{
		Broker:     c.Telemetry.Broker,
		ClientID:   c.Telemetry.ClientID,
		BufferSize: c.Telemetry.Buffer,
	}
}
