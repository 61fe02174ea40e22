// Package config loads the controller's YAML configuration: transport
// device paths, GPIO chip/line assignments, safety thresholds, and PVDD/SRC
// tuning constants.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Transport configures the link-framer transport for one node.
type Transport struct {
	Kind   string `yaml:"kind"` // "uart" or "i2c"
	Device string `yaml:"device,omitempty"`
	Baud   int    `yaml:"baud,omitempty"`
	Bus    string `yaml:"bus,omitempty"`
	Addr   int    `yaml:"addr,omitempty"`
}

// GPIO configures one GPIO line assignment.
type GPIO struct {
	Chip   string `yaml:"chip"`
	Offset int    `yaml:"offset"`
}

// PVDDTuning mirrors safety.PVDDConfig's tunable fields for YAML loading.
type PVDDTuning struct {
	VMin             float32 `yaml:"v_min"`
	VMax             float32 `yaml:"v_max"`
	OffsetMax        float32 `yaml:"offset_max"`
	OffsetStep       float32 `yaml:"offset_step"`
	CorrectThreshold float32 `yaml:"correct_threshold"`
	ReductionFactor  float32 `yaml:"reduction_factor"`
	FailMargin       float32 `yaml:"fail_margin"`
	FailMarginReductionScale float32 `yaml:"fail_margin_reduction_scale"`
	OVPCeiling       float32 `yaml:"ovp_ceiling"`
	DACFactor        float32 `yaml:"dac_factor"`
	Intercept        float32 `yaml:"intercept"`
	WindowSize       int     `yaml:"window_size"`
	StabilityMargin  float32 `yaml:"stability_margin"`
	LockoutTicks     int     `yaml:"lockout_ticks"`
	ReductionLockoutTicks int `yaml:"reduction_lockout_ticks"`
	ReductionTimeoutTicks int `yaml:"reduction_timeout_ticks"`
	EMAAlpha         float32 `yaml:"ema_alpha"`
}

// SafetyTuning mirrors safety.Supervisor's compile-time error ceiling: one
// [Instantaneous, Fast, Slow] triple per measurement type, broadcast across
// all four channels plus the sum channel by safety.BuildUniformCeiling.
type SafetyTuning struct {
	IRmsCeiling [3]float32 `yaml:"i_rms_ceiling"`
	PAvgCeiling [3]float32 `yaml:"p_avg_ceiling"`
	PAppCeiling [3]float32 `yaml:"p_app_ceiling"`
}

// AdaptiveSRCTuning mirrors audio.AdaptiveController's tunable fields.
type AdaptiveSRCTuning struct {
	Batch        int     `yaml:"batch"`
	Kp           float64 `yaml:"kp"`
	Kd           float64 `yaml:"kd"`
	Min          float64 `yaml:"min"`
	Max          float64 `yaml:"max"`
	NRateInitial int     `yaml:"n_rate_initial"`
	NRate        int     `yaml:"n_rate"`
	NBuf         int     `yaml:"n_buf"`
}

// Config is the top-level controller configuration document.
type Config struct {
	Nodes struct {
		PowerAmp Transport `yaml:"power_amp"`
		Battery  Transport `yaml:"battery"`
		BTRX     Transport `yaml:"bt_receiver"`
		DAP      Transport `yaml:"dap"`
	} `yaml:"nodes"`

	GPIO struct {
		AmpReset    GPIO `yaml:"amp_reset"`
		AmpIRQ      GPIO `yaml:"amp_irq"`
		BatteryIRQ  GPIO `yaml:"battery_irq"`
		BTRXReset   GPIO `yaml:"btrx_reset"`
	} `yaml:"gpio"`

	PVDD       PVDDTuning        `yaml:"pvdd"`
	AdaptiveSRC AdaptiveSRCTuning `yaml:"adaptive_src"`
	Safety     SafetyTuning      `yaml:"safety"`

	LogLevel string `yaml:"log_level"`
}

// Load reads and parses a YAML config document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns a Config populated with the appliance's nominal
// defaults, used when no config file is supplied.
func Default() *Config {
	cfg := &Config{LogLevel: "info"}
	cfg.Nodes.PowerAmp = Transport{Kind: "uart", Device: "/dev/ttyAMA0", Baud: 115200}
	cfg.Nodes.Battery = Transport{Kind: "i2c", Bus: "/dev/i2c-1", Addr: 0x0B}
	cfg.Nodes.BTRX = Transport{Kind: "uart", Device: "/dev/ttyAMA1", Baud: 115200}
	cfg.Nodes.DAP = Transport{Kind: "uart", Device: "/dev/ttyAMA2", Baud: 115200}

	cfg.PVDD = PVDDTuning{
		VMin: 20, VMax: 55,
		OffsetMax: 2, OffsetStep: 0.25,
		CorrectThreshold: 0.3, ReductionFactor: 0.9,
		FailMargin: 1.5, FailMarginReductionScale: 2.0, OVPCeiling: 58,
		DACFactor: 10.87, Intercept: 17.9,
		WindowSize: 8, StabilityMargin: 0.1,
		LockoutTicks: 20, ReductionLockoutTicks: 20, ReductionTimeoutTicks: 3000,
		EMAAlpha: 0.2,
	}
	cfg.AdaptiveSRC = AdaptiveSRCTuning{
		Batch: 512, Kp: 0.5, Kd: 0.1,
		Min: 480, Max: 544,
		NRateInitial: 4, NRate: 64, NBuf: 32,
	}
	cfg.Safety = SafetyTuning{
		IRmsCeiling: [3]float32{15, 12, 10},
		PAvgCeiling: [3]float32{400, 350, 300},
		PAppCeiling: [3]float32{450, 400, 350},
	}

	cfg.GPIO.AmpReset = GPIO{Chip: "gpiochip0", Offset: 17}
	cfg.GPIO.AmpIRQ = GPIO{Chip: "gpiochip0", Offset: 27}
	cfg.GPIO.BatteryIRQ = GPIO{Chip: "gpiochip0", Offset: 22}
	cfg.GPIO.BTRXReset = GPIO{Chip: "gpiochip0", Offset: 23}
	return cfg
}
