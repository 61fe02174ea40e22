// Command controller runs the main control loop tying the four module
// nodes together: it opens each UART node's transport, pumps its
// moduleif.Module's transfer queue over the link framer, drives the init
// handshake and change-notification scan, and mirrors the safety
// supervisor's shutdown state onto the amplifier reset line.
package main

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/blockbox/controller/internal/config"
	"github.com/blockbox/controller/internal/gpioline"
	"github.com/blockbox/controller/internal/moduleif"
	"github.com/blockbox/controller/internal/modules"
	"github.com/blockbox/controller/internal/safety"
	"github.com/blockbox/controller/internal/transport"
)

// uartNode bundles one UART-attached module with the pump driving its
// transfer queue over the link framer.
type uartNode struct {
	name string
	mod  *moduleif.Module
	port *transport.SerialPort
	pump *moduleif.Pump
}

func (n *uartNode) tick(logger *log.Logger) {
	n.mod.Tick()
	if n.mod.State() == moduleif.StateResetting {
		logger.Warn("node observed reset, reinitializing", "node", n.name)
		n.mod.BeginInit()
	}
	n.pump.Tick()
	for {
		select {
		case ev := <-n.pump.Events:
			logLinkEvent(logger, n.name, ev)
		default:
			return
		}
	}
}

func logLinkEvent(logger *log.Logger, name string, ev moduleif.LinkEvent) {
	switch ev.Kind {
	case moduleif.LinkEventWatchdogExpired:
		logger.Warn("link watchdog expired", "node", name)
	case moduleif.LinkEventCRCError:
		logger.Warn("link CRC error", "node", name, "err", ev.Err)
	case moduleif.LinkEventFormatError:
		logger.Warn("link format error", "node", name, "err", ev.Err)
	case moduleif.LinkEventModuleReset:
		logger.Info("slave reported reset", "node", name)
	case moduleif.LinkEventSlaveError:
		logger.Warn("slave reported an error event", "node", name)
	}
}

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file (defaults to built-in nominal config)")
	tickPeriod := pflag.Duration("tick", 10*time.Millisecond, "main-loop tick period")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("loading config", "path", *configPath, "err", err)
		}
		cfg = loaded
	}

	logger.Info("starting controller", "tick", *tickPeriod, "log_level", cfg.LogLevel)

	safetySup := safety.NewSupervisor(safety.ThresholdTable{}, safety.BuildUniformCeiling(
		cfg.Safety.IRmsCeiling, cfg.Safety.PAvgCeiling, cfg.Safety.PAppCeiling,
	))
	pvddCtrl := safety.NewController(safety.PVDDConfig{
		VMin: cfg.PVDD.VMin, VMax: cfg.PVDD.VMax,
		OffsetMax: cfg.PVDD.OffsetMax, OffsetStep: cfg.PVDD.OffsetStep,
		CorrectThreshold: cfg.PVDD.CorrectThreshold, ReductionFactor: cfg.PVDD.ReductionFactor,
		FailMargin: cfg.PVDD.FailMargin, FailMarginReductionScale: cfg.PVDD.FailMarginReductionScale,
		OVPCeiling: cfg.PVDD.OVPCeiling,
		DACFactor:  cfg.PVDD.DACFactor, Intercept: cfg.PVDD.Intercept,
		WindowSize: cfg.PVDD.WindowSize, StabilityMargin: cfg.PVDD.StabilityMargin,
		LockoutTicks: cfg.PVDD.LockoutTicks, ReductionLockoutTicks: cfg.PVDD.ReductionLockoutTicks,
		ReductionTimeoutTicks: cfg.PVDD.ReductionTimeoutTicks, EMAAlpha: cfg.PVDD.EMAAlpha,
	})

	powerAmpMod := modules.NewPowerAmp()
	batteryMod := modules.NewBMS()
	btrxMod := modules.NewBTRX()
	dapMod := modules.NewDAP()

	readTimeout := 50 * time.Millisecond
	uartNodes := make([]*uartNode, 0, 3)
	for _, spec := range []struct {
		name string
		mod  *moduleif.Module
		tr   config.Transport
	}{
		{"power-amp", powerAmpMod, cfg.Nodes.PowerAmp},
		{"bt-rx", btrxMod, cfg.Nodes.BTRX},
		{"dap", dapMod, cfg.Nodes.DAP},
	} {
		port, err := transport.OpenSerial(spec.tr.Device, spec.tr.Baud, readTimeout)
		if err != nil {
			logger.Fatal("opening node transport", "node", spec.name, "device", spec.tr.Device, "err", err)
		}
		defer port.Close()
		uartNodes = append(uartNodes, &uartNode{
			name: spec.name,
			mod:  spec.mod,
			port: port,
			pump: moduleif.NewPump(spec.mod, port),
		})
	}

	// The battery node speaks I2C (spec §4.A's I2C framing, distinct from
	// the UART frame type used by moduleif.Pump); its register shadow and
	// safety-fault dispatch are driven through internal/battery's own
	// Supervisor instead of a generic Pump. No I2C master driver is wired
	// here yet, so batteryMod's queue is left undriven: it stays in
	// StateInitializing until that transport exists.
	logger.Info("battery node uses I2C transport (not yet wired); register shadow stays stale", "bus", cfg.Nodes.Battery.Bus, "addr", cfg.Nodes.Battery.Addr)
	batteryMod.BeginInit()

	for _, n := range uartNodes {
		logger.Info("initializing node", "node", n.name)
		n.mod.BeginInit()
	}

	ampReset, err := gpioline.RequestResetLine(cfg.GPIO.AmpReset.Chip, cfg.GPIO.AmpReset.Offset, true)
	if err != nil {
		logger.Fatal("requesting amp reset line", "err", err)
	}
	defer ampReset.Close()

	// The GPIO edge handler runs on go-gpiocdev's own goroutine, but
	// moduleif.Queue is not safe for concurrent use with the main loop's
	// pump.Tick(); edges only set a pending flag here and the main loop
	// acts on it on the next tick, keeping every Queue access on one
	// goroutine.
	ampIRQPending := make(chan struct{}, 1)
	ampIRQ, err := gpioline.RequestInterruptLine(cfg.GPIO.AmpIRQ.Chip, cfg.GPIO.AmpIRQ.Offset, func(active bool) {
		if active {
			select {
			case ampIRQPending <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		logger.Fatal("requesting amp interrupt line", "err", err)
	}
	defer ampIRQ.Close()

	batteryIRQPending := make(chan struct{}, 1)
	batteryIRQ, err := gpioline.RequestInterruptLine(cfg.GPIO.BatteryIRQ.Chip, cfg.GPIO.BatteryIRQ.Offset, func(active bool) {
		if active {
			select {
			case batteryIRQPending <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		logger.Fatal("requesting battery interrupt line", "err", err)
	}
	defer batteryIRQ.Close()

	btrxReset, err := gpioline.RequestResetLine(cfg.GPIO.BTRXReset.Chip, cfg.GPIO.BTRXReset.Offset, true)
	if err != nil {
		logger.Fatal("requesting bt-rx reset line", "err", err)
	}
	defer btrxReset.Close()
	if err := btrxReset.Deassert(); err != nil {
		logger.Fatal("deasserting bt-rx reset line", "err", err)
	}

	ticker := time.NewTicker(*tickPeriod)
	defer ticker.Stop()

	ampShutdownLatched := false
	for range ticker.C {
		for _, n := range uartNodes {
			n.tick(logger)
		}

		select {
		case <-ampIRQPending:
			onPowerAmpInterrupt(logger, powerAmpMod)
		default:
		}
		select {
		case <-batteryIRQPending:
			onBatteryInterrupt(logger)
		default:
		}

		shutdown := safetySup.IsShutdown(pvddCtrl.Valid())
		if shutdown != ampShutdownLatched {
			ampShutdownLatched = shutdown
			if shutdown {
				logger.Warn("asserting amp reset", "safety_shutdown", safetySup.SafetyShutdown(), "manual_shutdown", safetySup.ManualShutdown(), "pvdd_valid", pvddCtrl.Valid())
				if err := ampReset.Assert(); err != nil {
					logger.Error("asserting amp reset line", "err", err)
				}
			} else {
				logger.Info("deasserting amp reset")
				if err := ampReset.Deassert(); err != nil {
					logger.Error("deasserting amp reset line", "err", err)
				}
			}
		}

		if powerAmpMod.Ready() {
			for _, addr := range powerAmpMod.Watcher.Scan() {
				logger.Debug("power-amp register changed", "addr", addr)
			}
		}
	}
}

// onPowerAmpInterrupt reads the power amp's interrupt-flags register and
// enqueues the register reread the flags call for (power_amp_interface.cpp's
// OnI2CInterrupt pattern), applying each result to the register shadow as it
// completes.
func onPowerAmpInterrupt(logger *log.Logger, mod *moduleif.Module) {
	mod.Queue.Enqueue(&moduleif.Transfer{
		Direction: moduleif.DirRead,
		Address:   modules.PAIntFlags,
		Length:    mod.Registers.Width(modules.PAIntFlags),
		Callback: func(ok bool, value uint32, width int) {
			if !ok {
				return
			}
			flags := byte(value)
			if flags&modules.PAIntResetFlag != 0 {
				logger.Info("power-amp reset flag observed")
				mod.NotifyResetDetected()
				return
			}
			for _, addr := range modules.PowerAmpInterruptReadBack(flags) {
				enqueueRereadRegister(mod, addr)
			}
		},
	})
}

// onBatteryInterrupt logs that the battery interrupt line fired. It does not
// read the BMS interrupt flags or enqueue the reread
// modules.BMSInterruptReadBack describes, since no I2C transport drains
// batteryMod's queue.
func onBatteryInterrupt(logger *log.Logger) {
	logger.Info("battery interrupt observed; reread deferred pending I2C transport")
}

func enqueueRereadRegister(mod *moduleif.Module, addr byte) {
	mod.Queue.Enqueue(&moduleif.Transfer{
		Direction: moduleif.DirRead,
		Address:   addr,
		Length:    mod.Registers.Width(addr),
		Callback: func(ok bool, value uint32, width int) {
			if !ok {
				return
			}
			buf := make([]byte, width)
			for i := 0; i < width; i++ {
				buf[i] = byte(value >> (8 * uint(i)))
			}
			_ = mod.Registers.Set(addr, buf)
		},
	})
}
