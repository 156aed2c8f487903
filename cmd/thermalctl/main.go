package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/junevm/thermalctl/internal/applog"
	"github.com/junevm/thermalctl/internal/config"
	"github.com/junevm/thermalctl/internal/ec"
	"github.com/junevm/thermalctl/internal/fan"
	"github.com/junevm/thermalctl/internal/scenario"
	"github.com/junevm/thermalctl/internal/sensor"
	"github.com/junevm/thermalctl/internal/setup"
	"github.com/junevm/thermalctl/internal/supervisor"
	"github.com/junevm/thermalctl/internal/ui"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	// Auto-elevation: EC access needs root, so unless the caller is only
	// asking for the version, re-exec ourselves under sudo.
	if os.Geteuid() != 0 {
		for _, arg := range os.Args[1:] {
			if arg == "--version" || arg == "-v" {
				fmt.Printf("thermalctl version %s\n", Version)
				return
			}
		}

		exe, err := os.Executable()
		if err != nil {
			log.Fatalf("failed to get executable path: %v", err)
		}

		cmd := exec.Command("sudo", append([]string{exe}, os.Args[1:]...)...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			log.Fatalf("failed to run as root: %v", err)
		}
		return
	}

	cliMode := flag.Bool("cli", false, "apply the active profile and exit")
	setupMode := flag.Bool("setup", false, "build/install the ec_sys kernel module")
	versionMode := flag.Bool("version", false, "display version and exit")
	shortVersionMode := flag.Bool("v", false, "display version and exit")
	debugMode := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *versionMode || *shortVersionMode {
		fmt.Printf("thermalctl version %s\n", Version)
		return
	}

	if *setupMode {
		if err := setup.RunFullSetup(nil); err != nil {
			log.Fatalf("setup failed: %v", err)
		}
		fmt.Println("setup completed successfully")
		return
	}

	logger := applog.New(os.Stderr, *debugMode)

	needsSetup := false
	if err := setup.CheckAndSetup(); err != nil {
		needsSetup = true
		logger.Warn().Err(err).Msg("ec_sys module not ready, deferring to setup screen")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.DefaultConfig()
	}

	if needsSetup {
		if *cliMode {
			log.Fatal("ec_sys module missing, run 'sudo thermalctl --setup' first")
		}
		if err := ui.Run(cfg, nil, nil, true); err != nil {
			log.Fatalf("error running UI: %v", err)
		}
		return
	}

	ctl, err := ec.Open(logger)
	if err != nil {
		log.Fatalf("failed to open EC transport: %v", err)
	}
	defer ctl.Close()

	sr := sensor.NewReader(ctl, logger)
	fc := fan.NewController(ctl, sr, logger)
	mgr, err := scenario.NewManager(ctl, fc, logger)
	if err != nil {
		log.Fatalf("failed to initialize scenario manager: %v", err)
	}

	if *cliMode {
		profile, ok := cfg.GetActiveProfile()
		if !ok {
			log.Fatalf("active profile %q not found in config", cfg.ActiveProfile)
		}

		var applyErr error
		if profile.Scenario == scenario.Custom {
			applyErr = mgr.ApplySettings(profile.Settings)
		} else {
			applyErr = mgr.SetScenario(profile.Scenario)
		}
		if applyErr != nil {
			log.Fatalf("error applying profile: %v", applyErr)
		}
		fmt.Printf("applied profile %q\n", profile.Name)
		return
	}

	poller := supervisor.NewPoller(fc, mgr, time.Second, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := poller.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("poller exited")
		}
	}()

	if err := ui.Run(cfg, mgr, poller, false); err != nil {
		log.Fatalf("error running UI: %v", err)
	}
}
