// beaconbot runs one autonomous match: it loads the configuration, opens the
// hub (or the simulator), the vision feed and telemetry, and drives the routine
// until the match time elapses or the process is interrupted.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"BeaconBot/internal/core"
	"BeaconBot/internal/model"
	"BeaconBot/internal/util"
)

func main() {
	app := cli.NewApp()
	app.Name = "beaconbot"
	app.Usage = "run the autonomous period of a beacon match"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "configs/config.yml",
			Usage: "path to the YAML configuration",
		},
		cli.StringFlag{
			Name:  "alliance",
			Usage: "override the alliance color (red|blue)",
		},
		cli.BoolFlag{
			Name:  "sim",
			Usage: "use the simulated hub even if a device is configured",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "override the log level (trace|debug|info|warn|error)",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		util.Error("beaconbot: %v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := core.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("alliance"); v != "" {
		color, err := model.ParseAllianceColor(v)
		if err != nil {
			return err
		}
		cfg.Routine.Alliance = color
	}
	if c.Bool("sim") {
		cfg.Hub.Device = ""
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	util.SetupLogger(cfg.Log.Level)

	sys, err := core.NewSystem(cfg)
	if err != nil {
		return err
	}
	if err := sys.Start(); err != nil {
		sys.Stop()
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-sig:
		util.Info("received %s, stopping", s)
	case <-sys.Done():
	}
	sys.Stop()
	return nil
}
