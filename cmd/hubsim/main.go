// hubsim plays the hub side of the serial line protocol with a simulated
// robot, for bench testing the controller without hardware. With --virtual it
// creates the serial pair itself using socat. With --vision-addr it also
// sends vision fixes built from the simulated heading.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"BeaconBot/internal/core"
	"BeaconBot/internal/device"
	"BeaconBot/internal/model"
	"BeaconBot/internal/nav"
	"BeaconBot/internal/parser"
	"BeaconBot/internal/util"
	"BeaconBot/internal/vision"
)

func main() {
	app := cli.NewApp()
	app.Name = "hubsim"
	app.Usage = "simulate the motor/sensor hub over a serial port"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "dev",
			Value: "/dev/ttyS1",
			Usage: "serial device the simulator talks on",
		},
		cli.IntFlag{
			Name:  "baud",
			Value: 115200,
			Usage: "serial baud rate",
		},
		cli.DurationFlag{
			Name:  "interval",
			Value: 20 * time.Millisecond,
			Usage: "sensor frame and simulation period",
		},
		cli.StringFlag{
			Name:  "virtual",
			Usage: "create a socat pty pair \"host,sim\"; the simulator opens the sim side",
		},
		cli.StringFlag{
			Name:  "vision-addr",
			Usage: "UDP address to send simulated vision fixes to",
		},
		cli.StringFlag{
			Name:  "vision-format",
			Value: "csv",
			Usage: "vision wire format (csv|json)",
		},
		cli.Float64Flag{Name: "x", Usage: "reported field x in mm"},
		cli.Float64Flag{Name: "y", Usage: "reported field y in mm"},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "optional config for the robot wiring",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log level",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		util.Error("hubsim: %v", err)
		os.Exit(1)
	}
}

func loadRobot(path string) (model.Config, error) {
	if path == "" {
		var cfg model.Config
		cfg.ApplyDefaults()
		return cfg, nil
	}
	return core.LoadConfig(path)
}

func run(c *cli.Context) error {
	log := util.SetupLogger(c.String("log-level")).Named("hubsim")

	cfg, err := loadRobot(c.String("config"))
	if err != nil {
		return err
	}

	devPath := c.String("dev")
	if v := c.String("virtual"); v != "" {
		host, sim, ok := strings.Cut(v, ",")
		if !ok || host == "" || sim == "" {
			return fmt.Errorf("--virtual wants \"host,sim\", got %q", v)
		}
		socat := util.NewSocatManager()
		defer socat.Cleanup()
		if err := socat.CreatePair(host, sim); err != nil {
			return err
		}
		if err := waitForLink(sim, 2*time.Second); err != nil {
			return err
		}
		devPath = sim
		log.Info("virtual hub port ready", "controller_port", host)
	}

	dev, err := device.NewSerialDevice(devPath, c.Int("baud"))
	if err != nil {
		return err
	}
	defer dev.Close()

	interval := c.Duration("interval")
	hub := device.NewSimHub(device.NewSimConfig(cfg.Robot, cfg.Hub.Encoders))
	hub.Start(interval)
	defer hub.Close()

	stop := make(chan struct{})
	if addr := c.String("vision-addr"); addr != "" {
		p, err := parser.New(c.String("vision-format"))
		if err != nil {
			return err
		}
		sender, err := vision.NewSender(addr, p)
		if err != nil {
			return err
		}
		defer sender.Close()
		go sendFixes(sender, hub, c.Float64("x"), c.Float64("y"), interval, stop)
		log.Info("sending vision fixes", "addr", addr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	return hub.Stream(dev, interval, stop)
}

// sendFixes reports a fixed position with the simulated heading.
func sendFixes(s *vision.Sender, hub *device.SimHub, x, y float64, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fix := model.VisionFix{X: x, Y: y, Heading: nav.Normalize(hub.HeadingRaw())}
			if err := s.Send(fix); err != nil {
				util.Logger("hubsim").Warn("send fix failed", "error", err)
			}
		}
	}
}

func waitForLink(path string, within time.Duration) error {
	deadline := time.Now().Add(within)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("socat link %s did not appear", path)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
