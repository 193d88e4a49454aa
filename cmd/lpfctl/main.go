// lpfctl sends LEGO Power Functions infrared commands from the command
// line, and can run a small WebSocket monitor that broadcasts every burst
// it transmits.
//
// Usage:
//
//	lpfctl send single -device /dev/lirc0 -channel 1 -output red -pwm 5
//	lpfctl send single -profile device.cfg -controller motor1 -output red -pwm 5
//	lpfctl send single -device /dev/lirc0 -channel 1 -output blue -action brake
//	lpfctl send direct -device /dev/lirc0 -channel 1 -red forward -blue backward
//	lpfctl send combo -device /dev/lirc0 -channel 1 -red 7 -blue -3
//	lpfctl send extended -device /dev/lirc0 -channel 1 -action toggle-address
//	lpfctl devices -config device.cfg
//	lpfctl serve-monitor -addr :8765
//
// Options:
//
//	-device string   IR transmit device path (default "/dev/lirc0")
//	-emulated        Use an in-memory emulated sink instead of -device
//	-channel int     Receiver channel, 1-4 (default 1)
//	-logfile string  Also log to this file, with size-based rotation
//	-profile string  Device profile to seed/persist the toggle bit across runs (send single only)
//	-controller string  speed_controller instance name in -profile
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/azachar/lpf-go/pkg/config"
	"github.com/azachar/lpf-go/pkg/encoder"
	"github.com/azachar/lpf-go/pkg/frame"
	lpflog "github.com/azachar/lpf-go/pkg/log"
	"github.com/azachar/lpf-go/pkg/lpf"
	"github.com/azachar/lpf-go/pkg/metrics"
	"github.com/azachar/lpf-go/pkg/monitor"
)

var log = lpflog.New("lpfctl")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "send":
		runSend(os.Args[2:])
	case "devices":
		runDevices(os.Args[2:])
	case "serve-monitor":
		runServeMonitor(os.Args[2:])
	case "serve-metrics":
		runServeMetrics(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: lpfctl <send|devices|serve-monitor|serve-metrics> [options]")
	fmt.Fprintln(os.Stderr, "  send single|direct|combo|extended   transmit one command")
	fmt.Fprintln(os.Stderr, "  devices -config FILE                list controllers in a device profile")
	fmt.Fprintln(os.Stderr, "  serve-monitor -addr ADDR             run the burst-event WebSocket monitor")
	fmt.Fprintln(os.Stderr, "  serve-metrics -addr ADDR             run the Prometheus-text /metrics endpoint")
}

func runSend(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: send requires a protocol: single, direct, combo, or extended")
		os.Exit(1)
	}
	protocol := args[0]
	args = args[1:]

	fs := flag.NewFlagSet("send "+protocol, flag.ExitOnError)
	devicePath := fs.String("device", "/dev/lirc0", "IR transmit device path")
	emulated := fs.Bool("emulated", false, "use an in-memory emulated sink instead of -device")
	channelN := fs.Int("channel", 1, "receiver channel, 1-4")
	logFile := fs.String("logfile", "", "also log to this file, rotating at 10MB with 3 gzip'd backups kept")
	profilePath := fs.String("profile", "", "device profile config file to seed/persist the toggle bit across runs (single only)")
	controllerName := fs.String("controller", "", "speed_controller instance name in -profile to seed/persist (required with -profile)")

	var output, action string
	var pwm int
	var red, blue string
	var redSpeed, blueSpeed int

	switch protocol {
	case "single":
		fs.StringVar(&output, "output", "red", "output: red or blue")
		fs.IntVar(&pwm, "pwm", 0, "PWM value, -7..7 (ignored if -action is set)")
		fs.StringVar(&action, "action", "", "discrete action: float, brake, full-forward, full-backward, toggle-direction")
	case "direct":
		fs.StringVar(&red, "red", "float", "red output state: float, forward, backward, brake")
		fs.StringVar(&blue, "blue", "float", "blue output state: float, forward, backward, brake")
	case "combo":
		fs.IntVar(&redSpeed, "red", 0, "red output speed, -7..7")
		fs.IntVar(&blueSpeed, "blue", 0, "blue output speed, -7..7")
	case "extended":
		fs.StringVar(&action, "action", "", "extended action: brake-red, increment-red, decrement-red, toggle-blue, toggle-address, align-toggle")
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown protocol %q\n", protocol)
		os.Exit(1)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *logFile != "" {
		fileLog, writer, err := lpflog.NewConsoleAndFileLogger("lpfctl", lpflog.RotationConfig{
			Filename:     *logFile,
			MaxSize:      10,
			MaxBackups:   3,
			Compress:     true,
			RotateOnOpen: true,
		})
		if err != nil {
			log.WithError(err).WithField("logfile", *logFile).Error("failed to open log file")
			os.Exit(1)
		}
		defer writer.Close()
		log = fileLog
	}

	channel, err := parseChannel(*channelN)
	if err != nil {
		log.WithError(err).Error("invalid channel")
		os.Exit(1)
	}

	device, err := openDevice(*devicePath, *emulated)
	if err != nil {
		log.WithError(err).Error("failed to open device")
		os.Exit(1)
	}
	defer device.Close()

	switch protocol {
	case "single":
		out, err := parseOutput(output)
		if err != nil {
			log.WithError(err).Error("invalid output")
			os.Exit(1)
		}
		cmd, err := singleOutputCommand(action, pwm)
		if err != nil {
			log.WithError(err).Error("invalid single output command")
			os.Exit(1)
		}
		ctl := device.CreateSpeedRemoteController(channel, out)

		var store *config.DeviceProfileStore
		var section string
		if *profilePath != "" {
			if *controllerName == "" {
				log.Error("-profile requires -controller")
				os.Exit(1)
			}
			section = "speed_controller " + *controllerName
			var err error
			store, _, err = config.OpenDeviceProfileStore(*profilePath)
			if err != nil {
				log.WithError(err).Error("failed to open device profile")
				os.Exit(1)
			}
			if toggle, ok := store.LoadToggle(section); ok {
				ctl.SetToggle(toggle)
				log.WithField("toggle", toggle).Debug("seeded toggle from device profile")
			}
		}

		if err := ctl.Send(cmd); err != nil {
			log.WithError(err).Error("send failed")
			os.Exit(1)
		}

		if store != nil {
			store.SaveToggle(section, ctl.Toggle())
			if err := store.Flush(); err != nil {
				log.WithError(err).Error("failed to persist device profile toggle state")
				os.Exit(1)
			}
		}

	case "direct":
		redState, err := parseDirectState(red)
		if err != nil {
			log.WithError(err).Error("invalid -red state")
			os.Exit(1)
		}
		blueState, err := parseDirectState(blue)
		if err != nil {
			log.WithError(err).Error("invalid -blue state")
			os.Exit(1)
		}
		ctl := device.CreateDirectRemoteController(channel)
		if err := ctl.Send(encoder.ComboDirectCommand{Red: redState, Blue: blueState}); err != nil {
			log.WithError(err).Error("send failed")
			os.Exit(1)
		}

	case "combo":
		ctl := device.CreateComboSpeedRemoteController(channel)
		cmd := encoder.ComboPwmCommand{SpeedRed: int8(redSpeed), SpeedBlue: int8(blueSpeed)}
		if err := ctl.Send(cmd); err != nil {
			log.WithError(err).Error("send failed")
			os.Exit(1)
		}

	case "extended":
		cmd, err := extendedCommand(action)
		if err != nil {
			log.WithError(err).Error("invalid extended action")
			os.Exit(1)
		}
		ctl := device.CreateExtendedRemoteController(channel)
		if err := ctl.Send(cmd); err != nil {
			log.WithError(err).Error("send failed")
			os.Exit(1)
		}
	}

	log.WithField("channel", channel.String()).Info("burst sent")
}

func runDevices(args []string) {
	fs := flag.NewFlagSet("devices", flag.ExitOnError)
	configFile := fs.String("config", "", "also list controllers from a device profile config file")
	glob := fs.String("glob", "/dev/lirc*", "glob pattern for transmit devices")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	matches, err := filepath.Glob(*glob)
	if err != nil {
		log.WithError(err).Error("invalid glob pattern")
		os.Exit(1)
	}
	if len(matches) == 0 {
		fmt.Printf("no devices found matching %s\n", *glob)
	}
	for _, m := range matches {
		fmt.Println(m)
	}

	if *configFile == "" {
		return
	}

	profile, err := config.LoadDeviceProfile(*configFile)
	if err != nil {
		log.WithError(err).Error("failed to load device profile")
		os.Exit(1)
	}

	fmt.Printf("\nprofile: %s (carrier %d Hz)\n", profile.Path, profile.Carrier)
	for _, s := range profile.SpeedControllers {
		fmt.Printf("  speed_controller %-20s channel=%s output=%s\n", s.Name, s.Channel, s.Output)
	}
	for _, d := range profile.DirectControllers {
		fmt.Printf("  direct_controller %-19s channel=%s\n", d.Name, d.Channel)
	}
	for _, c := range profile.ComboSpeedControllers {
		fmt.Printf("  combo_speed_controller %-14s channel=%s\n", c.Name, c.Channel)
	}
	for _, e := range profile.ExtendedControllers {
		fmt.Printf("  extended_controller %-17s channel=%s\n", e.Name, e.Channel)
	}
}

func runServeMonitor(args []string) {
	fs := flag.NewFlagSet("serve-monitor", flag.ExitOnError)
	addr := fs.String("addr", ":8765", "HTTP address to listen on")
	historySize := fs.Int("history", 100, "number of recent burst events to retain")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	srv := monitor.New(monitor.Config{Addr: *addr, HistorySize: *historySize})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.WithField("addr", *addr).Info("monitor server listening")
	log.Info("GET /events for history, GET /ws to stream live bursts")

	select {
	case <-sigCh:
		log.Info("shutting down monitor server")
		_ = srv.Stop()
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("monitor server exited")
			os.Exit(1)
		}
	}
}

func runServeMetrics(args []string) {
	fs := flag.NewFlagSet("serve-metrics", flag.ExitOnError)
	addr := fs.String("addr", ":9090", "HTTP address to listen on")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	srv := metrics.NewMetricsServer(metrics.GlobalMetrics(), *addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := srv.StartAsync()

	log.WithField("addr", *addr).Info("metrics server listening")
	log.Info("GET /metrics for Prometheus text exposition")

	select {
	case <-sigCh:
		log.Info("shutting down metrics server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("metrics server shutdown failed")
		}
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("metrics server exited")
			os.Exit(1)
		}
	}
}

func openDevice(path string, emulated bool) (*lpf.Device, error) {
	if emulated {
		log.Info("using emulated sink")
		return lpf.NewEmulated(false), nil
	}
	return lpf.Open(path)
}

func parseChannel(n int) (frame.Channel, error) {
	switch n {
	case 1:
		return frame.ChannelOne, nil
	case 2:
		return frame.ChannelTwo, nil
	case 3:
		return frame.ChannelThree, nil
	case 4:
		return frame.ChannelFour, nil
	default:
		return 0, fmt.Errorf("channel must be 1-4, got %d", n)
	}
}

func parseOutput(s string) (frame.Output, error) {
	switch strings.ToLower(s) {
	case "red":
		return frame.OutputRed, nil
	case "blue":
		return frame.OutputBlue, nil
	default:
		return 0, fmt.Errorf("output must be red or blue, got %q", s)
	}
}

func singleOutputCommand(action string, pwm int) (encoder.SingleOutputCommand, error) {
	if action == "" {
		if pwm < -7 || pwm > 7 {
			return encoder.SingleOutputCommand{}, fmt.Errorf("pwm must be -7..7, got %d", pwm)
		}
		return encoder.PWM(int8(pwm)), nil
	}

	switch strings.ToLower(action) {
	case "float":
		return encoder.Discrete(encoder.Float), nil
	case "brake":
		return encoder.Discrete(encoder.Brake), nil
	case "full-forward":
		return encoder.Discrete(encoder.FullForward), nil
	case "full-backward":
		return encoder.Discrete(encoder.FullBackward), nil
	case "toggle-direction":
		return encoder.Discrete(encoder.ToggleDirection), nil
	case "toggle-full-forward":
		return encoder.Discrete(encoder.ToggleFullForward), nil
	case "toggle-full-backward":
		return encoder.Discrete(encoder.ToggleFullBackward), nil
	case "increment-pwm":
		return encoder.Discrete(encoder.IncrementPWM), nil
	case "decrement-pwm":
		return encoder.Discrete(encoder.DecrementPWM), nil
	default:
		return encoder.SingleOutputCommand{}, fmt.Errorf("unknown action %q", action)
	}
}

func parseDirectState(s string) (encoder.DirectState, error) {
	switch strings.ToLower(s) {
	case "float":
		return encoder.DirectFloat, nil
	case "forward":
		return encoder.Forward, nil
	case "backward":
		return encoder.Backward, nil
	case "brake":
		return encoder.DirectBrake, nil
	default:
		return 0, fmt.Errorf("direct state must be float, forward, backward, or brake, got %q", s)
	}
}

func extendedCommand(action string) (encoder.ExtendedCommand, error) {
	switch strings.ToLower(action) {
	case "brake-red":
		return encoder.BrakeThenFloatOnRedOutput, nil
	case "increment-red":
		return encoder.IncrementSpeedOnRedOutput, nil
	case "decrement-red":
		return encoder.DecrementSpeedOnRedOutput, nil
	case "toggle-blue":
		return encoder.ToggleForwardOrFloatOnBlueOutput, nil
	case "toggle-address":
		return encoder.ToggleAddress, nil
	case "align-toggle":
		return encoder.AlignToggle, nil
	default:
		return 0, fmt.Errorf("unknown extended action %q", action)
	}
}
