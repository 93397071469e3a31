// Command amp-ircontrol sequences amplifier power from a source power rail,
// relays volume commands from a serial link and a remote receiver as NEC IR
// frames, and publishes what it does to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/sweeney/amp-ircontrol/internal/carrier"
	"github.com/sweeney/amp-ircontrol/internal/config"
	"github.com/sweeney/amp-ircontrol/internal/gpio"
	"github.com/sweeney/amp-ircontrol/internal/logger"
	"github.com/sweeney/amp-ircontrol/internal/logic"
	"github.com/sweeney/amp-ircontrol/internal/mqtt"
	"github.com/sweeney/amp-ircontrol/internal/nec"
	"github.com/sweeney/amp-ircontrol/internal/relay"
	"github.com/sweeney/amp-ircontrol/internal/remote"
	"github.com/sweeney/amp-ircontrol/internal/serial"
	"github.com/sweeney/amp-ircontrol/internal/status"
	"github.com/sweeney/amp-ircontrol/internal/watchdog"
	"github.com/sweeney/amp-ircontrol/internal/web"
)

// serialQueueSize bounds bytes waiting for the loop; one is consumed per tick.
const serialQueueSize = 64

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "amp-ircontrol: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatalw("fatal", "err", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	reader, err := gpio.NewRealReader(cfg.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	if cfg.PrintState {
		amp, source, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("amp: %s, source: %s\n", stateString(amp), stateString(source))
		return nil
	}

	gen, closeGen, err := openGenerator(cfg)
	if err != nil {
		return err
	}
	defer closeGen.Close()
	tx := nec.NewTransmitter(gen)

	if cfg.Send != "" {
		address, command, err := parseSend(cfg.Send)
		if err != nil {
			return err
		}
		if err := tx.Transmit(address, command); err != nil {
			return err
		}
		log.Infow("sent", "address", hexByte(address), "command", hexByte(command))
		return nil
	}

	relayOut, err := gpio.NewRealOutput(cfg.Chip, cfg.PinRelay)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	defer relayOut.Close()

	ledOut, err := gpio.NewRealOutput(cfg.Chip, cfg.PinLED)
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}
	defer ledOut.Close()

	actuator := relay.NewActuator(relayOut, relay.SensorFunc(func() (bool, error) {
		amp, _, err := reader.Read()
		return amp, err
	}), log)
	actuator.SetPulse(cfg.RelayPulse)

	var kicker watchdog.Kicker = watchdog.Nop{}
	if cfg.Watchdog {
		k, err := watchdog.NewSystemd()
		if err != nil {
			log.Warnw("systemd watchdog unavailable", "err", err)
		} else {
			kicker = k
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := serial.NewQueue(serialQueueSize)
	slot := remote.NewSlot()

	if cfg.SerialPort != "" {
		port, err := serial.Open(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return err
		}
		defer func() {
			cancel()
			port.Close()
		}()
		go func() {
			if err := serial.Pump(ctx, port, queue); err != nil {
				log.Errorw("serial pump stopped", "port", cfg.SerialPort, "err", err)
			}
		}()
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = offline{}
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{Broker: cfg.Broker, ClientID: cfg.ClientID}, log)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		if err := subscribeIntake(p, queue, slot, log); err != nil {
			log.Warnw("mqtt intake unavailable", "err", err)
		}
		publisher = p
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		OffDelayMs:  cfg.OffDelay.Milliseconds(),
		LEDWindowMs: cfg.LEDWindow.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		IRDevice:    cfg.IRDevice,
		SerialPort:  cfg.SerialPort,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warnw("failed to publish startup event", "err", err)
	}

	if cfg.HTTPAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		srv := web.New(cfg.HTTPAddr, tracker, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("http server error", "err", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
		log.Infow("http status server listening", "addr", cfg.HTTPAddr)
	}

	log.Infow("started",
		"poll", cfg.Poll,
		"off_delay", cfg.OffDelay,
		"broker", cfg.Broker,
		"ir", irName(cfg),
		"serial", cfg.SerialPort,
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		reader:     reader,
		machine:    logic.NewMachine(cfg.Logic()),
		amp:        actuator,
		tx:         tx,
		led:        ledOut,
		serial:     queue,
		remote:     slot,
		kicker:     kicker,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		log:        log,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}
	return l.run(ticker.C, sigCh)
}

// openGenerator selects the IR carrier: a kernel LIRC device when configured,
// otherwise busy-wait toggling of the IR GPIO line.
func openGenerator(cfg *config.Config) (carrier.Generator, io.Closer, error) {
	if cfg.IRDevice != "" {
		l, err := carrier.OpenLIRC(cfg.IRDevice)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	}
	out, err := gpio.NewRealOutput(cfg.Chip, cfg.PinIR)
	if err != nil {
		return nil, nil, fmt.Errorf("init ir line: %w", err)
	}
	return carrier.NewBusyWait(out), out, nil
}

// subscribeIntake feeds the command topic into the serial queue and the
// remote topic into the decoder slot.
func subscribeIntake(sub mqtt.Subscriber, queue *serial.Queue, slot *remote.Slot, log *logger.Logger) error {
	err := sub.Subscribe(mqtt.TopicCommand, func(payload []byte) {
		_, _ = queue.Write(payload)
	})
	if err != nil {
		return err
	}
	return sub.Subscribe(mqtt.TopicRemote, func(payload []byte) {
		f, err := remote.ParseJSON(payload)
		if err != nil {
			log.Warnw("bad remote frame message", "err", err)
			return
		}
		if !slot.Offer(f) {
			log.Debugw("remote frame dropped, decoder busy", "address", f.Address, "command", f.Command)
		}
	})
}

// parseSend parses ADDR:CMD, each a byte in any Go integer syntax (0x11, 17).
func parseSend(s string) (address, command byte, err error) {
	a, c, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("send %q: want ADDR:CMD", s)
	}
	av, err := strconv.ParseUint(strings.TrimSpace(a), 0, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("send address: %w", err)
	}
	cv, err := strconv.ParseUint(strings.TrimSpace(c), 0, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("send command: %w", err)
	}
	return byte(av), byte(cv), nil
}

// offline stands in for MQTT when no broker is configured.
type offline struct{}

func (offline) Publish(logic.Event) error            { return nil }
func (offline) PublishSystem(mqtt.SystemEvent) error { return nil }
func (offline) Close() error                         { return nil }
func (offline) IsConnected() bool                    { return false }

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func hexByte(b byte) string {
	return fmt.Sprintf("0x%02X", b)
}

func irName(cfg *config.Config) string {
	if cfg.IRDevice != "" {
		return cfg.IRDevice
	}
	return fmt.Sprintf("gpio%d", cfg.PinIR)
}
