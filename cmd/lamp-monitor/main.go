// Command lamp-monitor watches indicator lamps in a camera stream and
// publishes state changes to MQTT and batched alarms to an HTTP endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sweeney/lamp-monitor/internal/config"
	"github.com/sweeney/lamp-monitor/internal/frame"
	"github.com/sweeney/lamp-monitor/internal/logic"
	"github.com/sweeney/lamp-monitor/internal/mqtt"
	"github.com/sweeney/lamp-monitor/internal/notify"
	"github.com/sweeney/lamp-monitor/internal/relay"
	"github.com/sweeney/lamp-monitor/internal/status"
	"github.com/sweeney/lamp-monitor/internal/vision"
	"github.com/sweeney/lamp-monitor/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	relayPin := flag.Int("relay-pin", 0, "BCM pin for the alarm relay (0 to disable)")
	synthetic := flag.Bool("synthetic", false, "Use a synthetic frame source instead of the camera")
	printState := flag.Bool("print-state", false, "Classify one frame, print lamp states, and exit")

	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ws := resolveWSBroker(*wsBroker, *broker)
	if err := run(*configPath, *broker, *heartbeat, *httpAddr, ws, *relayPin, *synthetic, *printState); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath, broker string, heartbeat time.Duration, httpAddr, wsBroker string, relayPin int, synthetic, printState bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rois, err := cfg.LampROIs()
	if err != nil {
		return fmt.Errorf("parse rois: %w", err)
	}

	classifier, err := vision.NewClassifier(cfg.Thresholds())
	if err != nil {
		return fmt.Errorf("init classifier: %w", err)
	}

	source, err := openSource(cfg, rois, synthetic)
	if err != nil {
		return fmt.Errorf("open frame source: %w", err)
	}
	defer source.Close()

	// Print state mode: classify a single frame and exit.
	if printState {
		return printCurrentState(source, classifier, rois)
	}

	poll := pollInterval(cfg.Camera.FPS)
	startTime := time.Now()

	detector, err := logic.NewDetector(cfg.LampIDs(), cfg.Logic.FramesWindow, startTime)
	if err != nil {
		return fmt.Errorf("init detector: %w", err)
	}

	batcher := notify.NewBatcher(notify.BatcherConfig{
		MinInterval:      secDuration(cfg.Notify.MinIntervalSec),
		CollectionWindow: secDuration(cfg.Notify.CollectionWindowSec),
		BatchInterval:    secDuration(cfg.Notify.BatchIntervalSec),
	}, startTime)
	sender := notify.NewHTTPSender(cfg.Notify.WorkerURL, cfg.Notify.Secret, 10*time.Second)

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, status.Config{
		PollMs:       poll.Milliseconds(),
		HeartbeatMs:  heartbeat.Milliseconds(),
		FramesWindow: cfg.Logic.FramesWindow,
		LampCount:    len(cfg.LampIDs()),
		Broker:       broker,
		WorkerURL:    cfg.Notify.WorkerURL,
		HTTPPort:     httpAddr,
		WSBroker:     wsBroker,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	dispatcher := notify.NewDispatcher(sender, batcher, cfg.Notify.QueueSize, slog.Default())
	dispatcher.OnResult = alarmOutcomeHandler(publisher, tracker, time.Now)
	dispatcher.Start()
	defer dispatcher.Close()

	// Optional alarm relay
	var relayDriver relay.Driver
	if relayPin > 0 {
		rd, err := relay.NewRealDriver(relayPin)
		if err != nil {
			return fmt.Errorf("init relay: %w", err)
		}
		defer rd.Close()
		relayDriver = rd
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
		slog.Warn("startup event publish failed", "error", err)
	} else {
		slog.Info("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", httpAddr)
	}

	slog.Info("started",
		"poll", poll, "window", cfg.Logic.FramesWindow, "lamps", len(cfg.LampIDs()),
		"broker", broker, "worker_url", cfg.Notify.WorkerURL, "heartbeat", heartbeat)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deps := loopDeps{
		source:     source,
		classifier: classifier,
		rois:       rois,
		detector:   detector,
		batcher:    batcher,
		dispatcher: dispatcher,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		relay:      relayDriver,
		heartbeat:  heartbeat,
		now:        time.Now,
	}
	return runLoop(deps, ticker.C, sigCh)
}

// loopDeps carries everything runLoop needs, so tests can assemble it
// from fakes.
type loopDeps struct {
	source     frame.Source
	classifier *vision.Classifier
	rois       map[int]frame.Rect
	detector   *logic.Detector
	batcher    *notify.Batcher
	dispatcher *notify.Dispatcher
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	relay      relay.Driver
	heartbeat  time.Duration
	now        func() time.Time
}

// alarmOutcomeHandler records each delivery attempt in the status tracker
// and publishes the outcome to the alarms topic.
func alarmOutcomeHandler(publisher mqtt.Publisher, tracker *status.Tracker, now func() time.Time) func(*notify.Batch, error) {
	return func(batch *notify.Batch, err error) {
		msg := mqtt.AlarmMessage{
			Timestamp: now(),
			BatchID:   batch.ID,
			LampIDs:   batch.LampIDs(),
			Delivered: err == nil,
		}
		if err != nil {
			msg.Error = err.Error()
			tracker.NoteFailed()
		} else {
			tracker.NoteSent()
		}
		if perr := publisher.PublishAlarm(msg); perr != nil {
			slog.Warn("alarm outcome publish failed", "error", perr)
		}
	}
}

func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal) error {
	ids := d.detector.LampIDs()

	var frames int64
	fpsStart := d.now()
	fpsFrames := 0
	fps := 0.0
	relayOn := false

	for {
		select {
		case s := <-sig:
			slog.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
				}
				snap := d.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				slog.Warn("shutdown event publish failed", "error", err)
			} else {
				slog.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := d.now()
			fr, err := d.source.Capture()
			if err != nil {
				slog.Warn("frame capture error", "error", err)
				continue
			}

			for _, id := range ids {
				roi, ok := d.rois[id]
				if !ok {
					continue
				}
				reg, err := fr.Region(roi)
				if err != nil {
					slog.Warn("roi out of bounds", "lamp", id, "error", err)
					continue
				}

				event := d.detector.Observe(id, d.classifier.Classify(reg), t)
				if event == nil {
					continue
				}

				slog.Info("state change",
					"lamp", event.LampID, "from", event.OldLabel, "to", event.NewLabel,
					"confidence", event.Confidence, "ratio", event.MajorityRatio)
				if err := d.publisher.Publish(*event); err != nil {
					slog.Warn("event publish failed", "error", err)
					// Don't crash on publish failure
				}

				if event.NewLabel == logic.LabelRed {
					if !d.batcher.Alarm(event.LampID, event.Confidence, t) {
						slog.Info("alarm suppressed by cooldown", "lamp", event.LampID)
						if d.tracker != nil {
							d.tracker.NoteSuppressed()
						}
					}
				}
			}

			if batch := d.batcher.Tick(t); batch != nil {
				if !d.dispatcher.Enqueue(batch) {
					if d.tracker != nil {
						d.tracker.NoteDropped()
					}
				}
			}

			// Drive the alarm relay on RED edges only.
			if d.relay != nil {
				if anyRed := d.detector.AnyRed(); anyRed != relayOn {
					if err := d.relay.Set(anyRed); err != nil {
						slog.Warn("relay error", "error", err)
					} else {
						relayOn = anyRed
						slog.Info("relay", "on", anyRed)
					}
				}
			}

			frames++
			fpsFrames++
			if elapsed := t.Sub(fpsStart); elapsed >= 10*time.Second {
				fps = float64(fpsFrames) / elapsed.Seconds()
				fpsStart = t
				fpsFrames = 0
			}

			// Check for heartbeat
			if hbData := d.detector.CheckHeartbeat(t, d.heartbeat); hbData != nil {
				slog.Info("heartbeat",
					"uptime", hbData.Uptime, "to_red", hbData.Counts.ToRed,
					"to_green", hbData.Counts.ToGreen, "to_unknown", hbData.Counts.ToUnknown)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if d.tracker != nil {
					if d.mqttStatus != nil {
						d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						d.tracker.SetNetwork(net)
					}
					d.tracker.Update(d.detector.States(), d.detector.Ready(), d.detector.EventCountsSnapshot(), frames, fps)
					snap := d.tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					slog.Warn("heartbeat publish failed", "error", err)
				}
			}

			// Update status tracker for HTTP consumers
			if d.tracker != nil {
				d.tracker.Update(d.detector.States(), d.detector.Ready(), d.detector.EventCountsSnapshot(), frames, fps)
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
				}
			}
		}
	}
}

// openSource picks the frame source: synthetic test pattern or MJPEG camera.
func openSource(cfg *config.Config, rois map[int]frame.Rect, synthetic bool) (frame.Source, error) {
	if synthetic {
		w, h := cameraSize(cfg)
		return frame.NewSyntheticSource(w, h, rois), nil
	}
	return frame.OpenMJPEG(cfg.Camera.StreamURL)
}

func cameraSize(cfg *config.Config) (int, int) {
	if len(cfg.Camera.Size) == 2 && cfg.Camera.Size[0] > 0 && cfg.Camera.Size[1] > 0 {
		return cfg.Camera.Size[0], cfg.Camera.Size[1]
	}
	return 640, 480
}

// pollInterval derives the tick period from the configured camera rate.
func pollInterval(fps int) time.Duration {
	if fps <= 0 {
		return 500 * time.Millisecond
	}
	return time.Second / time.Duration(fps)
}

func secDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

func printCurrentState(source frame.Source, classifier *vision.Classifier, rois map[int]frame.Rect) error {
	fr, err := source.Capture()
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}

	ids := make([]int, 0, len(rois))
	for id := range rois {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		reg, err := fr.Region(rois[id])
		if err != nil {
			return fmt.Errorf("lamp %d roi: %w", id, err)
		}
		c := classifier.Classify(reg)
		fmt.Printf("Lamp %d: %s (confidence %.2f)\n", id, c.Label, c.Confidence)
	}
	return nil
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

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		slog.Warn("ws-broker: cannot parse broker address", "broker", broker, "error", err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
