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

	"golang.org/x/sync/errgroup"

	"orientd/api"
	"orientd/orientation"
	"orientd/remote"
	"orientd/storage"
)

func main() {
	var (
		listenAddr = flag.String("listen", ":8080", "HTTP listen address")
		dbPath     = flag.String("db", "orientd.db", "SQLite transition log path (empty disables)")
		csvPath    = flag.String("csv", "", "CSV transition log path (empty disables)")
		debounceMs = flag.Int("debounce-ms", 100, "minimum spacing between processed samples")
		bias       = flag.Float64("bias", 4.0, "hysteresis bias against opposite-family flips")

		useSim    = flag.Bool("sim", false, "use the simulated rotating sensor instead of MQTT")
		simPeriod = flag.Duration("sim-period", 20*time.Second, "full rotation time of the simulated sensor")

		broker       = flag.String("broker", "localhost", "MQTT broker host")
		brokerPort   = flag.Int("broker-port", 1883, "MQTT broker port")
		username     = flag.String("username", "", "MQTT username")
		password     = flag.String("password", "", "MQTT password")
		useTLS       = flag.Bool("tls", false, "connect to the broker over TLS")
		gravityTopic = flag.String("gravity-topic", "devices/+/gravity", "inbound gravity topic")
		orientTopic  = flag.String("orientation-topic", "orientd/orientation", "outbound orientation topic")
		publish      = flag.Bool("publish", false, "publish orientation changes back to MQTT")
	)
	flag.Parse()

	remoteCfg := remote.DefaultConfig()
	remoteCfg.Broker = *broker
	remoteCfg.Port = *brokerPort
	remoteCfg.Username = *username
	remoteCfg.Password = *password
	remoteCfg.UseTLS = *useTLS
	remoteCfg.GravityTopic = *gravityTopic
	remoteCfg.OrientationTopic = *orientTopic

	// Pick the gravity source and install it as the process-wide handle.
	var (
		sensor    orientation.MotionSensor
		remoteSrc *remote.Sensor
	)
	if *useSim {
		sensor = orientation.NewSimulatedSensor(50*time.Millisecond, *simPeriod)
		log.Printf("[Main] Using simulated sensor (period=%s)", *simPeriod)
	} else {
		remoteSrc = remote.NewSensor(remoteCfg)
		sensor = remoteSrc
	}
	if err := orientation.SetDefaultSensor(sensor); err != nil {
		log.Fatalf("Failed to install sensor: %v", err)
	}

	cfg := orientation.DefaultConfig()
	cfg.Debounce = time.Duration(*debounceMs) * time.Millisecond
	cfg.Bias = *bias

	pipeline := orientation.NewPipeline(cfg, nil)
	defer pipeline.Close()

	// Transition sinks: SQLite log, CSV log, MQTT publisher, console.
	var store *storage.TransitionStore
	if *dbPath != "" {
		var err error
		store, err = storage.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open transition store: %v", err)
		}
		defer store.Close()

		pipeline.AddListener(func(tr orientation.Transition) {
			if err := store.Record(tr); err != nil {
				log.Printf("[Main] Failed to record transition: %v", err)
			}
		})
	}

	if *csvPath != "" {
		csvWriter, err := storage.NewCSVWriter(*csvPath)
		if err != nil {
			log.Fatalf("Failed to open CSV log: %v", err)
		}
		defer csvWriter.Close()
		pipeline.AddListener(csvWriter.WriteTransition)
	}

	if *publish {
		publisher := remote.NewPublisher(remoteCfg)
		if err := publisher.Connect(); err != nil {
			log.Printf("[WARN] Orientation publisher failed to connect: %v", err)
			log.Printf("[WARN] Running without MQTT publishing")
		} else {
			defer publisher.Close()
			pipeline.AddListener(func(tr orientation.Transition) {
				if err := publisher.Publish(tr); err != nil {
					log.Printf("[Main] Failed to publish transition: %v", err)
				}
			})
		}
	}

	pipeline.AddListener(func(tr orientation.Transition) {
		log.Printf("[Main] Orientation changed: %s (%.3f, %.3f)", tr.StateName, tr.Vector.X, tr.Vector.Y)
	})

	pipeline.Start()
	if !pipeline.Running() {
		log.Printf("[WARN] Pipeline not running (sensor unavailable); API still serves history")
	}

	server := api.NewServer(pipeline, store)
	if remoteSrc != nil {
		server.AddStatsProvider("receiver", remoteSrc.Stats())
	}

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.ServeMux(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	fmt.Printf("orientd - device orientation hub\n")
	fmt.Printf("Listening on http://localhost%s\n", *listenAddr)
	if remoteSrc != nil {
		fmt.Printf("Gravity feed: %s:%d %s\n", remoteCfg.Broker, remoteCfg.Port, remoteCfg.GravityTopic)
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	pipeline.Stop()
	log.Printf("[Main] Shutdown complete")
}
