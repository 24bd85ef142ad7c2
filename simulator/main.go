package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	commandTopic = "garage_door/buttonpress"
	statusTopic  = "garage_door/status"
)

func main() {
	cfg := parseFlags()
	if err := (&cfg).Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := newMQTTClient(cfg.Broker, fmt.Sprintf("doorsoak-%d", time.Now().UnixNano()))
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("connect: %v", err)
	}
	defer cli.Disconnect(250)

	obs := NewStatusObserver(cfg.Presses)
	token := cli.Subscribe(statusTopic+cfg.TopicSuffix, 1, func(_ paho.Client, m paho.Message) {
		payload := string(m.Payload())
		log.Printf("status %s", payload)
		obs.Observe(payload, time.Now())
	})
	if token.Wait() && token.Error() != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("subscribe: %v", token.Error())
	}

	strat := newStrategy(cfg)
	sent := press(ctx, cli, cfg, strat)

	// Give the bridge time to finish the cycle in flight.
	select {
	case <-time.After(cfg.Settle):
	case <-ctx.Done():
	}

	fmt.Printf("presses: %d\n%s", sent, obs.Report())
}

func press(ctx context.Context, cli paho.Client, cfg Config, strat PressStrategy) int {
	topic := commandTopic + cfg.TopicSuffix
	sent := 0
	for i := 0; i < cfg.Presses; i++ {
		payload := strat.Next(i)
		token := cli.Publish(topic, 1, false, []byte(payload))
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("press %d timed out", i)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("press %d: %v", i, err)
			continue
		}
		log.Printf("press %d %q", i, payload)
		sent++
		select {
		case <-time.After(cfg.Interval):
		case <-ctx.Done():
			return sent
		}
	}
	return sent
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.IntVar(&cfg.Presses, "presses", 10, "number of button presses")
	flag.DurationVar(&cfg.Interval, "interval", 6*time.Second, "pause between presses")
	flag.DurationVar(&cfg.Settle, "settle", 10*time.Second, "grace period after the last press")
	flag.StringVar(&cfg.Strategy, "strategy", "alternating", "press strategy (alternating,random,chaos)")
	flag.Float64Var(&cfg.ChaosRate, "chaos-rate", 0.3, "invalid payload rate for the chaos strategy")
	flag.StringVar(&cfg.TopicSuffix, "topic-suffix", "", "suffix appended to both topics")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}
