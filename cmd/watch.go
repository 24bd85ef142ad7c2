package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/doorbridge/config"
	"github.com/kilianp07/doorbridge/infra/mqtt"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print door statuses as they are announced",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mqttCfg := cfg.MQTT
	suffix := time.Now().UnixNano()
	if mqttCfg.ClientID != "" {
		mqttCfg.ClientID = fmt.Sprintf("%s-watch-%d", mqttCfg.ClientID, suffix)
	} else {
		mqttCfg.ClientID = fmt.Sprintf("watch-%d", suffix)
	}
	sess, err := mqtt.NewSession(mqttCfg)
	if err != nil {
		return fmt.Errorf("mqtt session: %w", err)
	}
	defer sess.Close()

	print := func(_ context.Context, topic, payload string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", time.Now().Format(time.RFC3339), topic, payload)
	}
	if err := sess.WatchStatus(print); err != nil {
		return fmt.Errorf("watch status: %w", err)
	}
	if err := sess.WatchAvailability(print); err != nil {
		return fmt.Errorf("watch availability: %w", err)
	}

	<-ctx.Done()
	return nil
}
