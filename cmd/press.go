package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/doorbridge/config"
	"github.com/kilianp07/doorbridge/core/door"
	"github.com/kilianp07/doorbridge/infra/mqtt"
)

var pressCmd = &cobra.Command{
	Use:   "press {OPEN|CLOSE}",
	Short: "Publish a button press",
	Args:  cobra.ExactArgs(1),
	RunE:  runPress,
}

var pressWait bool

func init() {
	pressCmd.Flags().BoolVar(&pressWait, "wait", false, "wait for the settled status")
	rootCmd.AddCommand(pressCmd)
}

func runPress(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	command, ok := door.ParseCommand(args[0])
	if !ok {
		return fmt.Errorf("unrecognized command %q, want OPEN or CLOSE", args[0])
	}

	mqttCfg := cfg.MQTT
	suffix := time.Now().UnixNano()
	if mqttCfg.ClientID != "" {
		mqttCfg.ClientID = fmt.Sprintf("%s-press-%d", mqttCfg.ClientID, suffix)
	} else {
		mqttCfg.ClientID = fmt.Sprintf("press-%d", suffix)
	}
	sess, err := mqtt.NewSession(mqttCfg)
	if err != nil {
		return fmt.Errorf("mqtt session: %w", err)
	}
	defer sess.Close()

	var statuses chan string
	if pressWait {
		// Watch before pressing so the transitional status is not missed.
		statuses = make(chan string, 4)
		err := sess.WatchStatus(func(_ context.Context, _, payload string) {
			select {
			case statuses <- payload:
			default:
			}
		})
		if err != nil {
			return fmt.Errorf("watch status: %w", err)
		}
	}

	if err := sess.Press(command.String()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pressed %s\n", command)
	if !pressWait {
		return nil
	}

	_, want := command.Cycle()
	cfg.Tracker.SetDefaults()
	deadline := cfg.Tracker.TravelTimeout()
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for {
		select {
		case payload := <-statuses:
			fmt.Fprintln(cmd.OutOrStdout(), payload)
			if st, ok := door.ParseState(payload); ok && st == want {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("door did not settle to %s within %s", want, deadline)
		}
	}
}
