// Command natsjobsctl is a small operator CLI over a natsjobs deployment:
// push a raw JSON payload, inspect queue depth, and list the dead-letter
// stream depth for a namespace.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nimburion/natsjobs/pkg/natsjobs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("NATSJOBSCTL")
	v.AutomaticEnv()
	v.SetDefault("nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("namespace", natsjobs.DefaultNamespace)

	rootCmd := &cobra.Command{
		Use:   "natsjobsctl",
		Short: "Operate a natsjobs priority queue deployment",
	}
	rootCmd.PersistentFlags().String("nats-url", "", "NATS connection URL")
	rootCmd.PersistentFlags().String("namespace", "", "stream/subject namespace")
	_ = v.BindPFlag("nats_url", rootCmd.PersistentFlags().Lookup("nats-url"))
	_ = v.BindPFlag("namespace", rootCmd.PersistentFlags().Lookup("namespace"))

	rootCmd.AddCommand(newPushCmd(v))
	rootCmd.AddCommand(newQueueInfoCmd(v))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPushCmd(v *viper.Viper) *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "push [json-payload]",
		Short: "Push a raw JSON payload onto a priority stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload json.RawMessage
			if err := json.Unmarshal([]byte(args[0]), &payload); err != nil {
				return fmt.Errorf("invalid json payload: %w", err)
			}

			p, err := natsjobs.ParsePriority(priority)
			if err != nil {
				return err
			}

			storage, err := connect(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer storage.Close()

			id, err := storage.PushWithPriority(cmd.Context(), payload, p)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "medium", "high, medium, or low")
	return cmd
}

func newQueueInfoCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-info",
		Short: "Print per-priority pending counts and DLQ depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := connect(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer storage.Close()

			info, err := storage.QueueInfo(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func connect(ctx context.Context, v *viper.Viper) (*natsjobs.Storage[json.RawMessage], error) {
	cfg := natsjobs.DefaultConfig()
	cfg.Namespace = v.GetString("namespace")
	return natsjobs.Connect[json.RawMessage](ctx, v.GetString("nats_url"), cfg, nil)
}
