package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/harentsoaR/clinic-reception-api/internal/config"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/relay"
	"github.com/harentsoaR/clinic-reception-api/internal/relay/client"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateIDsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate-ids",
		Short: "Convert string-form id references to ObjectIDs and fold the legacy queue collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.Store.Driver != config.DriverMongo {
				return errors.New("migrate-ids needs STORE_DRIVER=mongo")
			}

			ctx := cmd.Context()
			be, err := openBackend(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer be.close(context.Background())

			report, err := be.mongo.MigrateIDs(ctx, dryRun)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if dryRun && !report.Clean() {
				log.Info("legacy references found; rerun without --dry-run to convert them",
					zap.Int64("legacy", report.TotalLegacy))
			}
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "Only count legacy references")
	return cmd
}

// clinicDoctors are the doctors every fresh deployment starts with.
var clinicDoctors = []models.Doctor{
	{
		ID:             identity.MustParse("68c15cac7a7bea4f6c332685"),
		Name:           "Dr. Ahmed Khan",
		Specialization: "Cardiology",
		Email:          "ahmed.khan@clinic.com",
		Phone:          "+92300123456",
		Department:     "Cardiology",
	},
	{
		ID:             identity.MustParse("68c195256b30441fa3cab701"),
		Name:           "Dr. Sarah Ali",
		Specialization: "Pediatrics",
		Email:          "sarah.ali@clinic.com",
		Phone:          "+92301234567",
		Department:     "Pediatrics",
	},
}

func seedDoctorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-doctors",
		Short: "Insert or refresh the clinic's doctor records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			be, err := openBackend(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer be.close(context.Background())

			doctors := services.NewDoctorService(be.repos, cfg.DoctorCache.Size, cfg.DoctorCache.TTL, log)
			for i := range clinicDoctors {
				d := clinicDoctors[i]
				created, err := doctors.Upsert(ctx, &d)
				if err != nil {
					return fmt.Errorf("seed %s: %w", d.Name, err)
				}
				action := "updated"
				if created {
					action = "created"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", action, d.Name, d.ID.Hex())
			}
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow one doctor's live updates from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			token, _ := cmd.Flags().GetString("token")
			rawDoctor, _ := cmd.Flags().GetString("doctor")

			doctorID, err := identity.Parse(rawDoctor)
			if err != nil {
				return fmt.Errorf("--doctor: %w", err)
			}
			if token == "" {
				token = os.Getenv("SESSION_TOKEN")
			}

			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sub := client.New(client.Options{URL: url, Token: token, Logger: log})
			show := func(ev relay.Event) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ev.Timestamp.Format(time.RFC3339), ev.Event, string(ev.Data))
			}
			if err := sub.Subscribe(doctorID, client.Handlers{OnAppointmentUpdate: show, OnQueueUpdate: show}); err != nil {
				return err
			}
			if err := sub.Connect(ctx); err != nil {
				return err
			}
			log.Info("watching doctor", zap.String("doctorId", doctorID.Hex()))

			select {
			case <-ctx.Done():
				return sub.Close()
			case <-sub.Done():
				return sub.Err()
			}
		},
	}
	cmd.Flags().String("url", "ws://localhost:8080/api/socket", "Relay websocket endpoint")
	cmd.Flags().String("token", "", "Session token (defaults to $SESSION_TOKEN)")
	cmd.Flags().String("doctor", "", "Doctor id to follow")
	_ = cmd.MarkFlagRequired("doctor")
	return cmd
}
