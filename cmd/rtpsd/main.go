// Command rtpsd runs a standalone RTPS participant: it binds a UDP
// transport, joins the domain's metatraffic multicast group, and runs
// SPDP/SEDP discovery until interrupted.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rtps-go/internal/config"
	"rtps-go/internal/rtpslog"
	"rtps-go/pkg/actor"
	"rtps-go/pkg/discovery/sedp"
	"rtps-go/pkg/discovery/spdp"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/registry"
	"rtps-go/pkg/transport"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		bindHost   string
		bindPort   uint32
		domainID   uint32
		domainTag  string
		guidPrefix string
	)

	cmd := &cobra.Command{
		Use:     "rtpsd",
		Short:   "Run a standalone RTPS participant",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := rtpslog.New(os.Stdout)
			rtpslog.Banner(os.Stdout, "RTPS Participant Daemon", version)

			cfg := config.Default()
			cfg.DomainID = domainID
			cfg.DomainTag = domainTag
			if guidPrefix != "" {
				raw, err := hex.DecodeString(guidPrefix)
				if err != nil {
					return fmt.Errorf("invalid --guid-prefix: %w", err)
				}
				if len(raw) != len(guid.GuidPrefix{}) {
					return fmt.Errorf("--guid-prefix must be %d hex-encoded octets, got %d", len(guid.GuidPrefix{}), len(raw))
				}
				var prefix guid.GuidPrefix
				copy(prefix[:], raw)
				cfg.GuidPrefix = prefix
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			udpTransport, err := transport.ListenUDPv4(bindHost, bindPort)
			if err != nil {
				return err
			}

			kernel := actor.NewKernel(4)
			t := transport.NewActorTransport(kernel, ctx, udpTransport)
			defer t.Close()

			p := registry.New(cfg, t)

			announcer := spdp.NewAnnouncer(p)
			detector := spdp.NewDetector(p)
			p.SetSPDPAnnounceHook(announcer.Announce)
			p.SetLeaseSweepHook(detector.SweepExpiredLeases)

			sedpAnnouncer := sedp.NewAnnouncer(p)
			sedp.NewDetector(sedpAnnouncer)

			log.WithFields(logrus.Fields{
				"domain_id":   cfg.DomainID,
				"domain_tag":  cfg.DomainTag,
				"guid_prefix": cfg.GuidPrefix,
				"local":       t.LocalLocator(),
			}).Info("participant starting")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				log.WithField("signal", sig).Warn("received shutdown signal")
				cancel()
			}()

			errCh := make(chan error, 1)
			go func() { errCh <- p.Run(ctx) }()

			announcer.Announce()

			select {
			case err := <-errCh:
				if err != nil && ctx.Err() == nil {
					log.WithError(err).Error("participant exited with error")
					return err
				}
			case <-ctx.Done():
				select {
				case <-errCh:
				case <-time.After(time.Second):
				}
			}

			log.Info("participant stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&bindHost, "bind", "0.0.0.0", "address to bind the participant's UDP socket to")
	cmd.Flags().Uint32Var(&bindPort, "port", 7410, "port to bind the participant's UDP socket to")
	cmd.Flags().Uint32Var(&domainID, "domain", 0, "RTPS domain id")
	cmd.Flags().StringVar(&domainTag, "domain-tag", "", "RTPS domain tag")
	cmd.Flags().StringVar(&guidPrefix, "guid-prefix", "", "hex-encoded 12-octet GUID prefix (random if omitted)")

	return cmd
}
