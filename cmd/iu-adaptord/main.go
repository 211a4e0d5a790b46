// Command iu-adaptord runs the Iu interface core-network adaptation layer
// as a standalone daemon: it binds an SUA listener, accepts RNC/HNB-GW
// associations, and logs the UE events and NAS PDUs the adaptor produces.
// It stands in for a real MSC/SGSN host program, the way the teacher's
// cmd/gnbsim.go stands in for a real UE/gNB.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/osmo-iu/iu-adaptor/iu"
)

func main() {
	cfgPath := flag.String("config", "iu-adaptord.json", "path to daemon config")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "iu-adaptord: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "iu-adaptord: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ip, err := cfg.listenIP()
	if err != nil {
		log.Fatal("bad config", zap.Error(err))
	}

	adaptor := iu.New(log)

	nasRecv := func(ctx *iu.Context, nas []byte, ra iu.RAId) {
		log.Info("NAS received",
			zap.String("trace", ctx.TraceID),
			zap.Int("len", len(nas)),
			zap.Uint16("lac", ra.LAC))
		// A real MSC/SGSN host decodes nas here; this demo only logs it,
		// matching spec.md's "core does not decode NAS semantics".
	}

	ueEvent := func(evt iu.UEEvent) {
		log.Info("UE event", zap.String("trace", evt.Context.TraceID), zap.String("kind", evt.Kind.String()))
		switch evt.Kind {
		case iu.EventIuRelease, iu.EventLinkInvalidated:
			// Host-side subscriber state for evt.Context would be torn
			// down here.
		case iu.EventRABAssign:
			log.Info("RAB assigned", zap.Uint8("rab-id", evt.RAB.RABID), zap.String("endpoint", evt.RAB.Endpoint.Addr.String()))
		case iu.EventErrorIndication:
			if evt.Cause != nil {
				log.Warn("peer error indication", zap.Any("cause", *evt.Cause))
			}
		}
	}

	log.Info("starting", zap.String("addr", ip.String()), zap.Int("port", cfg.ListenPort), zap.String("domain", cfg.Domain))
	if err := adaptor.Init(ip, cfg.ListenPort, nasRecv, ueEvent); err != nil {
		log.Fatal("adaptor stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zcfg.Build()
}
