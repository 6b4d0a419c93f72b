package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"banksim/internal/api"
	"banksim/internal/audit"
	"banksim/internal/monitor"
	"banksim/internal/session"
	"banksim/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("🏦 banksim-server starting, port=%s", cfg.Port)

	reg := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(reg)

	mgr := session.NewManager()

	var auditWriter *audit.Writer
	if cfg.AuditDBPath != "" {
		auditWriter, err = audit.Open(cfg.AuditDBPath)
		if err != nil {
			log.Printf("⚠️ audit writer init failed: %v (durable event mirror disabled)", err)
		} else {
			defer auditWriter.Close()
			mgr.SetAuditSink(auditWriter)
			log.Printf("📒 audit event mirror enabled at %s", cfg.AuditDBPath)
		}
	}

	if cfg.ScenarioPath != "" {
		sc, err := config.LoadScenario(cfg.ScenarioPath)
		if err != nil {
			log.Printf("⚠️ scenario load failed: %v", err)
		} else {
			sessCfg := sc.ToSessionConfig()
			if sessCfg.TotalSteps <= 0 {
				sessCfg.TotalSteps = cfg.DefaultTotalSteps
			}
			if sessCfg.Seed == 0 {
				sessCfg.Seed = cfg.DefaultSeed
			}
			sess := mgr.Init(sessCfg)
			log.Printf("📄 scenario session %s initialized from %s", sess.ID, cfg.ScenarioPath)
		}
	}

	server := api.NewServer(mgr, metrics, reg, cfg.JWTSecret)

	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}
