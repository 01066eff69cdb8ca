package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vxlanevpn/reconciler/internal/kernel"
	"github.com/vxlanevpn/reconciler/internal/reconcile"
	"github.com/vxlanevpn/reconciler/pkg/audit"
	"github.com/vxlanevpn/reconciler/pkg/config"
	"github.com/vxlanevpn/reconciler/pkg/model"
	"github.com/vxlanevpn/reconciler/pkg/statestore"
	"github.com/vxlanevpn/reconciler/pkg/util"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Run one reconciliation attempt against the live kernel datapath",
	RunE: func(cmd *cobra.Command, args []string) error {
		desired, err := loadDesiredState()
		if err != nil {
			return err
		}
		if err := config.Validate(desired); err != nil {
			return err
		}

		auditLogger, err := audit.NewFileLogger(app.auditLog, audit.RotationConfig{MaxSize: 10 * 1024 * 1024, MaxBackups: 5})
		if err != nil {
			util.Warnf("could not initialize audit logging: %v", err)
		} else {
			defer auditLogger.Close()
			audit.SetDefaultLogger(auditLogger)
		}

		store := statestore.New(app.stateDir)
		priorRec, err := store.Load()
		if err != nil {
			return err
		}
		var prior *model.DesiredState
		if priorRec != nil && priorRec.Success {
			prior = &priorRec.Config
		}

		r := reconcile.New(kernel.New())

		start := time.Now()
		out, applyErr := r.Apply(desired, prior)
		elapsed := time.Since(start)

		ev := audit.NewEvent(desired.Mode).
			WithInitial(out.Initial).
			WithDuration(elapsed).
			WithRolledBack(out.RolledBack).
			WithVlanCounts(out.VlansAdded, out.VlansRemoved, out.VlansChanged).
			WithVrfCounts(out.VrfsAdded, out.VrfsRemoved, out.VrfsChanged)
		if applyErr != nil {
			ev.WithError(applyErr)
		} else {
			ev.WithSuccess()
		}
		if lerr := audit.Log(ev); lerr != nil {
			util.Warnf("could not write audit log entry: %v", lerr)
		}

		if serr := store.Save(desired, applyErr == nil, out.Journal); serr != nil {
			util.Warnf("could not persist reconciliation state: %v", serr)
		}

		if applyErr != nil {
			return fmt.Errorf("reconciliation failed: %w", applyErr)
		}
		util.WithFields(map[string]interface{}{
			"mode":          out.Mode,
			"initial":       out.Initial,
			"vlans_added":   out.VlansAdded,
			"vlans_removed": out.VlansRemoved,
			"vlans_changed": out.VlansChanged,
			"vrfs_added":    out.VrfsAdded,
			"vrfs_removed":  out.VrfsRemoved,
			"vrfs_changed":  out.VrfsChanged,
		}).Info("reconciliation succeeded")
		return nil
	},
}

func loadDesiredState() (model.DesiredState, error) {
	if app.configFile != "" {
		return config.LoadFromYAMLFile(app.configFile)
	}
	return config.LoadFromEnv()
}
