package reconcile

import (
	"catalog-sync/internal/model"
	"catalog-sync/internal/transform"
)

// PipelineSafety lists the target pipeline rows that must survive this run.
type PipelineSafety struct {
	Commands model.IDSet
	Configs  model.IDSet
	Creates  model.IDSet
	// TargetOnly are configs kept because their table does not exist in the source.
	TargetOnly []model.Config
}

// AnalyzePipeline propagates connection safety down the pipeline hierarchy.
//
// A command is safe when its connection is kept, a config when its command is safe.
// Configs whose table name is unknown to the source are also kept together with their
// command. A create statement is safe when a safe config references it.
func AnalyzePipeline(fixConnections model.IDSet, commands []model.Command, configs []model.Config, sourceTables []model.SourceTable) PipelineSafety {
	safe := PipelineSafety{
		Commands: model.NewIDSet(),
		Configs:  model.NewIDSet(),
		Creates:  model.NewIDSet(),
	}

	for _, cmd := range commands {
		if fixConnections.HasNull(cmd.ConnectionID) {
			safe.Commands.Add(cmd.ID)
		}
	}

	for _, cfg := range configs {
		if safe.Commands.HasNull(cfg.CommandID) {
			safe.Configs.Add(cfg.ID)
		}
	}

	sourceNames := make(map[string]struct{}, len(sourceTables))
	for _, st := range sourceTables {
		sourceNames[transform.NormalizeTableName(st.TableName)] = struct{}{}
	}

	for _, cfg := range configs {
		if safe.Configs.Has(cfg.ID) {
			continue
		}
		if _, known := sourceNames[transform.NormalizeTableName(cfg.TableName)]; known {
			continue
		}
		safe.Configs.Add(cfg.ID)
		if cfg.CommandID.Valid {
			safe.Commands.Add(cfg.CommandID.Int64)
		}
		safe.TargetOnly = append(safe.TargetOnly, cfg)
	}

	for _, cfg := range configs {
		if safe.Configs.Has(cfg.ID) && cfg.CreateID.Valid {
			safe.Creates.Add(cfg.CreateID.Int64)
		}
	}

	return safe
}
