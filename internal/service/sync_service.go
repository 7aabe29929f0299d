package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"catalog-sync/internal/metrics"
	"catalog-sync/internal/model"
	"catalog-sync/internal/reconcile"
	"catalog-sync/internal/repository"
	"catalog-sync/internal/rewrite"
	"catalog-sync/internal/security"
	"catalog-sync/internal/transform"
	"catalog-sync/internal/utils"
)

// CredentialCodec is the credential codec the sync runs with.
type CredentialCodec interface {
	transform.Codec
	Failures() int64
}

// Options controls a sync run.
type Options struct {
	DryRun    bool
	History   repository.HistoryFilter
	Transform transform.Options
}

// SyncService copies pipeline metadata from the source catalog schema into the target
// schema in one transaction, keeping rows that only exist in the target.
type SyncService struct {
	catalog   repository.Catalog
	codec     CredentialCodec
	inspector *security.SQLValidator
	pipeline  *transform.PipelineTransformer
	opts      Options
	logger    *zap.Logger
	metrics   *metrics.SyncMetrics
	now       func() time.Time
}

// NewSyncService creates the service. metrics may be nil.
func NewSyncService(catalog repository.Catalog, codec CredentialCodec, opts Options, logger *zap.Logger, m *metrics.SyncMetrics) *SyncService {
	s := &SyncService{
		catalog:   catalog,
		codec:     codec,
		inspector: security.NewSQLValidator(0),
		opts:      opts,
		logger:    logger,
		metrics:   m,
	}
	return s.WithClock(time.Now)
}

// WithClock replaces the clock used for insert dates and the report.
func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	s.now = now
	s.pipeline = transform.NewPipelineTransformer(s.opts.Transform, now)
	return s
}

// runState carries what one phase hands to the next.
type runState struct {
	uow    repository.UnitOfWork
	report *Report
	log    *zap.Logger

	fixConnections model.IDSet
	safety         reconcile.PipelineSafety
	masks          map[int64]sql.NullString
	nextCreateID   int64

	commands []model.Command
	configs  []model.Config
	creates  []model.Create
	cleans   []model.Clean
}

type phase struct {
	name string
	run  func(ctx context.Context, st *runState) error
}

func (s *SyncService) phases() []phase {
	return []phase{
		{"time_params", s.syncTimeParams},
		{"connections", s.syncConnections},
		{"pipeline_safety", s.analyzePipeline},
		{"clean_truncate", s.truncateCleans},
		{"pipeline_delete", s.deleteUnsafePipeline},
		{"create_id_allocation", s.allocateCreateIDs},
		{"pipeline_transform", s.transformPipeline},
		{"pipeline_insert", s.insertPipeline},
		{"clean_link", s.linkCleans},
	}
}

// Run performs one sync. The returned report is never nil; on error its outcome is
// failed and the transaction has been rolled back.
func (s *SyncService) Run(ctx context.Context) (*Report, error) {
	report := newReport(utils.NewRunID(), s.opts.DryRun, s.now())
	log := s.logger.With(zap.String("run_id", report.RunID))
	codecBefore := s.codec.Failures()

	log.Info("Starting catalog sync", zap.Bool("dry_run", s.opts.DryRun), zap.Bool("history_filter", s.opts.History.Enabled))

	err := s.run(ctx, report, log)

	report.CodecFailures = s.codec.Failures() - codecBefore
	if report.CodecFailures > 0 {
		report.Diagnostics = append(report.Diagnostics, rewrite.NewDiagnostic(0, rewrite.KindCredentialCodec, "",
			"%d credential values could not be decoded and were kept unchanged", report.CodecFailures))
		s.metrics.IncDiagnostic(string(rewrite.KindCredentialCodec))
		log.Warn("Credential codec fallbacks", zap.Int64("count", report.CodecFailures))
	}
	s.metrics.SetCodecFailures(report.CodecFailures)

	report.FinishedAt = s.now()
	if err != nil {
		report.Outcome = OutcomeFailed
		report.Error = err.Error()
	}
	s.metrics.SetRunResult(report.Outcome == OutcomeCommitted, report.FinishedAt)

	if err != nil {
		log.Error("Catalog sync failed", report.Fields()...)
		return report, err
	}
	log.Info("Catalog sync finished", report.Fields()...)
	return report, nil
}

func (s *SyncService) run(ctx context.Context, report *Report, log *zap.Logger) error {
	uow, err := s.catalog.Begin(ctx)
	if err != nil {
		return utils.NewTransactionError(err, "begin")
	}

	st := &runState{uow: uow, report: report, log: log}
	for _, p := range s.phases() {
		start := time.Now()
		err := p.run(ctx, st)
		s.metrics.ObservePhase(p.name, time.Since(start))
		if err != nil {
			log.Error("Sync phase failed, rolling back", zap.String("phase", p.name), zap.Error(err))
			if rbErr := uow.Rollback(); rbErr != nil {
				log.Error("Rollback failed", zap.Error(rbErr))
			}
			return err
		}
	}

	if s.opts.DryRun {
		if err := uow.Rollback(); err != nil {
			return utils.NewTransactionError(err, "rollback dry run")
		}
		report.Outcome = OutcomeRolledBack
		return nil
	}

	if err := uow.Commit(); err != nil {
		return utils.NewTransactionError(err, "commit")
	}
	report.Outcome = OutcomeCommitted
	return nil
}

func (s *SyncService) record(st *runState, table model.Table, op string, n int64) {
	st.report.count(table.Name, op, n)
	s.metrics.AddRows(table.Name, op, n)
}

func (s *SyncService) diagnose(st *runState, diags []rewrite.Diagnostic) {
	for _, d := range diags {
		st.log.Warn("Value kept unchanged", zap.String("kind", string(d.Kind)), zap.Int64("id", d.ContextID),
			zap.String("value", d.Value), zap.String("reason", d.Message))
		s.metrics.IncDiagnostic(string(d.Kind))
	}
	st.report.Diagnostics = append(st.report.Diagnostics, diags...)
}

func (s *SyncService) insert(ctx context.Context, st *runState, table model.Table, rows []model.Record) error {
	n, err := st.uow.Target().InsertBatch(ctx, table, rows)
	if err != nil {
		return utils.NewQueryError(err, "insert into "+table.Name)
	}
	s.record(st, table, OpInserted, int64(n))
	return nil
}

func (s *SyncService) delete(ctx context.Context, st *runState, table model.Table, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := st.uow.Target().DeleteByIDs(ctx, table, ids)
	if err != nil {
		return utils.NewQueryError(err, "delete from "+table.Name)
	}
	s.record(st, table, OpDeleted, n)
	return nil
}

// syncTimeParams inserts source parameters whose name the target lacks.
func (s *SyncService) syncTimeParams(ctx context.Context, st *runState) error {
	source, err := st.uow.Source().TimeParams(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load source time params")
	}
	target, err := st.uow.Target().TimeParams(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load target time params")
	}

	known := make(map[string]struct{}, len(target))
	for _, p := range target {
		known[p.Key()] = struct{}{}
	}

	var missing []model.TimeParam
	for _, p := range source {
		key := p.Key()
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		missing = append(missing, p)
	}

	st.log.Info("Time params", zap.Int("source", len(source)), zap.Int("target", len(target)), zap.Int("missing", len(missing)))
	return s.insert(ctx, st, model.TimeParamTable, model.Records(missing))
}

// syncConnections replaces target connections with the reconciled source set.
func (s *SyncService) syncConnections(ctx context.Context, st *runState) error {
	source, err := st.uow.Source().Connections(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load source connections")
	}
	target, err := st.uow.Target().Connections(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load target connections")
	}

	res := reconcile.Connections(source, target, s.codec, s.now())
	st.fixConnections = res.FixIDs

	for _, c := range res.Conflicts {
		st.log.Warn("Connection conflict", zap.String("detail", c))
	}
	for _, c := range res.Skipped {
		st.log.Info("Connection skipped", zap.String("detail", c))
	}
	for _, c := range res.Duplicates {
		st.log.Debug("Duplicate connection dropped", zap.String("detail", c))
	}
	st.report.Conflicts = append(st.report.Conflicts, res.Conflicts...)
	st.report.Skipped = append(st.report.Skipped, res.Skipped...)
	st.report.Duplicates = append(st.report.Duplicates, res.Duplicates...)
	s.metrics.AddConflicts(len(res.Conflicts))

	var stale []int64
	byID := make(map[int64]model.Connection, len(target))
	for _, c := range target {
		byID[c.ID] = c
		if !res.FixIDs.Has(c.ID) {
			stale = append(stale, c.ID)
		}
	}
	if err := s.delete(ctx, st, model.ConnectionTable, stale); err != nil {
		return err
	}
	if err := s.insert(ctx, st, model.ConnectionTable, model.Records(res.ToInsert)); err != nil {
		return err
	}

	for _, id := range res.SafeIDs.Sorted() {
		c := byID[id]
		name, driver := transform.DisplayFields(c, c.ConnectionName)
		if err := st.uow.Target().UpdateConnectionDisplay(ctx, id, name, driver); err != nil {
			return utils.NewQueryError(err, fmt.Sprintf("update connection %d", id))
		}
		s.record(st, model.ConnectionTable, OpUpdated, 1)
	}

	st.log.Info("Connections reconciled",
		zap.Int("source", len(source)),
		zap.Int("target", len(target)),
		zap.Int("inserted", len(res.ToInsert)),
		zap.Int("kept", len(res.FixIDs)),
		zap.Int("target_only", len(res.SafeIDs)),
		zap.Int("conflicts", len(res.Conflicts)),
	)
	return nil
}

// analyzePipeline decides which target pipeline rows survive.
func (s *SyncService) analyzePipeline(ctx context.Context, st *runState) error {
	commands, err := st.uow.Target().Commands(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load target commands")
	}
	configs, err := st.uow.Target().Configs(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load target configs")
	}
	tables, err := st.uow.Source().SourceTables(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load source table names")
	}

	st.masks = make(map[int64]sql.NullString, len(commands))
	for _, c := range commands {
		st.masks[c.ID] = c.MaskColumn
	}

	st.safety = reconcile.AnalyzePipeline(st.fixConnections, commands, configs, tables)
	for _, cfg := range st.safety.TargetOnly {
		st.report.TargetOnly = append(st.report.TargetOnly, cfg.ID)
		st.log.Info("Keeping target-only config", zap.Int64("config_id", cfg.ID), zap.String("table", cfg.TableName.String))
	}

	st.log.Info("Pipeline safety",
		zap.Int("safe_commands", len(st.safety.Commands)),
		zap.Int("safe_configs", len(st.safety.Configs)),
		zap.Int("safe_creates", len(st.safety.Creates)),
	)
	return nil
}

func (s *SyncService) truncateCleans(ctx context.Context, st *runState) error {
	if err := st.uow.Target().Truncate(ctx, model.CleanTable); err != nil {
		return utils.NewQueryError(err, "truncate "+model.CleanTable.Name)
	}
	return nil
}

// deleteUnsafePipeline removes target configs, commands and creates that are not safe.
func (s *SyncService) deleteUnsafePipeline(ctx context.Context, st *runState) error {
	target := st.uow.Target()

	configs, err := target.Configs(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load target configs")
	}
	commands, err := target.Commands(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load target commands")
	}
	creates, err := target.Creates(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load target creates")
	}

	var cfgIDs, cmdIDs, crtIDs []int64
	for _, c := range configs {
		if !st.safety.Configs.Has(c.ID) {
			cfgIDs = append(cfgIDs, c.ID)
		}
	}
	for _, c := range commands {
		if !st.safety.Commands.Has(c.ID) {
			cmdIDs = append(cmdIDs, c.ID)
		}
	}
	for _, c := range creates {
		if !st.safety.Creates.Has(c.ID) {
			crtIDs = append(crtIDs, c.ID)
		}
	}

	if err := s.delete(ctx, st, model.ConfigTable, cfgIDs); err != nil {
		return err
	}
	if err := s.delete(ctx, st, model.CommandTable, cmdIDs); err != nil {
		return err
	}
	return s.delete(ctx, st, model.CreateTable, crtIDs)
}

// allocateCreateIDs picks the first id for generated create statements.
func (s *SyncService) allocateCreateIDs(ctx context.Context, st *runState) error {
	targetMax, err := st.uow.Target().MaxCreateID(ctx)
	if err != nil {
		return utils.NewQueryError(err, "max target create id")
	}
	sourceMax, err := st.uow.Source().MaxCreateID(ctx)
	if err != nil {
		return utils.NewQueryError(err, "max source create id")
	}
	st.nextCreateID = max(targetMax, sourceMax) + 1
	st.report.NextCreateID = st.nextCreateID
	return nil
}

// transformPipeline builds the target rows from the source pipeline.
func (s *SyncService) transformPipeline(ctx context.Context, st *runState) error {
	rows, err := st.uow.Source().PipelineRows(ctx, s.opts.History)
	if err != nil {
		return utils.NewQueryError(err, "load source pipeline")
	}
	conns, err := st.uow.Target().Connections(ctx)
	if err != nil {
		return utils.NewQueryError(err, "load target connections")
	}
	names := connectionNames(conns)

	paths := rewrite.NewPathMap()
	seenConfigs := model.NewIDSet()
	for _, row := range rows {
		if st.safety.Configs.Has(row.ConfigID) || seenConfigs.Has(row.ConfigID) {
			continue
		}
		seenConfigs.Add(row.ConfigID)

		cfg, diags := s.pipeline.TransformConfig(row, names.lookup(row.ConnectionID))
		s.diagnose(st, diags)
		st.configs = append(st.configs, cfg)

		if oldBase := rewrite.NormalizeForMap(row.LocationPath.String); oldBase != "" {
			paths.Set(oldBase, rewrite.NormalizeForMap(cfg.LocationPath.String))
		}

		if drop, ok := transform.DropPartitionCreate(cfg, st.nextCreateID); ok {
			st.creates = append(st.creates, drop)
			st.nextCreateID++
		}
		if clean, ok := s.pipeline.CleanFromConfig(cfg); ok {
			st.cleans = append(st.cleans, clean)
		}
	}

	seenCommands := model.NewIDSet()
	seenCreates := model.NewIDSet()
	for _, row := range rows {
		if st.safety.Configs.Has(row.ConfigID) {
			continue
		}

		if !st.safety.Commands.Has(row.CommandID) && !seenCommands.Has(row.CommandID) {
			seenCommands.Add(row.CommandID)
			cmd := s.pipeline.TransformCommand(row, st.masks[row.CommandID])
			s.inspectCommand(st, cmd)
			st.commands = append(st.commands, cmd)
		}

		if !row.CreateID.Valid || st.safety.Creates.Has(row.CreateID.Int64) || seenCreates.Has(row.CreateID.Int64) {
			continue
		}
		seenCreates.Add(row.CreateID.Int64)
		crt, ok, diags := s.pipeline.TransformCreate(row, paths)
		s.diagnose(st, diags)
		if ok {
			st.creates = append(st.creates, crt)
		}
	}

	st.log.Info("Pipeline transformed",
		zap.Int("source_rows", len(rows)),
		zap.Int("configs", len(st.configs)),
		zap.Int("commands", len(st.commands)),
		zap.Int("creates", len(st.creates)),
		zap.Int("cleans", len(st.cleans)),
		zap.Int("path_mappings", paths.Len()),
	)
	return nil
}

// inspectCommand flags extraction SQL that parses as something other than a query.
func (s *SyncService) inspectCommand(st *runState, cmd model.Command) {
	if !cmd.SQLCommand.Valid || strings.TrimSpace(cmd.SQLCommand.String) == "" {
		return
	}
	kind, err := s.inspector.Classify(cmd.SQLCommand.String)
	if err != nil {
		st.log.Debug("Command SQL not inspected", zap.Int64("command_id", cmd.ID), zap.Error(err))
		return
	}
	if kind != security.StatementSelect {
		s.diagnose(st, []rewrite.Diagnostic{rewrite.NewDiagnostic(cmd.ID, rewrite.KindNonSelectCommand,
			cmd.SQLCommand.String, "extraction command is a %s statement", kind)})
	}
}

func (s *SyncService) insertPipeline(ctx context.Context, st *runState) error {
	if err := s.insert(ctx, st, model.CommandTable, model.Records(st.commands)); err != nil {
		return err
	}
	if err := s.insert(ctx, st, model.CreateTable, model.Records(st.creates)); err != nil {
		return err
	}
	if err := s.insert(ctx, st, model.ConfigTable, model.Records(st.configs)); err != nil {
		return err
	}
	return s.insert(ctx, st, model.CleanTable, model.Records(st.cleans))
}

func (s *SyncService) linkCleans(ctx context.Context, st *runState) error {
	n, err := st.uow.Target().LinkCleanToDropCommands(ctx)
	if err != nil {
		return utils.NewQueryError(err, "link clean folders")
	}
	st.report.LinkedCleans = n
	s.record(st, model.CleanTable, OpUpdated, n)
	st.log.Info("Clean folders linked", zap.Int64("linked", n))
	return nil
}

type connectionNameIndex map[int64]sql.NullString

func connectionNames(conns []model.Connection) connectionNameIndex {
	idx := make(connectionNameIndex, len(conns))
	for _, c := range conns {
		idx[c.ID] = c.ConnectionName
	}
	return idx
}

// lookup returns the directory name used for a connection's tables.
func (idx connectionNameIndex) lookup(id sql.NullInt64) string {
	name, ok := idx[id.Int64]
	if !id.Valid || !ok {
		return fmt.Sprintf("unknown_conn_%d", id.Int64)
	}
	if strings.TrimSpace(name.String) == "" {
		return fmt.Sprintf("unknown_%d", id.Int64)
	}
	return strings.TrimSpace(name.String)
}
