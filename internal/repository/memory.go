package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"catalog-sync/internal/model"
)

// Snapshot is the full content of one catalog schema.
type Snapshot struct {
	Connections []model.Connection
	TimeParams  []model.TimeParam
	Commands    []model.Command
	Configs     []model.Config
	Creates     []model.Create
	Cleans      []model.Clean
	History     []model.HistoryEntry
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Connections: append([]model.Connection(nil), s.Connections...),
		TimeParams:  append([]model.TimeParam(nil), s.TimeParams...),
		Commands:    append([]model.Command(nil), s.Commands...),
		Configs:     append([]model.Config(nil), s.Configs...),
		Creates:     append([]model.Create(nil), s.Creates...),
		Cleans:      append([]model.Clean(nil), s.Cleans...),
		History:     append([]model.HistoryEntry(nil), s.History...),
	}
}

// Sorted returns a clone with every table ordered by its key.
func (s Snapshot) Sorted() Snapshot {
	c := s.Clone()
	sort.Slice(c.Connections, func(i, j int) bool { return c.Connections[i].ID < c.Connections[j].ID })
	sort.Slice(c.TimeParams, func(i, j int) bool { return c.TimeParams[i].Name < c.TimeParams[j].Name })
	sort.Slice(c.Commands, func(i, j int) bool { return c.Commands[i].ID < c.Commands[j].ID })
	sort.Slice(c.Configs, func(i, j int) bool { return c.Configs[i].ID < c.Configs[j].ID })
	sort.Slice(c.Creates, func(i, j int) bool { return c.Creates[i].ID < c.Creates[j].ID })
	sort.Slice(c.Cleans, func(i, j int) bool { return c.Cleans[i].Folder < c.Cleans[j].Folder })
	return c
}

// MemoryCatalog is an in-process Catalog. Units of work operate on a copy of the target
// that replaces it on commit.
type MemoryCatalog struct {
	mu       sync.Mutex
	source   Snapshot
	target   Snapshot
	failures map[string]error
}

// NewMemoryCatalog creates a catalog holding copies of source and target.
func NewMemoryCatalog(source, target Snapshot) *MemoryCatalog {
	return &MemoryCatalog{
		source:   source.Clone(),
		target:   target.Clone(),
		failures: make(map[string]error),
	}
}

// FailOn makes the named target operation return err. Operation names are the
// TargetStore method names, with the table name appended for table operations,
// e.g. "InsertBatch:D_DB_2_HDFS_CONFIG".
func (m *MemoryCatalog) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// Target returns a copy of the committed target.
func (m *MemoryCatalog) Target() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target.Clone()
}

func (m *MemoryCatalog) Begin(ctx context.Context) (UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	failures := make(map[string]error, len(m.failures))
	for k, v := range m.failures {
		failures[k] = v
	}
	return &memoryUnit{
		catalog: m,
		source:  &memorySource{data: m.source.Clone()},
		target:  &memoryTarget{data: m.target.Clone(), failures: failures},
	}, nil
}

type memoryUnit struct {
	catalog *MemoryCatalog
	source  *memorySource
	target  *memoryTarget
	done    bool
}

func (u *memoryUnit) Source() SourceReader { return u.source }
func (u *memoryUnit) Target() TargetStore  { return u.target }

func (u *memoryUnit) Commit() error {
	if u.done {
		return ErrTxDone
	}
	u.done = true
	u.catalog.mu.Lock()
	defer u.catalog.mu.Unlock()
	u.catalog.target = u.target.data.Clone()
	return nil
}

func (u *memoryUnit) Rollback() error {
	if u.done {
		return ErrTxDone
	}
	u.done = true
	return nil
}

type memorySource struct {
	data Snapshot
}

func (s *memorySource) Connections(ctx context.Context) ([]model.Connection, error) {
	return append([]model.Connection(nil), s.data.Connections...), ctx.Err()
}

func (s *memorySource) TimeParams(ctx context.Context) ([]model.TimeParam, error) {
	return append([]model.TimeParam(nil), s.data.TimeParams...), ctx.Err()
}

func (s *memorySource) SourceTables(ctx context.Context) ([]model.SourceTable, error) {
	out := make([]model.SourceTable, 0, len(s.data.Configs))
	for _, c := range s.data.Configs {
		out = append(out, model.SourceTable{ID: c.ID, TableName: c.TableName})
	}
	return out, ctx.Err()
}

func (s *memorySource) MaxCreateID(ctx context.Context) (int64, error) {
	return maxCreateID(s.data.Creates), ctx.Err()
}

func (s *memorySource) PipelineRows(ctx context.Context, filter HistoryFilter) ([]model.PipelineRow, error) {
	commands := make(map[int64]model.Command, len(s.data.Commands))
	for _, c := range s.data.Commands {
		commands[c.ID] = c
	}
	creates := make(map[int64]model.Create, len(s.data.Creates))
	for _, c := range s.data.Creates {
		creates[c.ID] = c
	}
	active := model.NewIDSet()
	for _, h := range s.data.History {
		if filter.Matches(h) {
			active.Add(h.TableID)
		}
	}

	var rows []model.PipelineRow
	for _, cfg := range s.data.Configs {
		if filter.Enabled && !active.Has(cfg.ID) {
			continue
		}
		if !cfg.CommandID.Valid {
			continue
		}
		cmd, ok := commands[cfg.CommandID.Int64]
		if !ok {
			continue
		}
		row := model.PipelineRow{
			ConfigID:        cfg.ID,
			CommandID:       cmd.ID,
			CreateID:        cfg.CreateID,
			TableName:       cfg.TableName,
			LocationPath:    cfg.LocationPath,
			Source:          cfg.Source,
			Description:     cfg.Description,
			ImportType:      cfg.ImportType,
			ConnectionID:    cmd.ConnectionID,
			FetchSize:       cmd.FetchSize,
			UsePartition:    cmd.UsePartition,
			NumFields:       cmd.NumFields,
			NumExes:         cmd.NumExes,
			NumParts:        cmd.NumParts,
			CommandDesc:     cmd.Description,
			UseSubpartition: cmd.UseSubpartition,
			Params:          cmd.Params,
			DBID:            cmd.DBID,
			SplitColumn:     cmd.SplitColumn,
			CommandSQL:      cmd.SQLCommand,
		}
		if crt, ok := creates[cfg.CreateID.Int64]; ok && cfg.CreateID.Valid {
			row.CreateConnectionID = crt.ConnectionID
			row.CreateDesc = crt.Description
			row.CreateSQL = crt.SQLCommand
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ConfigID < rows[j].ConfigID })
	return rows, ctx.Err()
}

type memoryTarget struct {
	data     Snapshot
	failures map[string]error
}

func (t *memoryTarget) fail(op string, table ...model.Table) error {
	if len(table) > 0 {
		op += ":" + table[0].Name
	}
	return t.failures[op]
}

func (t *memoryTarget) Connections(ctx context.Context) ([]model.Connection, error) {
	return append([]model.Connection(nil), t.data.Connections...), ctx.Err()
}

func (t *memoryTarget) TimeParams(ctx context.Context) ([]model.TimeParam, error) {
	return append([]model.TimeParam(nil), t.data.TimeParams...), ctx.Err()
}

func (t *memoryTarget) Commands(ctx context.Context) ([]model.Command, error) {
	return append([]model.Command(nil), t.data.Commands...), ctx.Err()
}

func (t *memoryTarget) Configs(ctx context.Context) ([]model.Config, error) {
	return append([]model.Config(nil), t.data.Configs...), ctx.Err()
}

func (t *memoryTarget) Creates(ctx context.Context) ([]model.Create, error) {
	return append([]model.Create(nil), t.data.Creates...), ctx.Err()
}

func (t *memoryTarget) MaxCreateID(ctx context.Context) (int64, error) {
	return maxCreateID(t.data.Creates), ctx.Err()
}

func (t *memoryTarget) InsertBatch(ctx context.Context, table model.Table, rows []model.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := t.fail("InsertBatch", table); err != nil {
		return 0, err
	}

	for i, row := range rows {
		if err := t.insert(table, row); err != nil {
			return i, fmt.Errorf("insert into %s: %w", table.Name, err)
		}
	}
	return len(rows), nil
}

func (t *memoryTarget) insert(table model.Table, row model.Record) error {
	switch r := row.(type) {
	case model.Connection:
		if table.Name != model.ConnectionTable.Name {
			break
		}
		for _, c := range t.data.Connections {
			if c.ID == r.ID {
				return fmt.Errorf("%w: %d", ErrDuplicateKey, r.ID)
			}
		}
		t.data.Connections = append(t.data.Connections, r)
		return nil
	case model.TimeParam:
		if table.Name != model.TimeParamTable.Name {
			break
		}
		for _, p := range t.data.TimeParams {
			if p.Name == r.Name {
				return fmt.Errorf("%w: %s", ErrDuplicateKey, r.Name)
			}
		}
		t.data.TimeParams = append(t.data.TimeParams, r)
		return nil
	case model.Command:
		if table.Name != model.CommandTable.Name {
			break
		}
		for _, c := range t.data.Commands {
			if c.ID == r.ID {
				return fmt.Errorf("%w: %d", ErrDuplicateKey, r.ID)
			}
		}
		t.data.Commands = append(t.data.Commands, r)
		return nil
	case model.Config:
		if table.Name != model.ConfigTable.Name {
			break
		}
		for _, c := range t.data.Configs {
			if c.ID == r.ID {
				return fmt.Errorf("%w: %d", ErrDuplicateKey, r.ID)
			}
		}
		t.data.Configs = append(t.data.Configs, r)
		return nil
	case model.Create:
		if table.Name != model.CreateTable.Name {
			break
		}
		for _, c := range t.data.Creates {
			if c.ID == r.ID {
				return fmt.Errorf("%w: %d", ErrDuplicateKey, r.ID)
			}
		}
		t.data.Creates = append(t.data.Creates, r)
		return nil
	case model.Clean:
		if table.Name != model.CleanTable.Name {
			break
		}
		t.data.Cleans = append(t.data.Cleans, r)
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnexpectedRecord, row)
}

func (t *memoryTarget) DeleteByIDs(ctx context.Context, table model.Table, ids []int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := t.fail("DeleteByIDs", table); err != nil {
		return 0, err
	}

	drop := model.NewIDSet(ids...)
	var before, after int
	switch table.Name {
	case model.ConnectionTable.Name:
		before = len(t.data.Connections)
		t.data.Connections = filter(t.data.Connections, func(c model.Connection) bool { return !drop.Has(c.ID) })
		after = len(t.data.Connections)
	case model.CommandTable.Name:
		before = len(t.data.Commands)
		t.data.Commands = filter(t.data.Commands, func(c model.Command) bool { return !drop.Has(c.ID) })
		after = len(t.data.Commands)
	case model.ConfigTable.Name:
		before = len(t.data.Configs)
		t.data.Configs = filter(t.data.Configs, func(c model.Config) bool { return !drop.Has(c.ID) })
		after = len(t.data.Configs)
	case model.CreateTable.Name:
		before = len(t.data.Creates)
		t.data.Creates = filter(t.data.Creates, func(c model.Create) bool { return !drop.Has(c.ID) })
		after = len(t.data.Creates)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedTable, table.Name)
	}
	return int64(before - after), nil
}

func (t *memoryTarget) Truncate(ctx context.Context, table model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.fail("Truncate", table); err != nil {
		return err
	}
	switch table.Name {
	case model.CleanTable.Name:
		t.data.Cleans = nil
	case model.TimeParamTable.Name:
		t.data.TimeParams = nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTable, table.Name)
	}
	return nil
}

func (t *memoryTarget) UpdateConnectionDisplay(ctx context.Context, id int64, name, driver sql.NullString) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.fail("UpdateConnectionDisplay"); err != nil {
		return err
	}
	for i := range t.data.Connections {
		if t.data.Connections[i].ID == id {
			t.data.Connections[i].ConnectionName = name
			t.data.Connections[i].DriverName = driver
		}
	}
	return nil
}

func (t *memoryTarget) LinkCleanToDropCommands(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := t.fail("LinkCleanToDropCommands"); err != nil {
		return 0, err
	}

	smallest := make(map[string]int64)
	for _, c := range t.data.Creates {
		if !c.Description.Valid || !strings.HasPrefix(c.SQLCommand.String, "ALTER TABLE") {
			continue
		}
		if id, ok := smallest[c.Description.String]; !ok || c.ID < id {
			smallest[c.Description.String] = c.ID
		}
	}

	var linked int64
	for i := range t.data.Cleans {
		cl := &t.data.Cleans[i]
		if cl.CreateID.Valid || !cl.Description.Valid {
			continue
		}
		if id, ok := smallest[cl.Description.String]; ok {
			cl.CreateID = model.Int64(id)
			linked++
		}
	}
	return linked, nil
}

func maxCreateID(creates []model.Create) int64 {
	var max int64
	for _, c := range creates {
		if c.ID > max {
			max = c.ID
		}
	}
	return max
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
