package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"catalog-sync/internal/database/drivers"
)

var schemaName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#]*$`)

// Schemas names the source and target catalog schemas.
type Schemas struct {
	Source string
	Target string
}

type sqlCatalog struct {
	db        *sql.DB
	dialect   drivers.Dialect
	schemas   Schemas
	batchSize int
}

// NewSQLCatalog creates a Catalog over db. batchSize bounds IN lists of deletes; the
// dialect limit applies when it is smaller.
func NewSQLCatalog(db *sql.DB, dialect drivers.Dialect, schemas Schemas, batchSize int) (Catalog, error) {
	for _, s := range []string{schemas.Source, schemas.Target} {
		if !schemaName.MatchString(s) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchema, s)
		}
	}
	if batchSize <= 0 || batchSize > dialect.MaxInListSize() {
		batchSize = dialect.MaxInListSize()
	}
	return &sqlCatalog{db: db, dialect: dialect, schemas: schemas, batchSize: batchSize}, nil
}

func (c *sqlCatalog) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlUnit{
		tx: tx,
		source: &sqlSource{
			query: query{tx: tx, dialect: c.dialect, schema: c.schemas.Source},
		},
		target: &sqlTarget{
			query:     query{tx: tx, dialect: c.dialect, schema: c.schemas.Target},
			batchSize: c.batchSize,
		},
	}, nil
}

type sqlUnit struct {
	tx     *sql.Tx
	source *sqlSource
	target *sqlTarget
}

func (u *sqlUnit) Source() SourceReader { return u.source }
func (u *sqlUnit) Target() TargetStore  { return u.target }

func (u *sqlUnit) Commit() error {
	if err := u.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

func (u *sqlUnit) Rollback() error {
	if err := u.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return err
	}
	return nil
}
