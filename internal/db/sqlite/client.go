package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/ngmod/internal/db"
	errs "github.com/iamwavecut/ngmod/internal/errors"
	"github.com/iamwavecut/ngmod/internal/infra"
	"github.com/iamwavecut/ngmod/resources"
)

// Every BEGIN takes the write lock up front so read-modify-write sequences cannot interleave,
// and writers wait for each other instead of failing with SQLITE_BUSY.
const dsnOptions = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate&_time_format=sqlite"

type sqliteClient struct {
	db    *sqlx.DB
	locks *keyLock
}

var _ db.Client = (*sqliteClient)(nil)

// NewSQLiteClient opens (creating if needed) dir/dbFile and applies pending migrations.
func NewSQLiteClient(ctx context.Context, dir, dbFile string) (*sqliteClient, error) {
	workDir, err := infra.GetWorkDir(dir)
	if err != nil {
		return nil, err
	}
	dbx, err := sqlx.Open("sqlite", filepath.Join(workDir, dbFile)+dsnOptions)
	if err != nil {
		return nil, errs.Storage("open db", err)
	}
	dbx.SetMaxOpenConns(16)

	if err := dbx.PingContext(ctx); err != nil {
		_ = dbx.Close()
		return nil, errs.Storage("ping db", err)
	}

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		_ = dbx.Close()
		return nil, errs.Storage("migrate up", err)
	}
	if n > 0 {
		log.WithField("path", filepath.Join(workDir, dbFile)).Infof("applied %d migrations!", n)
	}

	return &sqliteClient{db: dbx, locks: newKeyLock()}, nil
}

func (c *sqliteClient) Ping(ctx context.Context) error {
	return errs.Storage("ping", c.db.PingContext(ctx))
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}

// withTx commits when fn returns nil and rolls back otherwise, including on panic.
func (c *sqliteClient) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Storage(op+": begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.WithError(rbErr).WithField("op", op).Error("failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = errs.Storage(op+": commit", commitErr)
		}
	}()

	return fn(tx)
}

func memberNotFound(key db.MemberKey) error {
	return errs.NotFound("member %d in chat %d", key.UserID, key.ChatID)
}
