package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// batchSize bounds a single multi-row INSERT issued by saveMany.
const batchSize = 100

// unitOfWork holds one leased connection and the transaction currently open
// on it. Both session modes drive the same unitOfWork, which is what keeps
// their observable behaviour identical. It is not safe for concurrent use.
type unitOfWork struct {
	conn    *gorm.DB // pinned to a single *sql.Conn
	tx      *gorm.DB // nil until the first operation after acquire or commit
	aborted error
	closed  bool
}

func newUnitOfWork(conn *gorm.DB) *unitOfWork {
	return &unitOfWork{conn: conn}
}

func (u *unitOfWork) usable() error {
	if u.closed {
		return ErrSessionClosed
	}
	if u.aborted != nil {
		return fmt.Errorf("%w: %v", ErrSessionAborted, u.aborted)
	}
	return nil
}

func (u *unitOfWork) begin() (*gorm.DB, error) {
	if u.tx != nil {
		return u.tx, nil
	}
	tx := u.conn.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	u.tx = tx
	return tx, nil
}

func (u *unitOfWork) commit() error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	return tx.Commit().Error
}

func (u *unitOfWork) rollback() error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	err := tx.Rollback().Error
	if errors.Is(err, gorm.ErrInvalidTransaction) || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// abort rolls back unconditionally and poisons the unit of work.
func (u *unitOfWork) abort(cause error) error {
	u.aborted = cause
	if rbErr := u.rollback(); rbErr != nil {
		return errors.Join(cause, fmt.Errorf("rollback: %w", rbErr))
	}
	return cause
}

func (u *unitOfWork) fetchOne(ctx context.Context, dest any, filter Filter) (bool, error) {
	if err := u.usable(); err != nil {
		return false, err
	}
	if err := requireStructPtr(dest); err != nil {
		return false, err
	}
	// A non-zero key left in dest would turn into an extra condition.
	reflect.ValueOf(dest).Elem().SetZero()
	q, err := u.query(ctx, dest, filter)
	if err != nil {
		return false, err
	}

	res := q.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}}).
		Limit(1).
		Find(dest)
	if res.Error != nil {
		return false, u.abort(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (u *unitOfWork) fetchMany(ctx context.Context, dest any, filter Filter) error {
	if err := u.usable(); err != nil {
		return err
	}
	if err := requireSlicePtr(dest); err != nil {
		return err
	}
	q, err := u.query(ctx, dest, filter)
	if err != nil {
		return err
	}
	err = q.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}}).
		Find(dest).Error
	if err != nil {
		return u.abort(err)
	}
	return nil
}

func (u *unitOfWork) query(ctx context.Context, dest any, filter Filter) (*gorm.DB, error) {
	s, err := parseSchema(u.conn, dest)
	if err != nil {
		return nil, err
	}
	conds, err := filter.columns(s)
	if err != nil {
		return nil, err
	}
	tx, err := u.begin()
	if err != nil {
		return nil, u.abort(err)
	}
	q := tx.WithContext(ctx).Model(dest)
	if len(conds) > 0 {
		q = q.Where(conds)
	}
	return q, nil
}

func (u *unitOfWork) save(ctx context.Context, entity any, refresh bool) error {
	if err := u.usable(); err != nil {
		return err
	}
	if err := requireStructPtr(entity); err != nil {
		return err
	}
	if err := u.checkNew(ctx, entity); err != nil {
		return err
	}

	tx, err := u.begin()
	if err != nil {
		return u.abort(err)
	}
	snap := takeSnapshot(entity)
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		snap.restore()
		return u.abort(err)
	}
	if err := u.commit(); err != nil {
		snap.restore()
		return u.abort(err)
	}
	if !refresh {
		return nil
	}

	tx, err = u.begin()
	if err != nil {
		return u.abort(err)
	}
	if err := tx.WithContext(ctx).First(entity).Error; err != nil {
		return u.abort(err)
	}
	return nil
}

func (u *unitOfWork) saveMany(ctx context.Context, entities []any) error {
	if err := u.usable(); err != nil {
		return err
	}
	for _, e := range entities {
		if err := requireStructPtr(e); err != nil {
			return opError("save_many", e, nil, entities, err)
		}
		if err := u.checkNew(ctx, e); err != nil {
			return opError("save_many", e, nil, entities, err)
		}
	}
	if len(entities) == 0 {
		return nil
	}

	tx, err := u.begin()
	if err != nil {
		return u.abort(err)
	}
	snap := takeSnapshot(entities...)
	for _, run := range groupByType(entities) {
		if err := tx.WithContext(ctx).Omit(clause.Associations).CreateInBatches(run, batchSize).Error; err != nil {
			snap.restore()
			return opError("save_many", run, nil, entities, u.abort(err))
		}
	}
	if err := u.commit(); err != nil {
		snap.restore()
		return u.abort(err)
	}
	return nil
}

// snapshot keeps copies of entities taken before an insert. Restoring it
// clears the keys and timestamps a rolled back INSERT wrote into them.
type snapshot []entityCopy

type entityCopy struct {
	target reflect.Value
	saved  reflect.Value
}

func takeSnapshot(entities ...any) snapshot {
	snap := make(snapshot, 0, len(entities))
	for _, e := range entities {
		target := reflect.ValueOf(e).Elem()
		saved := reflect.New(target.Type()).Elem()
		saved.Set(target)
		snap = append(snap, entityCopy{target: target, saved: saved})
	}
	return snap
}

func (s snapshot) restore() {
	for _, c := range s {
		c.target.Set(c.saved)
	}
}

// checkNew rejects entities whose primary key is already set.
func (u *unitOfWork) checkNew(ctx context.Context, entity any) error {
	s, err := parseSchema(u.conn, entity)
	if err != nil {
		return err
	}
	rv := reflect.Indirect(reflect.ValueOf(entity))
	for _, pk := range s.PrimaryFields {
		if value, zero := pk.ValueOf(ctx, rv); !zero {
			return fmt.Errorf("%w: %s.%s = %v", ErrIdentityAssigned, s.Name, pk.Name, value)
		}
	}
	return nil
}

// release ends the unit of work, rolling back anything left uncommitted.
func (u *unitOfWork) release() error {
	if u.closed {
		return nil
	}
	u.closed = true
	return u.rollback()
}

// groupByType splits entities into runs of consecutive same-typed pointers,
// each returned as a typed slice gorm can insert in one statement.
func groupByType(entities []any) []any {
	var (
		runs []any
		cur  reflect.Value
	)
	for _, e := range entities {
		v := reflect.ValueOf(e)
		if !cur.IsValid() || cur.Type().Elem() != v.Type() {
			if cur.IsValid() {
				runs = append(runs, cur.Interface())
			}
			cur = reflect.MakeSlice(reflect.SliceOf(v.Type()), 0, 1)
		}
		cur = reflect.Append(cur, v)
	}
	if cur.IsValid() {
		runs = append(runs, cur.Interface())
	}
	return runs
}

func requireStructPtr(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: want pointer to struct, got %T", ErrInvalidEntity, v)
	}
	return nil
}

func requireSlicePtr(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%w: want pointer to slice, got %T", ErrInvalidEntity, v)
	}
	return nil
}
