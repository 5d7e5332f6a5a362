package database

import "context"

// Store is the generic persistence contract. Implementations differ only in
// how they wait on I/O; results, errors and transaction boundaries match.
type Store interface {
	// FetchOne loads the first entity matching filter, by primary key, into
	// dest (a pointer to an entity). It reports false on a miss.
	FetchOne(ctx context.Context, s Session, dest any, filter Filter) (bool, error)
	// FetchMany loads every entity matching filter into dest (a pointer to a
	// slice of entities), ordered by primary key.
	FetchMany(ctx context.Context, s Session, dest any, filter Filter) error
	// Save inserts entity and commits. With refresh set, store-assigned
	// fields are read back into entity after the commit.
	Save(ctx context.Context, s Session, entity any, refresh bool) error
	// SaveMany inserts entities in a single transaction without refreshing them.
	SaveMany(ctx context.Context, s Session, entities ...any) error
	Mode() Mode
}

// BlockingStore runs every operation on the calling goroutine.
type BlockingStore struct{}

// NonBlockingStore hands every operation to the session's owner goroutine
// and suspends the caller until it completes or the context ends.
type NonBlockingStore struct{}

var (
	_ Store = BlockingStore{}
	_ Store = NonBlockingStore{}
)

// NewStore returns the Store implementation for mode.
func NewStore(mode Mode) Store {
	if mode == ModeNonBlocking {
		return NonBlockingStore{}
	}
	return BlockingStore{}
}

func (BlockingStore) Mode() Mode { return ModeBlocking }

func (BlockingStore) session(op string, s Session, target any) (*unitOfWork, error) {
	bs, ok := s.(*blockingSession)
	if !ok || bs == nil {
		return nil, &OpError{Op: op, Entity: typeName(target), Kind: ErrModeMismatch, Err: mismatch(ModeBlocking, s)}
	}
	return bs.uow, nil
}

func (b BlockingStore) FetchOne(ctx context.Context, s Session, dest any, filter Filter) (bool, error) {
	u, err := b.session("fetch_one", s, dest)
	if err != nil {
		return false, err
	}
	found, err := u.fetchOne(ctx, dest, filter)
	if err != nil {
		return false, opError("fetch_one", dest, filter, nil, err)
	}
	return found, nil
}

func (b BlockingStore) FetchMany(ctx context.Context, s Session, dest any, filter Filter) error {
	u, err := b.session("fetch_many", s, dest)
	if err != nil {
		return err
	}
	if err := u.fetchMany(ctx, dest, filter); err != nil {
		return opError("fetch_many", dest, filter, nil, err)
	}
	return nil
}

func (b BlockingStore) Save(ctx context.Context, s Session, entity any, refresh bool) error {
	u, err := b.session("save", s, entity)
	if err != nil {
		return err
	}
	if err := u.save(ctx, entity, refresh); err != nil {
		return opError("save", entity, nil, entity, err)
	}
	return nil
}

func (b BlockingStore) SaveMany(ctx context.Context, s Session, entities ...any) error {
	u, err := b.session("save_many", s, firstOf(entities))
	if err != nil {
		return err
	}
	if err := u.saveMany(ctx, entities); err != nil {
		return opError("save_many", firstOf(entities), nil, entities, err)
	}
	return nil
}

func (NonBlockingStore) Mode() Mode { return ModeNonBlocking }

func (NonBlockingStore) session(op string, s Session, target any) (*nonBlockingSession, error) {
	ns, ok := s.(*nonBlockingSession)
	if !ok || ns == nil {
		return nil, &OpError{Op: op, Entity: typeName(target), Kind: ErrModeMismatch, Err: mismatch(ModeNonBlocking, s)}
	}
	return ns, nil
}

func (n NonBlockingStore) FetchOne(ctx context.Context, s Session, dest any, filter Filter) (bool, error) {
	ns, err := n.session("fetch_one", s, dest)
	if err != nil {
		return false, err
	}
	var found bool
	err = ns.await(ctx, func(ctx context.Context, u *unitOfWork) error {
		var ferr error
		found, ferr = u.fetchOne(ctx, dest, filter)
		return ferr
	})
	if err != nil {
		return false, opError("fetch_one", dest, filter, nil, err)
	}
	return found, nil
}

func (n NonBlockingStore) FetchMany(ctx context.Context, s Session, dest any, filter Filter) error {
	ns, err := n.session("fetch_many", s, dest)
	if err != nil {
		return err
	}
	err = ns.await(ctx, func(ctx context.Context, u *unitOfWork) error {
		return u.fetchMany(ctx, dest, filter)
	})
	if err != nil {
		return opError("fetch_many", dest, filter, nil, err)
	}
	return nil
}

func (n NonBlockingStore) Save(ctx context.Context, s Session, entity any, refresh bool) error {
	ns, err := n.session("save", s, entity)
	if err != nil {
		return err
	}
	err = ns.await(ctx, func(ctx context.Context, u *unitOfWork) error {
		return u.save(ctx, entity, refresh)
	})
	if err != nil {
		return opError("save", entity, nil, entity, err)
	}
	return nil
}

func (n NonBlockingStore) SaveMany(ctx context.Context, s Session, entities ...any) error {
	ns, err := n.session("save_many", s, firstOf(entities))
	if err != nil {
		return err
	}
	err = ns.await(ctx, func(ctx context.Context, u *unitOfWork) error {
		return u.saveMany(ctx, entities)
	})
	if err != nil {
		return opError("save_many", firstOf(entities), nil, entities, err)
	}
	return nil
}

func mismatch(want Mode, s Session) error {
	if s == nil {
		return ErrSessionClosed
	}
	return &modeError{want: want, got: s.Mode()}
}

type modeError struct {
	want, got Mode
}

func (e *modeError) Error() string {
	return e.want.String() + " store received a " + e.got.String() + " session"
}

func firstOf(entities []any) any {
	if len(entities) == 0 {
		return nil
	}
	return entities[0]
}

// FetchOne is the typed form of Store.FetchOne; it returns nil on a miss.
func FetchOne[T any](ctx context.Context, store Store, s Session, filter Filter) (*T, error) {
	dest := new(T)
	found, err := store.FetchOne(ctx, s, dest, filter)
	if err != nil || !found {
		return nil, err
	}
	return dest, nil
}

// FetchMany is the typed form of Store.FetchMany.
func FetchMany[T any](ctx context.Context, store Store, s Session, filter Filter) ([]T, error) {
	var dest []T
	if err := store.FetchMany(ctx, s, &dest, filter); err != nil {
		return nil, err
	}
	return dest, nil
}

// Save is the typed form of Store.Save and returns the saved entity.
func Save[T any](ctx context.Context, store Store, s Session, entity *T, refresh bool) (*T, error) {
	if err := store.Save(ctx, s, entity, refresh); err != nil {
		return nil, err
	}
	return entity, nil
}

// SaveMany is the typed form of Store.SaveMany for a homogeneous batch.
func SaveMany[T any](ctx context.Context, store Store, s Session, entities []*T) error {
	batch := make([]any, len(entities))
	for i, e := range entities {
		batch[i] = e
	}
	return store.SaveMany(ctx, s, batch...)
}
