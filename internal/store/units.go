package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// UnitCache maps unit names to stored units. It only holds committed rows:
// a transaction publishes the units it read or created when it commits.
// The base unit of each measurable type is loaded when the store opens.
type UnitCache struct {
	mu    sync.RWMutex
	units map[string]Unit
	base  map[UnitType]Unit
}

func newUnitCache() *UnitCache {
	return &UnitCache{units: make(map[string]Unit), base: make(map[UnitType]Unit)}
}

// Get returns the cached unit with the given name.
func (c *UnitCache) Get(name string) (Unit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.units[name]
	return u, ok
}

// BaseUnit returns the unit that units of type t are measured against:
// gram for mass, millilitre for volume, the empty unit for quantities and
// the group pseudo unit for group headers. Unspecific units have none.
func (c *UnitCache) BaseUnit(t UnitType) (Unit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.base[t]
	return u, ok
}

// Len returns the number of cached units.
func (c *UnitCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.units)
}

func (c *UnitCache) put(u Unit) {
	c.mu.Lock()
	c.units[u.Name] = u
	if name, ok := baseUnitName(u.Type); ok && name == u.Name {
		c.base[u.Type] = u
	}
	c.mu.Unlock()
}

// baseUnitName names the base unit of t.
func baseUnitName(t UnitType) (string, bool) {
	switch t {
	case UnitQuantity:
		return "", true
	case UnitMass:
		return "mass-gram", true
	case UnitVolume:
		return "volume-milliliter", true
	case UnitGroup:
		return GroupUnit, true
	default:
		return "", false
	}
}

// loadBaseUnits fills the cache with every base unit. They are part of the
// schema, so a missing one means the database was not created by larder.
func (s *Store) loadBaseUnits(ctx context.Context) error {
	for _, t := range []UnitType{UnitQuantity, UnitMass, UnitVolume, UnitGroup} {
		name, _ := baseUnitName(t)
		u, err := queryUnit(ctx, s.db, name)
		if err != nil {
			return fmt.Errorf("store: load base units: %w", err)
		}
		if u.Type != t {
			return fmt.Errorf("store: base unit %q has type %d, want %d", name, u.Type, t)
		}
		s.units.put(u)
	}
	return nil
}

// Unit returns the unit with the given name, reading through the cache.
func (s *Store) Unit(ctx context.Context, name string) (Unit, error) {
	if u, ok := s.units.Get(name); ok {
		return u, nil
	}
	u, err := queryUnit(ctx, s.db, name)
	if err != nil {
		return Unit{}, err
	}
	s.units.put(u)
	return u, nil
}

// Unit returns the unit with the given name as seen by the transaction.
func (t *Tx) Unit(ctx context.Context, name string) (Unit, error) {
	if u, ok := t.pendingUnit(name); ok {
		return u, nil
	}
	if u, ok := t.store.units.Get(name); ok {
		return u, nil
	}
	u, err := queryUnit(ctx, t.tx, name)
	if err != nil {
		return Unit{}, err
	}
	t.newUnits = append(t.newUnits, u)
	return u, nil
}

// entryUnit resolves the unit an entry is stored with. Groups carry the
// group base unit and an empty name is the quantity base unit. Other names
// the store has not seen become new unspecific units.
func (t *Tx) entryUnit(ctx context.Context, e NewEntry) (Unit, error) {
	switch {
	case e.Group:
		return t.baseUnit(UnitGroup)
	case e.Unit == "":
		return t.baseUnit(UnitQuantity)
	}

	u, err := t.Unit(ctx, e.Unit)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Unit{}, err
	}

	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO ingredient_unit (name, type_, cldr) VALUES (?, ?, 0)", e.Unit, UnitUnspecific)
	if err != nil {
		return Unit{}, fmt.Errorf("store: insert unit %q: %w", e.Unit, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Unit{}, fmt.Errorf("store: insert unit %q: %w", e.Unit, err)
	}
	u = Unit{ID: id, Name: e.Unit, Type: UnitUnspecific}
	t.newUnits = append(t.newUnits, u)
	t.store.log.Debug("unit created", "name", e.Unit, "id", id)
	return u, nil
}

func (t *Tx) baseUnit(typ UnitType) (Unit, error) {
	u, ok := t.store.units.BaseUnit(typ)
	if !ok {
		return Unit{}, fmt.Errorf("store: base unit of type %d: %w", typ, ErrNotFound)
	}
	return u, nil
}

func (t *Tx) pendingUnit(name string) (Unit, bool) {
	for _, u := range t.newUnits {
		if u.Name == name {
			return u, true
		}
	}
	return Unit{}, false
}

func queryUnit(ctx context.Context, q queryer, name string) (Unit, error) {
	var (
		u      Unit
		cldr   int
		factor sql.NullFloat64
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, name, type_, cldr, factor FROM ingredient_unit WHERE name = ?", name).
		Scan(&u.ID, &u.Name, &u.Type, &cldr, &factor)
	if errors.Is(err, sql.ErrNoRows) {
		return Unit{}, fmt.Errorf("store: unit %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Unit{}, fmt.Errorf("store: query unit %q: %w", name, err)
	}
	u.CLDR = cldr != 0
	u.Factor = floatPtr(factor)
	return u, nil
}
