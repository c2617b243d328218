package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/devlongs/cosmos-backrunner/pkg/types"
)

// Store persists a snapshot of the pool catalog between runs so the bot
// starts from the last known reserves instead of an empty registry.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenStore opens (and initializes if needed) the sqlite catalog at path.
func OpenStore(path string) (*Store, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool store: %w", err)
	}

	// Single connection keeps the driver from fighting itself over the
	// write lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	const createTables = `
CREATE TABLE IF NOT EXISTS pools (
	address TEXT PRIMARY KEY,
	protocol TEXT NOT NULL,
	token1_denom TEXT NOT NULL,
	token2_denom TEXT NOT NULL,
	token1_reserves TEXT NOT NULL,
	token2_reserves TEXT NOT NULL,
	lp_fee REAL NOT NULL,
	protocol_fee REAL NOT NULL,
	fee_from_input INTEGER NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS routes (
	pool_address TEXT PRIMARY KEY,
	triples TEXT NOT NULL
);`

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(createTables)
	return err
}

// Save writes the registry snapshot, replacing whatever was stored before.
func (s *Store) Save(ctx context.Context, r *Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save pool store: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pools`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM routes`); err != nil {
		return err
	}

	const insertPool = `
INSERT INTO pools (address, protocol, token1_denom, token2_denom,
	token1_reserves, token2_reserves, lp_fee, protocol_fee, fee_from_input, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);`

	for _, p := range r.Pools() {
		feeFromInput := 0
		if p.FeeFromInput {
			feeFromInput = 1
		}
		_, err := tx.ExecContext(ctx, insertPool,
			p.Address, string(p.Protocol), p.Token1Denom, p.Token2Denom,
			p.Token1Reserves.String(), p.Token2Reserves.String(),
			p.LPFee, p.ProtocolFee, feeFromInput)
		if err != nil {
			return fmt.Errorf("save pool %s: %w", p.Address, err)
		}
	}

	const insertRoutes = `INSERT INTO routes (pool_address, triples) VALUES (?, ?);`

	for _, p := range r.Pools() {
		triples := r.RoutesFor(p.Address)
		if len(triples) == 0 {
			continue
		}
		doc, err := json.Marshal(triples)
		if err != nil {
			return fmt.Errorf("save routes for %s: %w", p.Address, err)
		}
		if _, err := tx.ExecContext(ctx, insertRoutes, p.Address, string(doc)); err != nil {
			return fmt.Errorf("save routes for %s: %w", p.Address, err)
		}
	}

	return tx.Commit()
}

// Load reads the stored catalog back into a fresh registry. An empty
// database yields an empty registry, not an error.
func (s *Store) Load(ctx context.Context) (*Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const selectPools = `
SELECT address, protocol, token1_denom, token2_denom,
	token1_reserves, token2_reserves, lp_fee, protocol_fee, fee_from_input
FROM pools;`

	rows, err := s.db.QueryContext(ctx, selectPools)
	if err != nil {
		return nil, fmt.Errorf("load pool store: %w", err)
	}
	defer rows.Close()

	reg := New()
	for rows.Next() {
		var (
			p            types.Pool
			protocol     string
			reserves1    string
			reserves2    string
			feeFromInput int
		)
		if err := rows.Scan(&p.Address, &protocol, &p.Token1Denom, &p.Token2Denom,
			&reserves1, &reserves2, &p.LPFee, &p.ProtocolFee, &feeFromInput); err != nil {
			return nil, fmt.Errorf("load pool store: %w", err)
		}
		p.Protocol = types.Protocol(protocol)
		var ok bool
		if p.Token1Reserves, ok = new(big.Int).SetString(reserves1, 10); !ok {
			return nil, fmt.Errorf("load pool %s: bad token1 reserves %q", p.Address, reserves1)
		}
		if p.Token2Reserves, ok = new(big.Int).SetString(reserves2, 10); !ok {
			return nil, fmt.Errorf("load pool %s: bad token2 reserves %q", p.Address, reserves2)
		}
		p.FeeFromInput = feeFromInput != 0
		pool := p
		reg.Add(&pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load pool store: %w", err)
	}

	const selectRoutes = `SELECT pool_address, triples FROM routes;`

	routeRows, err := s.db.QueryContext(ctx, selectRoutes)
	if err != nil {
		return nil, fmt.Errorf("load pool store: %w", err)
	}
	defer routeRows.Close()

	for routeRows.Next() {
		var address, doc string
		if err := routeRows.Scan(&address, &doc); err != nil {
			return nil, fmt.Errorf("load pool store: %w", err)
		}
		var triples [][3]string
		if err := json.Unmarshal([]byte(doc), &triples); err != nil {
			return nil, fmt.Errorf("load routes for %s: %w", address, err)
		}
		reg.setRoutes(address, triples)
	}
	if err := routeRows.Err(); err != nil {
		return nil, fmt.Errorf("load pool store: %w", err)
	}

	return reg, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
