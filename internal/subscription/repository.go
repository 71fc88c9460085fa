package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOrderNotFound indicates no order matches the given identifier.
var ErrOrderNotFound = errors.New("order not found")

// Repository persists payment orders.
type Repository interface {
	Create(ctx context.Context, order Order) error
	Get(ctx context.Context, id string) (Order, error)
	Update(ctx context.Context, order Order) error
}

// PostgresRepository stores orders in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an order record.
func (r *PostgresRepository) Create(ctx context.Context, order Order) error {
	orderID, err := uuid.Parse(order.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(order.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO payment_orders (id, user_id, amount, provider, reference, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		orderID, userID, order.Amount, order.Provider, order.Reference, order.Status, order.CreatedAt.UTC())
	return err
}

// Get fetches an order by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return Order{}, ErrOrderNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, user_id, amount, provider, reference, status, created_at
		FROM payment_orders WHERE id = $1`, orderID)

	var (
		o         Order
		oid, uid  uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&oid, &uid, &o.Amount, &o.Provider, &o.Reference, &o.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	o.ID = oid.String()
	o.UserID = uid.String()
	o.CreatedAt = createdAt.UTC()
	return o, nil
}

// Update stores the order's reference and status.
func (r *PostgresRepository) Update(ctx context.Context, order Order) error {
	orderID, err := uuid.Parse(order.ID)
	if err != nil {
		return ErrOrderNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE payment_orders SET reference = $2, status = $3 WHERE id = $1`,
		orderID, order.Reference, order.Status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

type memoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewMemoryRepository builds an in-memory order store for dev and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{orders: make(map[string]Order)}
}

func (r *memoryRepository) Create(_ context.Context, order Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (r *memoryRepository) Update(_ context.Context, order Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return ErrOrderNotFound
	}
	r.orders[order.ID] = order
	return nil
}
