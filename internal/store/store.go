package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"estate-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an existing connection. Used by tests with sqlmock.
func NewStoreFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetPropertyByID retrieves a listed property by ID
func (s *Store) GetPropertyByID(ctx context.Context, id int64) (*models.Property, error) {
	var property models.Property
	err := s.db.GetContext(ctx, &property,
		"SELECT id, name, location, price FROM properties WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// GetApartmentByID retrieves an apartment building by ID
func (s *Store) GetApartmentByID(ctx context.Context, id int64) (*models.Apartment, error) {
	var apartment models.Apartment
	err := s.db.GetContext(ctx, &apartment,
		"SELECT id, name, location FROM apartments WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("apartment %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &apartment, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT id, first_name, last_name, email FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUnitByID retrieves a unit regardless of status
func (s *Store) GetUnitByID(ctx context.Context, id int64) (*models.ApartmentUnit, error) {
	var unit models.ApartmentUnit
	err := s.db.GetContext(ctx, &unit,
		"SELECT * FROM apartment_units WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unit %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// GetApartmentUnits retrieves all units of an apartment, ordered by floor
// then unit number
func (s *Store) GetApartmentUnits(ctx context.Context, apartmentID int64) ([]models.ApartmentUnit, error) {
	var units []models.ApartmentUnit
	err := s.db.SelectContext(ctx, &units,
		"SELECT * FROM apartment_units WHERE apartment_id = $1 ORDER BY floor_number, unit_number",
		apartmentID)
	return units, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
