// Package store is the MongoDB persistence gateway. A Store is opened once at
// process start, handed to the repositories that need it and closed at
// shutdown.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
	"go.uber.org/zap"
)

// Collection names keep the legacy spelling the rest of the clinic stack uses.
const (
	CollReceptionists      = "receptionists"
	CollDoctors            = "doctors"
	CollAppointments       = "appointments"
	CollNotifications      = "Notification"
	CollPatientQueue       = "PatientQueue"
	CollLegacyPatientQueue = "PaitentQueue"
	CollSchedules          = "doctor_schedules"
	CollRejected           = "cancelled_appointments"
	CollOutbox             = "outbox_events"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrDuplicate   = errors.New("duplicate document")
	ErrConflict    = errors.New("document changed concurrently")
	ErrUnavailable = errors.New("store unavailable")
)

type Options struct {
	URI          string
	Database     string
	Timeout      time.Duration
	Transactions bool
}

type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	log          *zap.Logger

	indexMu  sync.RWMutex
	indexErr error
}

// Open connects and pings; a deployment that cannot be reached within
// opts.Timeout fails here rather than on the first request.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerSelectionTimeout(opts.Timeout).
		SetConnectTimeout(opts.Timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	s := &Store{
		client:       client,
		db:           client.Database(opts.Database),
		transactions: opts.Transactions,
		log:          log,
	}
	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("connected to MongoDB", zap.String("database", opts.Database), zap.Bool("transactions", opts.Transactions))
	return s, nil
}

// New wraps an existing database handle.
func New(db *mongo.Database, transactions bool, log *zap.Logger) *Store {
	return &Store{client: db.Client(), db: db, transactions: transactions, log: log}
}

func (s *Store) DB() *mongo.Database {
	return s.db
}

func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WithTransaction runs fn inside a multi-document transaction when the
// deployment supports them (replica set or sharded cluster). On a standalone
// server fn runs directly and its writes are applied one by one.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	session, err := s.client.StartSession()
	if err != nil {
		return mapErr(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the indexes the repositories rely on. It is safe to
// run on every start. Collections whose indexes fail do not stop the others;
// the combined failure is kept for IndexError.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	byCollection := map[string][]mongo.IndexModel{
		CollPatientQueue: {
			{Keys: bson.D{{Key: "appointmentKey", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_appointment_key")},
			{Keys: bson.D{{Key: "doctorId", Value: 1}}},
		},
		CollAppointments: {
			{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "appointmentDate", Value: 1}}},
		},
		CollSchedules: {
			{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_doctor_date")},
		},
		CollNotifications: {
			{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "sourceEventId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_source_event")},
		},
		CollRejected: {
			{Keys: bson.D{{Key: "originalAppointmentId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollReceptionists: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		CollOutbox: {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "nextAttemptAt", Value: 1}}},
		},
	}
	var errs []error
	for coll, indexes := range byCollection {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, indexes); err != nil {
			errs = append(errs, fmt.Errorf("create indexes on %s: %w", coll, mapErr(err)))
		}
	}
	err := errors.Join(errs...)

	s.indexMu.Lock()
	s.indexErr = err
	s.indexMu.Unlock()
	return err
}

// IndexError returns the failure of the last EnsureIndexes run, if any. A
// missing unique index means duplicate guards such as one queue entry per
// appointment key are not enforced.
func (s *Store) IndexError() error {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	return s.indexErr
}

// Counts reports the number of documents in each collection, for the health endpoint.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, name := range []string{CollReceptionists, CollDoctors, CollAppointments, CollNotifications, CollPatientQueue, CollSchedules} {
		n, err := s.db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		counts[name] = n
	}
	return counts, nil
}

func (s *Store) Appointments() *AppointmentRepository {
	return &AppointmentRepository{coll: s.Collection(CollAppointments), rejected: s.Collection(CollRejected), log: s.logger()}
}

func (s *Store) Queue() *QueueRepository {
	return &QueueRepository{coll: s.Collection(CollPatientQueue), legacy: s.Collection(CollLegacyPatientQueue), log: s.logger()}
}

func (s *Store) Schedules() *ScheduleRepository {
	return &ScheduleRepository{coll: s.Collection(CollSchedules), log: s.logger()}
}

func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{coll: s.Collection(CollNotifications), log: s.logger()}
}

func (s *Store) Receptionists() *ReceptionistRepository {
	return &ReceptionistRepository{coll: s.Collection(CollReceptionists)}
}

func (s *Store) Doctors() *DoctorRepository {
	return &DoctorRepository{coll: s.Collection(CollDoctors), log: s.logger()}
}

func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{coll: s.Collection(CollOutbox), log: s.logger()}
}

func (s *Store) logger() *zap.Logger {
	if s.log == nil {
		return zap.NewNop()
	}
	return s.log
}

// decodeEach drains cursor into a slice of T. A document that does not decode
// is logged and left out instead of failing the whole read.
func decodeEach[T any](ctx context.Context, cursor *mongo.Cursor, log *zap.Logger) ([]T, error) {
	out := []T{}
	for cursor.Next(ctx) {
		var v T
		if err := cursor.Decode(&v); err != nil {
			log.Warn("skipping unreadable document",
				zap.String("_id", cursor.Current.Lookup("_id").String()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, v)
	}
	return out, mapErr(cursor.Err())
}

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var selErr topology.ServerSelectionError
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.As(err, &selErr), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
