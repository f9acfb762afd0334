// Package storage contains all the artifacts that are stored in the database,
// but also is an abstraction of a queue for the processing of them by the
// prover service. The storage package includes a prefixed key-value store
// that allows to store the different types of artifacts in the database. The
// following prefixes are used:
//   - 'q/' for queries (queued)
//   - 'qa/' for resolved queries
//   - 'qr/' for query reservations
//   - 'qs/' for query statuses
//   - 'res/' for query results
//   - 'b/' for block snapshots
//
// Note: Not all the prefixes support queue operations, only the ones that are
// used in the processing of the artifacts.
package storage

import (
	"errors"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	queryPrefix            = []byte("q/")
	archivedQueryPrefix    = []byte("qa/")
	queryReservationPrefix = []byte("qr/")
	queryStatusPrefix      = []byte("qs/")
	resultPrefix           = []byte("res/")
	blockPrefix            = []byte("b/")
)

const (
	// maxKeySize is the maximum size of the key in bytes. It is used to
	// generate the key of the artifacts stored in the database by truncating
	// the hash of the artifact itself.
	maxKeySize = 12
)

var (
	// ErrNotFound is returned when the requested artifact is not in the
	// database.
	ErrNotFound = errors.New("artifact not found")
	// ErrNoMoreElements is returned by queue operations when every pending
	// element is reserved or the queue is empty.
	ErrNoMoreElements = errors.New("no more elements")
)

// Storage wraps the key-value database with the queue and artifact
// operations used by the API and the prover service.
type Storage struct {
	db db.Database
	// globalLock serializes queue operations so a reservation and the
	// iteration that chose its key cannot interleave.
	globalLock sync.Mutex
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	s.db.Close()
}

// setRawArtifact stores already-encoded bytes under prefix/key.
func (s *Storage) setRawArtifact(prefix, key, val []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, val); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getRawArtifact reads the raw bytes stored under prefix/key.
func (s *Storage) getRawArtifact(prefix, key []byte) ([]byte, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	val, err := rd.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

// nextUnreserved scans a queue prefix for the first key without an active
// reservation. Both returns are nil when everything is reserved or the queue
// is empty.
func (s *Storage) nextUnreserved(prefix, reservationPrefix []byte) ([]byte, []byte, error) {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	var chosenKey, chosenVal []byte
	if err := pr.Iterate(nil, func(k, v []byte) bool {
		if s.isReserved(reservationPrefix, k) {
			return true
		}
		chosenKey = append([]byte{}, k...)
		chosenVal = append([]byte{}, v...)
		return false
	}); err != nil {
		return nil, nil, err
	}
	return chosenKey, chosenVal, nil
}

// setArtifact encodes and stores an artifact under prefix/key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	val, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, val); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact reads and decodes the artifact stored under prefix/key into
// out. Returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	val, err := rd.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(val, out)
}

// deleteArtifact removes the artifact stored under prefix/key. Returns
// ErrNotFound if the key does not exist.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	if _, err := rd.Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// setReservation marks a queue key as reserved by a worker.
func (s *Storage) setReservation(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, []byte{1}); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// isReserved reports whether a queue key has an active reservation.
func (s *Storage) isReserved(prefix, key []byte) bool {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	_, err := rd.Get(key)
	return err == nil
}
