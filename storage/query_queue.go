package storage

import (
	"errors"
	"fmt"
)

// PushQuery stores a new query into the pending queue and returns its ID.
// The ID is the truncated hash of the encoded query, so pushing the same
// query twice is idempotent.
func (s *Storage) PushQuery(q *Query) ([]byte, error) {
	val, err := encodeArtifact(q)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	key := hashKey(val)
	if err := s.setRawArtifact(queryPrefix, key, val); err != nil {
		return nil, err
	}
	if err := s.setArtifact(queryStatusPrefix, key, &StatusRecord{Status: StatusPending}); err != nil {
		return nil, err
	}
	return key, nil
}

// NextQuery returns the next non-reserved query, creates a reservation, and
// returns it. It returns the query, the key, and an error. If no queries are
// available, returns ErrNoMoreElements. The key is used to mark the query as
// done or failed after processing.
func (s *Storage) NextQuery() (*Query, []byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	chosenKey, chosenVal, err := s.nextUnreserved(queryPrefix, queryReservationPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("iterate queries: %w", err)
	}
	if chosenVal == nil {
		return nil, nil, ErrNoMoreElements
	}

	var q Query
	if err := decodeArtifact(chosenVal, &q); err != nil {
		return nil, nil, fmt.Errorf("decode query: %w", err)
	}

	if err := s.setReservation(queryReservationPrefix, chosenKey); err != nil {
		return nil, nil, ErrNoMoreElements
	}
	if err := s.setArtifact(queryStatusPrefix, chosenKey, &StatusRecord{Status: StatusProving}); err != nil {
		return nil, nil, err
	}

	return &q, chosenKey, nil
}

// MarkQueryDone is called after the proof chain has been composed. It stores
// the result, flips the status, and removes the query from the pending queue.
func (s *Storage) MarkQueryDone(k []byte, res *Result) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if err := s.setArtifact(resultPrefix, k, res); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	if err := s.setArtifact(queryStatusPrefix, k, &StatusRecord{Status: StatusDone}); err != nil {
		return fmt.Errorf("store status: %w", err)
	}
	return s.dequeueQuery(k)
}

// MarkQueryFailed removes the query from the pending queue and records the
// failure reason in the status record.
func (s *Storage) MarkQueryFailed(k []byte, cause error) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	rec := &StatusRecord{Status: StatusFailed}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := s.setArtifact(queryStatusPrefix, k, rec); err != nil {
		return fmt.Errorf("store status: %w", err)
	}
	return s.dequeueQuery(k)
}

// ReleaseQuery drops the reservation without resolving the query, putting it
// back in the pending queue.
func (s *Storage) ReleaseQuery(k []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if err := s.deleteArtifact(queryReservationPrefix, k); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return s.setArtifact(queryStatusPrefix, k, &StatusRecord{Status: StatusPending})
}

// Query retrieves a query by ID regardless of its queue state. Returns
// ErrNotFound for unknown IDs.
func (s *Storage) Query(id []byte) (*Query, *StatusRecord, error) {
	var q Query
	if err := s.getArtifact(queryPrefix, id, &q); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
		if err := s.getArtifact(archivedQueryPrefix, id, &q); err != nil {
			return nil, nil, err
		}
	}
	rec := &StatusRecord{Status: StatusPending}
	if err := s.getArtifact(queryStatusPrefix, id, rec); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}
	return &q, rec, nil
}

// Result retrieves the stored proof bundle of a finished query.
func (s *Storage) Result(id []byte) (*Result, error) {
	var res Result
	if err := s.getArtifact(resultPrefix, id, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// dequeueQuery moves a resolved query from the pending queue to the archive
// prefix so Query keeps resolving the ID, and drops its reservation.
func (s *Storage) dequeueQuery(k []byte) error {
	if err := s.deleteArtifact(queryReservationPrefix, k); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete reservation: %w", err)
	}
	val, err := s.getRawArtifact(queryPrefix, k)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("read pending query: %w", err)
	}
	if err := s.setRawArtifact(archivedQueryPrefix, k, val); err != nil {
		return fmt.Errorf("archive query: %w", err)
	}
	if err := s.deleteArtifact(queryPrefix, k); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete pending query: %w", err)
	}
	return nil
}
