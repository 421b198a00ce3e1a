package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/failover/pkg/registry"
	"github.com/cuemby/failover/pkg/types"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketRecords = []byte("records")
)

// BoltStore implements Store using BoltDB. Records are keyed by record ID
// and pages are cut in key order.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database file at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRecords, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// ListRecords returns page pageNumber of the domain's records. A page past
// the end is empty.
func (s *BoltStore) ListRecords(ctx context.Context, domain string, pageNumber, pageSize int) (*registry.RecordPage, error) {
	op := fmt.Sprintf("list records page %d", pageNumber)
	if err := ctx.Err(); err != nil {
		return nil, &types.TransportError{Op: op, Err: err}
	}
	if pageNumber < 1 || pageSize < 1 {
		return nil, &types.RegistrarAPIError{
			Op:         op,
			Code:       "InvalidParameter",
			HTTPStatus: 400,
			Message:    fmt.Sprintf("invalid page %d of size %d", pageNumber, pageSize),
		}
	}

	all, err := s.ListAllRecords(domain)
	if err != nil {
		return nil, err
	}

	page := &registry.RecordPage{
		Records:    []types.DomainRecord{},
		TotalCount: len(all),
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}

	start := (pageNumber - 1) * pageSize
	if start >= len(all) {
		return page, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	for _, rec := range all[start:end] {
		page.Records = append(page.Records, *rec)
	}
	return page, nil
}

// SetStatus sets a record's status. Setting the status it already has is a no-op.
func (s *BoltStore) SetStatus(ctx context.Context, recordID string, status types.RecordStatus) error {
	op := "set status " + recordID
	if err := ctx.Err(); err != nil {
		return &types.TransportError{Op: op, Err: err}
	}
	if status != types.RecordStatusEnable && status != types.RecordStatusDisable {
		return &types.RegistrarAPIError{Op: op, Code: "InvalidStatus", HTTPStatus: 400, Message: string(status)}
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data := b.Get([]byte(recordID))
		if data == nil {
			return &types.RegistrarAPIError{Op: op, Code: "DomainRecordNotExists", HTTPStatus: 404, Message: "record not found"}
		}

		var record types.DomainRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		if record.Locked {
			return &types.RegistrarAPIError{Op: op, Code: "DomainRecordLocked", HTTPStatus: 400, Message: "record is locked"}
		}
		if record.Status == status {
			return nil
		}

		record.Status = status
		updated, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		return b.Put([]byte(recordID), updated)
	})
}

// PutRecord creates or replaces a record, assigning an ID if it has none.
// Replacing a record of another domain fails with DomainRecordDuplicate.
func (s *BoltStore) PutRecord(record *types.DomainRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putRecord(tx.Bucket(bucketRecords), record)
	})
}

// putRecord writes record under its ID. Record IDs are unique across
// domains, so an ID already held by another domain is rejected.
func putRecord(b *bolt.Bucket, record *types.DomainRecord) error {
	if record.RecordID == "" {
		record.RecordID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = types.RecordStatusEnable
	}

	if existing := b.Get([]byte(record.RecordID)); existing != nil {
		var current types.DomainRecord
		if err := json.Unmarshal(existing, &current); err != nil {
			return fmt.Errorf("failed to decode record %s: %w", record.RecordID, err)
		}
		if !strings.EqualFold(current.DomainName, record.DomainName) {
			return &types.RegistrarAPIError{
				Op:         "put record " + record.RecordID,
				Code:       "DomainRecordDuplicate",
				HTTPStatus: 400,
				Message:    fmt.Sprintf("record id %s already belongs to %s", record.RecordID, current.DomainName),
			}
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return b.Put([]byte(record.RecordID), data)
}

// GetRecord returns a record by ID
func (s *BoltStore) GetRecord(recordID string) (*types.DomainRecord, error) {
	var record types.DomainRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(recordID))
		if data == nil {
			return fmt.Errorf("record not found: %s", recordID)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListAllRecords returns every record of domain in key order. An empty
// domain lists the records of all domains.
func (s *BoltStore) ListAllRecords(domain string) ([]*types.DomainRecord, error) {
	var records []*types.DomainRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var record types.DomainRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to decode record %s: %w", k, err)
			}
			if domain == "" || strings.EqualFold(record.DomainName, domain) {
				records = append(records, &record)
			}
			return nil
		})
	})
	return records, err
}

// DeleteRecord removes a record
func (s *BoltStore) DeleteRecord(recordID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b.Get([]byte(recordID)) == nil {
			return &types.RegistrarAPIError{
				Op:         "delete record " + recordID,
				Code:       "DomainRecordNotExists",
				HTTPStatus: 404,
				Message:    "record not found",
			}
		}
		return b.Delete([]byte(recordID))
	})
}

// ImportRecords stores records under domain in one transaction and returns
// how many were written.
func (s *BoltStore) ImportRecords(domain string, records []types.DomainRecord) (int, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for i := range records {
			record := records[i]
			if record.DomainName == "" {
				record.DomainName = domain
			}
			if record.RR == "" {
				return fmt.Errorf("record %d: rr is required", i)
			}
			if err := putRecord(b, &record); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
