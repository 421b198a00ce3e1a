package storage

import (
	"github.com/cuemby/failover/pkg/registry"
	"github.com/cuemby/failover/pkg/types"
)

// Store is a local record registrar. It answers the same ListRecords and
// SetStatus calls as a hosted registrar, and adds the record management
// needed to seed and inspect it.
type Store interface {
	registry.Registry

	PutRecord(record *types.DomainRecord) error
	GetRecord(recordID string) (*types.DomainRecord, error)
	ListAllRecords(domain string) ([]*types.DomainRecord, error)
	DeleteRecord(recordID string) error
	ImportRecords(domain string, records []types.DomainRecord) (int, error)

	Close() error
}
