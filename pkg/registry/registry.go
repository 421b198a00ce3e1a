package registry

import (
	"context"
	"fmt"

	"github.com/cuemby/failover/pkg/metrics"
	"github.com/cuemby/failover/pkg/types"
)

// RecordPage is one page of a domain's records
type RecordPage struct {
	Records    []types.DomainRecord
	TotalCount int
	PageNumber int
	PageSize   int
}

// Registry is the registrar's record API. Page numbers start at 1 and an
// empty page marks the end of the listing. SetStatus must be idempotent.
type Registry interface {
	ListRecords(ctx context.Context, domain string, pageNumber, pageSize int) (*RecordPage, error)
	SetStatus(ctx context.Context, recordID string, status types.RecordStatus) error
}

// ListAll pages through every record of domain and stops at the first
// failed page. The reconciler applies its own per-page failure policy; this
// is for one-shot listings.
func ListAll(ctx context.Context, r Registry, domain string, pageSize int) ([]types.DomainRecord, error) {
	var records []types.DomainRecord
	for page := 1; ; page++ {
		result, err := r.ListRecords(ctx, domain, page, pageSize)
		if err != nil {
			return records, fmt.Errorf("failed to list page %d: %w", page, err)
		}
		if len(result.Records) == 0 {
			return records, nil
		}
		records = append(records, result.Records...)
	}
}

// Instrumented wraps a Registry with request metrics and keeps the
// "registry" health component up to date.
type Instrumented struct {
	next Registry
}

// Instrument wraps r with metrics
func Instrument(r Registry) *Instrumented {
	return &Instrumented{next: r}
}

// ListRecords implements Registry
func (i *Instrumented) ListRecords(ctx context.Context, domain string, pageNumber, pageSize int) (*RecordPage, error) {
	timer := metrics.NewTimer()
	page, err := i.next.ListRecords(ctx, domain, pageNumber, pageSize)
	timer.ObserveDurationVec(metrics.RegistryRequestDuration, "list_records")
	i.observe("list_records", err)

	if err != nil {
		metrics.UpdateComponent("registry", false, err.Error())
	} else {
		metrics.UpdateComponent("registry", true, "")
	}
	return page, err
}

// SetStatus implements Registry
func (i *Instrumented) SetStatus(ctx context.Context, recordID string, status types.RecordStatus) error {
	timer := metrics.NewTimer()
	err := i.next.SetStatus(ctx, recordID, status)
	timer.ObserveDurationVec(metrics.RegistryRequestDuration, "set_status")
	i.observe("set_status", err)
	return err
}

func (i *Instrumented) observe(op string, err error) {
	result := "success"
	if err != nil {
		result = types.ErrorKind(err)
	}
	metrics.RegistryRequestsTotal.WithLabelValues(op, result).Inc()
}
