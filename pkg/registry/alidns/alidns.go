package alidns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	sdkalidns "github.com/aliyun/alibaba-cloud-sdk-go/services/alidns"
	sdkerrors "github.com/aliyun/alibaba-cloud-sdk-go/sdk/errors"
	"github.com/cuemby/failover/pkg/log"
	"github.com/cuemby/failover/pkg/registry"
	"github.com/cuemby/failover/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every registrar API call
const DefaultTimeout = 10 * time.Second

// api is the subset of the Alibaba Cloud DNS client used by Registry
type api interface {
	DescribeDomainRecords(request *sdkalidns.DescribeDomainRecordsRequest) (*sdkalidns.DescribeDomainRecordsResponse, error)
	SetDomainRecordStatus(request *sdkalidns.SetDomainRecordStatusRequest) (*sdkalidns.SetDomainRecordStatusResponse, error)
}

// Config holds the credentials for the Alibaba Cloud DNS API
type Config struct {
	RegionID        string
	AccessKeyID     string
	AccessKeySecret string
	Timeout         time.Duration
}

// Registry is a registry.Registry backed by Alibaba Cloud DNS
type Registry struct {
	client  api
	timeout time.Duration
	logger  zerolog.Logger
}

var _ registry.Registry = (*Registry)(nil)

// New creates an Alibaba Cloud DNS registry
func New(cfg Config) (*Registry, error) {
	client, err := sdkalidns.NewClientWithAccessKey(cfg.RegionID, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create alidns client: %w", err)
	}
	return newRegistry(client, cfg.Timeout), nil
}

func newRegistry(client api, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		client:  client,
		timeout: timeout,
		logger:  log.WithComponent("alidns"),
	}
}

// ListRecords returns one page of the domain's records
func (r *Registry) ListRecords(ctx context.Context, domain string, pageNumber, pageSize int) (*registry.RecordPage, error) {
	op := fmt.Sprintf("DescribeDomainRecords page %d", pageNumber)
	if err := ctx.Err(); err != nil {
		return nil, &types.TransportError{Op: op, Err: err}
	}

	req := sdkalidns.CreateDescribeDomainRecordsRequest()
	req.Scheme = "https"
	req.DomainName = domain
	req.PageNumber = requests.NewInteger(pageNumber)
	req.PageSize = requests.NewInteger(pageSize)
	req.SetConnectTimeout(r.timeout)
	req.SetReadTimeout(r.timeout)

	resp, err := r.client.DescribeDomainRecords(req)
	if err != nil {
		return nil, classify(op, err)
	}

	page := &registry.RecordPage{
		Records:    make([]types.DomainRecord, 0, len(resp.DomainRecords.Record)),
		TotalCount: int(resp.TotalCount),
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}
	for _, rec := range resp.DomainRecords.Record {
		page.Records = append(page.Records, types.DomainRecord{
			RecordID:   rec.RecordId,
			DomainName: rec.DomainName,
			RR:         rec.RR,
			Type:       types.RecordType(rec.Type),
			Value:      rec.Value,
			Status:     types.RecordStatus(rec.Status),
			TTL:        rec.TTL,
			Priority:   rec.Priority,
			Line:       rec.Line,
			Weight:     rec.Weight,
			Remark:     rec.Remark,
			Locked:     rec.Locked,
		})
	}

	r.logger.Debug().
		Str("domain", domain).
		Int("page", pageNumber).
		Int("records", len(page.Records)).
		Int("total", page.TotalCount).
		Msg("Listed domain records")

	return page, nil
}

// SetStatus enables or disables a record
func (r *Registry) SetStatus(ctx context.Context, recordID string, status types.RecordStatus) error {
	op := "SetDomainRecordStatus " + recordID
	if err := ctx.Err(); err != nil {
		return &types.TransportError{Op: op, Err: err}
	}

	req := sdkalidns.CreateSetDomainRecordStatusRequest()
	req.Scheme = "https"
	req.RecordId = recordID
	req.Status = string(status)
	req.SetConnectTimeout(r.timeout)
	req.SetReadTimeout(r.timeout)

	if _, err := r.client.SetDomainRecordStatus(req); err != nil {
		return classify(op, err)
	}
	return nil
}

// classify maps SDK errors to registrar or transport errors. The SDK
// returns *ServerError for every answer the API sent back; anything else
// never got a response.
func classify(op string, err error) error {
	var serverErr *sdkerrors.ServerError
	if errors.As(err, &serverErr) {
		return &types.RegistrarAPIError{
			Op:         op,
			Code:       serverErr.ErrorCode(),
			HTTPStatus: serverErr.HttpStatus(),
			Message:    serverErr.Message(),
		}
	}
	return &types.TransportError{Op: op, Err: err}
}
