package alidns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	sdkalidns "github.com/aliyun/alibaba-cloud-sdk-go/services/alidns"
	sdkerrors "github.com/aliyun/alibaba-cloud-sdk-go/sdk/errors"
	"github.com/cuemby/failover/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	describeBody string
	describeErr  error
	setErr       error

	describeReqs []*sdkalidns.DescribeDomainRecordsRequest
	setReqs      []*sdkalidns.SetDomainRecordStatusRequest
}

func (f *fakeAPI) DescribeDomainRecords(req *sdkalidns.DescribeDomainRecordsRequest) (*sdkalidns.DescribeDomainRecordsResponse, error) {
	f.describeReqs = append(f.describeReqs, req)
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	resp := sdkalidns.CreateDescribeDomainRecordsResponse()
	if err := json.Unmarshal([]byte(f.describeBody), resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *fakeAPI) SetDomainRecordStatus(req *sdkalidns.SetDomainRecordStatusRequest) (*sdkalidns.SetDomainRecordStatusResponse, error) {
	f.setReqs = append(f.setReqs, req)
	if f.setErr != nil {
		return nil, f.setErr
	}
	return sdkalidns.CreateSetDomainRecordStatusResponse(), nil
}

const twoRecords = `{
  "TotalCount": 2,
  "PageNumber": 1,
  "PageSize": 500,
  "DomainRecords": {
    "Record": [
      {"RecordId": "1001", "DomainName": "example.com", "RR": "cdn1", "Type": "CNAME",
       "Value": "edge-1.cdnvendor.net", "Status": "ENABLE", "TTL": 600, "Line": "default", "Weight": 1},
      {"RecordId": "1002", "DomainName": "example.com", "RR": "www", "Type": "A",
       "Value": "192.0.2.10", "Status": "DISABLE", "TTL": 600, "Line": "default", "Locked": true}
    ]
  }
}`

func TestListRecords_MapsRecords(t *testing.T) {
	fake := &fakeAPI{describeBody: twoRecords}
	reg := newRegistry(fake, time.Second)

	page, err := reg.ListRecords(context.Background(), "example.com", 2, 500)
	require.NoError(t, err)

	require.Len(t, fake.describeReqs, 1)
	req := fake.describeReqs[0]
	assert.Equal(t, "example.com", req.DomainName)
	assert.Equal(t, requests.NewInteger(2), req.PageNumber)
	assert.Equal(t, requests.NewInteger(500), req.PageSize)
	assert.Equal(t, "https", req.Scheme)

	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, 2, page.PageNumber)
	require.Len(t, page.Records, 2)

	first := page.Records[0]
	assert.Equal(t, "1001", first.RecordID)
	assert.Equal(t, "cdn1", first.RR)
	assert.Equal(t, types.RecordTypeCNAME, first.Type)
	assert.Equal(t, "edge-1.cdnvendor.net", first.Value)
	assert.Equal(t, types.RecordStatusEnable, first.Status)
	assert.Equal(t, int64(600), first.TTL)

	second := page.Records[1]
	assert.Equal(t, types.RecordStatusDisable, second.Status)
	assert.True(t, second.Locked)
}

func TestListRecords_EmptyPage(t *testing.T) {
	fake := &fakeAPI{describeBody: `{"TotalCount": 2, "DomainRecords": {"Record": []}}`}
	reg := newRegistry(fake, time.Second)

	page, err := reg.ListRecords(context.Background(), "example.com", 3, 500)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, 2, page.TotalCount)
}

func TestListRecords_TransportError(t *testing.T) {
	fake := &fakeAPI{describeErr: errors.New("dial tcp: i/o timeout")}
	reg := newRegistry(fake, time.Second)

	_, err := reg.ListRecords(context.Background(), "example.com", 1, 500)
	var transportErr *types.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Contains(t, transportErr.Op, "page 1")
}

func TestListRecords_CancelledContext(t *testing.T) {
	fake := &fakeAPI{describeBody: twoRecords}
	reg := newRegistry(fake, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.ListRecords(ctx, "example.com", 1, 500)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.describeReqs)
}

func TestSetStatus_SendsRequest(t *testing.T) {
	fake := &fakeAPI{}
	reg := newRegistry(fake, time.Second)

	require.NoError(t, reg.SetStatus(context.Background(), "1001", types.RecordStatusDisable))
	require.Len(t, fake.setReqs, 1)
	assert.Equal(t, "1001", fake.setReqs[0].RecordId)
	assert.Equal(t, "DISABLE", fake.setReqs[0].Status)
}

func TestSetStatus_ServerError(t *testing.T) {
	serverErr := sdkerrors.NewServerError(403,
		`{"Code":"Forbidden.RAM","Message":"User not authorized to operate on the specified resource.","RequestId":"req-1"}`,
		"")
	fake := &fakeAPI{setErr: serverErr}
	reg := newRegistry(fake, time.Second)

	err := reg.SetStatus(context.Background(), "1001", types.RecordStatusEnable)
	var apiErr *types.RegistrarAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Forbidden.RAM", apiErr.Code)
	assert.Equal(t, 403, apiErr.HTTPStatus)
	assert.Equal(t, "registrar", types.ErrorKind(err))
}

func TestNewRegistry_DefaultTimeout(t *testing.T) {
	reg := newRegistry(&fakeAPI{}, 0)
	assert.Equal(t, DefaultTimeout, reg.timeout)
}
