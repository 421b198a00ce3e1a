package types

import (
	"fmt"
	"regexp"
	"time"
)

// RecordType is the DNS record type reported by the registrar
type RecordType string

const (
	RecordTypeCNAME RecordType = "CNAME"
	RecordTypeA     RecordType = "A"
	RecordTypeAAAA  RecordType = "AAAA"
	RecordTypeTXT   RecordType = "TXT"
)

// RecordStatus is the enable/disable flag of a DNS record
type RecordStatus string

const (
	RecordStatusEnable  RecordStatus = "ENABLE"
	RecordStatusDisable RecordStatus = "DISABLE"
)

// DomainRecord is a DNS record as owned by the registrar.
// Only Status is ever written by the failover controller.
type DomainRecord struct {
	RecordID   string       `json:"recordId" yaml:"recordId"`
	DomainName string       `json:"domainName" yaml:"domainName"`
	RR         string       `json:"rr" yaml:"rr"` // host label, e.g. "cdn1"
	Type       RecordType   `json:"type" yaml:"type"`
	Value      string       `json:"value" yaml:"value"`
	Status     RecordStatus `json:"status" yaml:"status"`

	// Registrar metadata, not used for decisions
	TTL      int64  `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Priority int64  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Line     string `json:"line,omitempty" yaml:"line,omitempty"`
	Weight   int    `json:"weight,omitempty" yaml:"weight,omitempty"`
	Remark   string `json:"remark,omitempty" yaml:"remark,omitempty"`
	Locked   bool   `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// FQDN returns the fully qualified name of the record within domain
func (r *DomainRecord) FQDN(domain string) string {
	if r.RR == "" || r.RR == "@" {
		return domain
	}
	return r.RR + "." + domain
}

// CdnRule maps host labels matching Pattern to an edge node port
type CdnRule struct {
	Pattern *regexp.Regexp
	Port    int
}

// NewCdnRule compiles a rule from its configured form
func NewCdnRule(match string, port int) (CdnRule, error) {
	re, err := regexp.Compile(match)
	if err != nil {
		return CdnRule{}, fmt.Errorf("invalid match pattern %q: %w", match, err)
	}
	return CdnRule{Pattern: re, Port: port}, nil
}

// MatchedRecord pairs a record with the port of the first rule matching it.
// Built fresh on every pass.
type MatchedRecord struct {
	Record DomainRecord
	Port   int
}

// Address returns the node address being probed (the CNAME target)
func (m *MatchedRecord) Address() string {
	return m.Record.Value
}

// HealthVerdict is the outcome of probing one edge node
type HealthVerdict struct {
	Healthy  bool
	Attempts int

	// FailedHost is the canary host that failed the last attempt
	FailedHost string

	// Err is the failure of the last attempt, nil when healthy
	Err error

	Duration time.Duration
}

// DesiredStatus maps a verdict to the record status it calls for
func (v HealthVerdict) DesiredStatus() RecordStatus {
	if v.Healthy {
		return RecordStatusEnable
	}
	return RecordStatusDisable
}
