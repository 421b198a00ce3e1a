package matcher

import (
	"fmt"
	"strings"

	"github.com/cuemby/failover/pkg/log"
	"github.com/cuemby/failover/pkg/types"
	"github.com/rs/zerolog"
)

// Matcher selects the records of a domain that front CDN edge nodes.
// It holds only compiled rules and is safe for concurrent use.
type Matcher struct {
	rules  []types.CdnRule
	domain string
	logger zerolog.Logger
}

// New creates a matcher for domain with rules in configuration order
func New(rules []types.CdnRule, domain string) *Matcher {
	return &Matcher{
		rules:  rules,
		domain: strings.TrimSuffix(domain, "."),
		logger: log.WithComponent("matcher"),
	}
}

// Select is a convenience wrapper around New(rules, domain).Select(records)
func Select(records []types.DomainRecord, rules []types.CdnRule, domain string) ([]types.MatchedRecord, error) {
	return New(rules, domain).Select(records)
}

// Select returns the CNAME records whose label matches a rule, excluding
// records that point at another CDN-managed alias of the same domain. Each
// result carries the port of the first rule matching its label.
func (m *Matcher) Select(records []types.DomainRecord) ([]types.MatchedRecord, error) {
	var matched []types.MatchedRecord

	for _, record := range records {
		if !m.eligible(&record) {
			continue
		}

		rule, ok := m.firstMatch(record.RR)
		if !ok {
			return nil, &types.ConfigurationError{
				Field:  "cdnRecords",
				Reason: fmt.Sprintf("record %s (%s) matched during filtering but resolves to no rule", record.FQDN(m.domain), record.RecordID),
			}
		}

		m.logger.Info().
			Str("record", record.FQDN(m.domain)).
			Str("value", record.Value).
			Int("port", rule.Port).
			Str("status", string(record.Status)).
			Msg("Found record")

		matched = append(matched, types.MatchedRecord{Record: record, Port: rule.Port})
	}

	return matched, nil
}

func (m *Matcher) eligible(record *types.DomainRecord) bool {
	if record.RR == "" || record.Type != types.RecordTypeCNAME {
		return false
	}
	if !m.matchesAny(record.RR) {
		return false
	}

	if prefix, ok := m.valuePrefix(record.Value); ok && m.matchesAny(prefix) {
		m.logger.Debug().
			Str("record", record.FQDN(m.domain)).
			Str("value", record.Value).
			Msg("Skipping record pointing at another CDN alias")
		return false
	}
	return true
}

// valuePrefix strips ".<domain>" from value. ok is false when value is not
// inside the managed domain.
func (m *Matcher) valuePrefix(value string) (string, bool) {
	value = strings.TrimSuffix(value, ".")
	suffix := "." + m.domain
	if len(value) <= len(suffix) || !strings.EqualFold(value[len(value)-len(suffix):], suffix) {
		return "", false
	}
	return value[:len(value)-len(suffix)], true
}

func (m *Matcher) matchesAny(s string) bool {
	_, ok := m.firstMatch(s)
	return ok
}

func (m *Matcher) firstMatch(label string) (types.CdnRule, bool) {
	for _, rule := range m.rules {
		if rule.Pattern.MatchString(label) {
			return rule, true
		}
	}
	return types.CdnRule{}, false
}
