/*
Package types defines the data model shared by every failover component.

The types here are plain values with no behavior beyond small helpers. They
describe what the registrar owns (DomainRecord), what the operator configures
(CdnRule), and what a reconciliation pass derives and throws away
(MatchedRecord, HealthVerdict).

# Records

A DomainRecord mirrors the registrar's view of a DNS record. The controller
only ever reads records and conditionally writes Status:

	DomainRecord{
		RecordID: "1234567890",
		RR:       "cdn1",
		Type:     RecordTypeCNAME,
		Value:    "edge-hk-1.cdnvendor.net",
		Status:   RecordStatusEnable,
	}

Status is two-valued. ENABLE routes traffic to the record's target,
DISABLE takes it out of rotation.

# Rules

A CdnRule is a compiled regular expression over host labels plus the port
the matching edge nodes serve HTTPS on. Rules are ordered and the first
match wins:

	rule, err := types.NewCdnRule("^cdn", 443)

# Verdicts

A HealthVerdict is produced for each matched record on each pass and mapped
to the status the record should have:

	verdict.DesiredStatus() // ENABLE if healthy, DISABLE otherwise

# Errors

Three error kinds cross package boundaries:

  - ConfigurationError: bad configuration, or a record that passed filtering
    but resolves to no rule. Fatal at startup, fatal only to the current pass
    at runtime.
  - TransportError: network failure or timeout. Wraps the underlying error.
  - RegistrarAPIError: the registrar answered but refused the request.

ErrorKind classifies any error into one of these for logs and metrics.
*/
package types
