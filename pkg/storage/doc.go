/*
Package storage provides a BoltDB-backed local registrar.

BoltStore answers the same ListRecords and SetStatus calls as the hosted
registrar, so the controller can run against a file on disk for staging,
drills and offline testing. It is selected with the bolt provider:

	registrar:
	  provider: bolt
	  path: /var/lib/failover/records.db

The controller itself keeps no state between passes. The database only
stands in for the registrar's own record table.

# Layout

	┌──────────────────────────────────────────────┐
	│  BoltStore  (single file, 0600)              │
	│                                              │
	│  records bucket                              │
	│    key:   record ID                          │
	│    value: JSON types.DomainRecord            │
	└──────────────────────────────────────────────┘

Records of all domains share the bucket. ListRecords filters by domain and
cuts pages in key order, so a listing is stable between calls as long as
nothing is imported in between. A page past the end is empty, which is how
callers detect the end of the listing.

# Registrar Behavior

SetStatus mirrors the hosted API where it matters to the controller:

  - setting the current status again succeeds without a write
  - unknown record IDs fail with DomainRecordNotExists
  - locked records fail with DomainRecordLocked
  - anything other than ENABLE or DISABLE fails with InvalidStatus

All of these are *types.RegistrarAPIError values. A cancelled context fails
with *types.TransportError before the database is touched.

# Seeding

Records are loaded with ImportRecords, usually through the CLI:

	failover records import -f records.yaml

The import is one transaction: a single invalid record writes nothing.
Records without an ID get a random UUID and records without a status start
ENABLE. Record IDs are unique across domains: writing an ID that another
domain already holds fails with DomainRecordDuplicate.

BoltDB takes an exclusive file lock. NewBoltStore gives up after one second
when another process holds the database open.
*/
package storage
