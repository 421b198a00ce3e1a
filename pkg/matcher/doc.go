/*
Package matcher classifies DNS records as CDN edge-node aliases.

Classification is a pure function of the record set, the ordered CDN rules
and the managed domain. A record is selected when:

 1. its label is non-empty and its type is CNAME,
 2. its label matches at least one rule, and
 3. its value is not another alias inside the managed domain whose label
    matches a rule.

The third condition keeps CDN-to-CDN pointers out of the result. For domain
example.com and a rule "^cdn", the record

	cdn-main  CNAME  cdn-backup.example.com

is skipped: cdn-backup is itself a CDN record and gets checked on its own.
Probing it through cdn-main would check a non-terminal alias as if it were
an edge node.

Each selected record is paired with the port of the first rule, in
configuration order, that matches its label. Overlapping rules are therefore
resolved deterministically:

	cdnRecords:
	  - match: "^cdn"      # cdn-hk-1 gets 443
	    port: 443
	  - match: "^cdn-hk"   # never wins for labels starting with cdn
	    port: 8443
*/
package matcher
