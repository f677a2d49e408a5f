/*

Package tradeescrow implements a trade finance escrow.

An importer pays for goods shipped by an exporter. The amount is held by the
order account until a verifier (or the importer) confirms the delivery, in
which case it is released to the exporter, or until the approved deadline
passes, in which case anyone can return it to the importer.

Before the goods can be shipped, the exporter and the importer must agree on
a deadline. The exporter proposes it and the importer approves it. Later the
exporter can request an extension, which the importer approves or rejects.

Either trading party can dispute an order. The verifier resolves the dispute
and the order is completed. No funds are moved when a dispute is resolved.

Every order keeps a history of its last ten changes.

*/
package tradeescrow
