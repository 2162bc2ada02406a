/*
Package payout implements the distribution engine that routes a single amount
of value among a weighted list of splits.

The engine computes each share using integer floor division over an explicit
percent denominator, resolves every split to exactly one delivery branch
(allocator, cross domain entry point, direct beneficiary or default recipient)
and accounts for the full amount: whatever is not covered by the splits is
delivered to the default recipient as a remainder.

The engine never persists anything. It operates on a snapshot of splits handed
in by the caller and moves value only through the Delivery, EntryPoint and
Allocator collaborators it was configured with. Running the same algorithm in
token minting mode is a matter of providing mint flavored collaborators, see
x/tokenstore.
*/
package payout
