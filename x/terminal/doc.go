/*
Package terminal implements coin handling for domains.

Each domain owns a deterministic account address that anyone can deposit coins
into. Funds leave a domain account only through a payout distribution, which
routes them to the payout split recipients of the domain and sends the
remainder to the domain owner. The package also provides the "terminal" entry
point, so that one domain can route a share of its payouts into another
domain account.
*/
package terminal
