/*
Package tokenstore tracks domain tokens and reserved token distribution.

Tokens minted by a domain exist in two forms. Claimed tokens are regular
coins in the holder wallet. Unclaimed tokens are custodial balances kept by
the token store until the holder claims them, which keeps minting cheap for
recipients that may never touch their tokens.

A domain can also set tokens aside in a reserved tally. Distributing the
tally mints the tokens to the reserved split recipients of the domain, with
the undistributed rest going to the domain owner.
*/
package tokenstore
