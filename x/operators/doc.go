/*
Package operators implements delegated account management.

An account can grant another address (the operator) a set of permissions,
scoped to a single domain or to all domains via the domain zero wildcard.
Permissions are identified by small integer indexes and stored packed into a
single bitfield per grant. Grants are replaced wholesale, a SetOperatorsMsg
with an empty permission list revokes the grant.

Other extensions check grants through the Controller without knowing how they
are stored.
*/
package operators
