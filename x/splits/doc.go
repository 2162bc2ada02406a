/*
Package splits maintains the weighted recipient lists that distributions are
routed through.

Each list is a group of splits stored under a (domain, generation, group)
triple. A split carries a share percent out of TotalPercent and an optional
delivery configuration. Splits can be locked until a timestamp. A locked split
survives any group update: it must be present in the new list unchanged, only
its lock may be extended.

The package does not move any value. Distribution over a split group is
implemented by x/payout and its callers.
*/
package splits
