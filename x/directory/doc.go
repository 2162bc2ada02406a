/*
Package directory maintains the registry of domain entry points.

Every domain that wants to receive payments registers which extension accepts
them. The registry stores only the kind name, the implementations are bound to
kind names in Go during application wiring. Distribution shares that target a
domain are resolved through this registry and fail when the domain has no
registration.
*/
package directory
