package deploy

import "errors"

var (
	// ErrUnsupportedResourceKind means the resource kind has no
	// provisioning path. The offending kind is attached by the caller.
	ErrUnsupportedResourceKind = errors.New("unsupported resource kind")

	// ErrNoLease means a renewal was attempted for a deployment that has
	// no lease record. Leases are only ever created alongside a
	// deployment, so this signals inconsistent state rather than a case
	// to silently repair.
	ErrNoLease = errors.New("no lease exists for deployment")
)
