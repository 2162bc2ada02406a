package operators

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"
)

// Controller answers permission questions about operator grants. Other
// extensions consume it through their own narrow interface.
type Controller struct {
	bucket orm.ModelBucket
}

func NewController() *Controller {
	return &Controller{bucket: NewGrantBucket()}
}

// CanOperate returns true if account granted operator given permission within
// given domain. A grant scoped to domain zero applies to every domain.
func (c *Controller) CanOperate(db weave.ReadOnlyKVStore, account, operator weave.Address, domainID int64, permission uint32) (bool, error) {
	domains := []int64{domainID}
	if domainID != 0 {
		domains = append(domains, 0)
	}
	for _, d := range domains {
		var grant OperatorGrant
		switch err := c.bucket.One(db, grantKey(account, operator, d), &grant); {
		case err == nil:
			if Has(grant.Permissions, permission) {
				return true, nil
			}
		case errors.ErrNotFound.Is(err):
			// No grant for this scope, try the next one.
		default:
			return false, errors.Wrap(err, "cannot load operator grant")
		}
	}
	return false, nil
}
