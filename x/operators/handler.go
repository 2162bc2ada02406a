package operators

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
)

const setOperatorsCost int64 = 10

// RegisterQuery registers operator grants for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewGrantBucket().Register("operators", qr)
}

// RegisterRoutes registers handlers for operator grant management.
func RegisterRoutes(r weave.Registry, auth x.Authenticator) {
	r = migration.SchemaMigratingRegistry("operators", r)
	r.Handle(&SetOperatorsMsg{}, &setOperatorsHandler{
		auth:   auth,
		bucket: NewGrantBucket(),
	})
}

type setOperatorsHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

func (h *setOperatorsHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: setOperatorsCost}, nil
}

func (h *setOperatorsHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, account, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	for _, op := range msg.Operators {
		key := grantKey(account, op.Operator, op.DomainID)
		if len(op.PermissionIndexes) == 0 {
			// Declaring no permissions revokes the grant.
			if err := h.bucket.Delete(db, key); err != nil && !errors.ErrNotFound.Is(err) {
				return nil, errors.Wrap(err, "cannot revoke grant")
			}
			continue
		}
		packed, err := Pack(op.PermissionIndexes...)
		if err != nil {
			return nil, err
		}
		grant := OperatorGrant{
			Metadata:    &weave.Metadata{Schema: 1},
			Account:     account,
			Operator:    op.Operator,
			DomainID:    op.DomainID,
			Permissions: packed,
		}
		if _, err := h.bucket.Put(db, key, &grant); err != nil {
			return nil, errors.Wrap(err, "cannot store grant")
		}
	}
	return &weave.DeliverResult{Data: account}, nil
}

func (h *setOperatorsHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*SetOperatorsMsg, weave.Address, error) {
	var msg SetOperatorsMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	// Grants are always made on behalf of the main signer. There is no way
	// to modify grants of another account.
	signer := x.MainSigner(ctx, h.auth)
	if signer == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	return &msg, signer.Address(), nil
}
