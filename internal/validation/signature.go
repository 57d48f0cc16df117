package validation

import (
	"context"

	"github.com/angstrom-protocol/angstrom/pkg/signer"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/angstrom-protocol/angstrom/pkg/wire"
)

// ContractVerifier calls a smart-contract wallet's signature-validation
// entry point (e.g. ERC-1271) for orders whose OrderMeta.IsEcdsa is false
type ContractVerifier interface {
	IsValidSignature(ctx context.Context, wallet types.Address, hash types.Hash, sig types.Signature) (bool, error)
}

// verifySignature checks that o.Meta.Signature was produced by o.Meta.From:
// ECDSA recover-and-compare for EOA orders, or a contract call for
// wallet orders.
func verifySignature(ctx context.Context, cv ContractVerifier, o types.AllOrders) *Error {
	hash := wire.OrderHash(o)

	if o.Meta.IsEcdsa {
		recovered, err := signer.Recover(hash, o.Meta.Signature)
		if err != nil {
			return newErr(ErrInvalidSignature, hash, err.Error())
		}
		if types.AddressFromPeerId(recovered) != o.Meta.From {
			return newErr(ErrInvalidSignature, hash, "recovered signer does not match order.from")
		}
		return nil
	}

	ok, err := cv.IsValidSignature(ctx, o.Meta.From, hash, o.Meta.Signature)
	if err != nil {
		return newErr(ErrInvalidSignature, hash, "contract verifier call failed: "+err.Error())
	}
	if !ok {
		return newErr(ErrInvalidSignature, hash, "contract wallet rejected signature")
	}
	return nil
}
