package challenge

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// RecoverAddress recovers the lower-cased signing address from a
// personal_sign signature over the given message bytes. The message is
// hashed with the EIP-191 "Ethereum Signed Message" prefix, which is what
// wallets apply before signing.
func RecoverAddress(message []byte, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("%w: decode signature: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("%w: signature must be %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}

	// Wallets emit V as 27/28; secp256k1 recovery wants 0/1.
	v := sig[crypto.RecoveryIDOffset]
	if v >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] = v - 27
	}

	hash := crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)))

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", fmt.Errorf("%w: recover public key: %v", ErrInvalidSignature, err)
	}

	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}
