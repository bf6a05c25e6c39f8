package utils

import (
	"context"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/wallet"
)

// Token identifiers carried in the first PushDrop field.
const (
	InscriptionTokenIdentifier = "BWDOC"
	ShareTokenIdentifier       = "BWSHARE"
)

// TokenKeyID is the key id every Bitcoin Writer token is locked and signed under.
const TokenKeyID = "1"

// TokenProtocol maps a token identifier to the wallet protocol it is signed under.
func TokenProtocol(identifier string) (wallet.Protocol, bool) {
	switch identifier {
	case InscriptionTokenIdentifier:
		return wallet.Protocol{
			SecurityLevel: wallet.SecurityLevelEveryApp,
			Protocol:      "bitcoin writer inscription",
		}, true
	case ShareTokenIdentifier:
		return wallet.Protocol{
			SecurityLevel: wallet.SecurityLevelEveryApp,
			Protocol:      "bitcoin writer shares",
		}, true
	default:
		return wallet.Protocol{}, false
	}
}

// IsTokenSignatureCorrectlyLinked checks that the BRC-48 locking key and the
// signature in the last field are valid and linked to the identity key claimed
// in the second field.
func IsTokenSignatureCorrectlyLinked(ctx context.Context, lockingPublicKey *ec.PublicKey, fields [][]byte) bool {
	if lockingPublicKey == nil || len(fields) < 3 {
		return false
	}

	signatureBytes := fields[len(fields)-1]
	signed := fields[:len(fields)-1]

	sig, err := ec.ParseSignature(signatureBytes)
	if err != nil {
		return false
	}

	protocol, ok := TokenProtocol(string(signed[0]))
	if !ok {
		return false
	}

	identityPubKey, err := ec.ParsePubKey(signed[1])
	if err != nil {
		return false
	}

	var data []byte
	for _, field := range signed {
		data = append(data, field...)
	}

	anyonePrivKey, _ := wallet.AnyoneKey()
	anyoneWallet, err := wallet.NewWallet(anyonePrivKey)
	if err != nil {
		return false
	}

	encryptionArgs := wallet.EncryptionArgs{
		ProtocolID: protocol,
		KeyID:      TokenKeyID,
		Counterparty: wallet.Counterparty{
			Type:         wallet.CounterpartyTypeOther,
			Counterparty: identityPubKey,
		},
	}

	verifyResult, err := anyoneWallet.VerifySignature(ctx, wallet.VerifySignatureArgs{
		EncryptionArgs: encryptionArgs,
		Data:           data,
		Signature:      sig,
	}, "")
	if err != nil || !verifyResult.Valid {
		return false
	}

	// The locking key must be the one the identity derived for "anyone".
	forSelf := false
	pubKeyResult, err := anyoneWallet.GetPublicKey(ctx, wallet.GetPublicKeyArgs{
		EncryptionArgs: encryptionArgs,
		ForSelf:        &forSelf,
	}, "")
	if err != nil {
		return false
	}

	return pubKeyResult.PublicKey.IsEqual(lockingPublicKey)
}
