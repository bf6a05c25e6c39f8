package inscription

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
	"github.com/bitcoin-writer/go-document-chain/pkg/utils"
)

// MaxSharesPerIssue caps a single share issuance.
const MaxSharesPerIssue = 10_000

// ShareFieldCount is the number of BWSHARE fields before the signature:
//
//	[0] "BWSHARE"
//	[1] identity key (compressed)
//	[2] inscription id
//	[3] inscription outpoint
//	[4] total shares, decimal
//	[5] price per share in satoshis, decimal
const ShareFieldCount = 6

// IssueShares mints one BWSHARE token describing totalShares shares of a sealed
// inscription. Share ids are "<token outpoint>/<n>" for n in 1..totalShares.
func (s *WalletSealer) IssueShares(ctx context.Context, ins *types.DocumentInscription, totalShares, pricePerShare uint64) (*types.ShareData, error) {
	switch {
	case ins == nil || !ins.Sealed():
		return nil, errInscriptionNotSealed
	case totalShares == 0:
		return nil, errNoShares
	case totalShares > MaxSharesPerIssue:
		return nil, fmt.Errorf("%w: %d > %d", errTooManyShares, totalShares, MaxSharesPerIssue)
	}

	identity, err := s.IdentityKey(ctx)
	if err != nil {
		return nil, err
	}

	fields := [][]byte{
		[]byte(utils.ShareTokenIdentifier),
		identity.Compressed(),
		[]byte(ins.ID),
		[]byte(ins.Confirmation.Outpoint),
		[]byte(strconv.FormatUint(totalShares, 10)),
		[]byte(strconv.FormatUint(pricePerShare, 10)),
	}
	lockingScript, err := s.lock(ctx, fields)
	if err != nil {
		return nil, err
	}

	tx, index, err := s.fund(ctx, lockingScript,
		fmt.Sprintf("%d shares of inscription %s", totalShares, ins.ID),
		"Bitcoin Writer share issuance")
	if err != nil {
		return nil, err
	}
	txid := tx.TxID().String()
	outpoint := utils.FormatOutpoint(txid, index)

	shareIDs := make([]string, totalShares)
	for n := range shareIDs {
		shareIDs[n] = outpoint + "/" + strconv.Itoa(n+1)
	}

	s.logger.Info("Issued share token",
		"documentId", ins.DocumentID,
		"inscriptionId", ins.ID,
		"shares", totalShares,
		"txid", txid)

	return &types.ShareData{
		TotalShares:   totalShares,
		PricePerShare: pricePerShare,
		ShareIDs:      shareIDs,
		TxID:          txid,
	}, nil
}
