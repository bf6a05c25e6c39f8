package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode

	// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll
	// and expensive to create, so one of each is shared.
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	cborEnc, err = encOptions.EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}

	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("storage: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("storage: zstd decoder initialization failed: " + err.Error())
	}
}

func marshalCBOR(chain *types.DocumentVersionChain) ([]byte, error) {
	data, err := cborEnc.Marshal(chain)
	if err != nil {
		return nil, fmt.Errorf("cbor encode: %w", err)
	}
	return data, nil
}

func unmarshalCBOR(data []byte) (*types.DocumentVersionChain, error) {
	var chain types.DocumentVersionChain
	if err := cborDec.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("cbor decode: %w", err)
	}
	return &chain, nil
}

func compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

func decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
