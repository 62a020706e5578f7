package store

import (
	"encoding/hex"
	"fmt"

	"github.com/benbeisheim/chesslink/internal/model"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("store: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("store: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode returns the compressed canonical CBOR form of snap.
func Encode(snap model.Snapshot) ([]byte, error) {
	raw, err := encMode.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

func Decode(data []byte) (model.Snapshot, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("zstd decompress: %w", err)
	}
	var snap model.Snapshot
	if err := decMode.Unmarshal(raw, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// Digest is the hex BLAKE3 hash of the canonical CBOR encoding of the game
// part of snap. Relay counters and the digest itself are excluded.
func Digest(snap model.Snapshot) string {
	game := struct {
		Turn       model.Color        `cbor:"turn"`
		Pieces     []model.Piece      `cbor:"pieces"`
		WhitePawns model.PawnIndex    `cbor:"whitePawns"`
		History    []model.MoveRecord `cbor:"history"`
	}{snap.Turn, snap.Pieces, snap.WhitePawns, snap.History}

	raw, err := encMode.Marshal(game)
	if err != nil {
		// Every field has a fixed, encodable shape.
		panic("store: digest encoding failed: " + err.Error())
	}
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
