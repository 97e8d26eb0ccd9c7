package block

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

const HashSize = sha256.Size

// Hash identifies an accounting block. The zero value is the "none" marker
// used as previous hash of a genesis block.
type Hash [HashSize]byte

var ZeroHash Hash

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return base58.Encode(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = ZeroHash
		return nil
	}
	raw, err := base58.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid block hash %q: %w", text, err)
	}
	if len(raw) != HashSize {
		return fmt.Errorf("invalid block hash length: %d", len(raw))
	}
	copy(h[:], raw)
	return nil
}

type TxType uint8

const (
	TxTypeUndefined TxType = iota
	TxTypeBtcTradeFee
	TxTypeDpt
)

func (t TxType) String() string {
	switch t {
	case TxTypeBtcTradeFee:
		return "BTC_TRADE_FEE_TX"
	case TxTypeDpt:
		return "DPT_TX"
	default:
		return "UNDEFINED"
	}
}

// AccountingTxOutput is a payment to a named receiver.
type AccountingTxOutput struct {
	Value int64  `json:"value"`
	Name  string `json:"name"`
}

type AccountingTx struct {
	Type    TxType               `json:"type"`
	TxID    string               `json:"tx_id"`
	Outputs []AccountingTxOutput `json:"outputs"`
}

// AccountingBlock is a block of the accounting chain. Blocks are shared by
// reference between the store and its readers and must not be modified after
// AssembleBlock returns.
type AccountingBlock struct {
	Height    uint64         `json:"height"`
	TimeInSec int64          `json:"time_in_sec"`
	Hash      Hash           `json:"hash"`
	PrevHash  Hash           `json:"prev_hash"`
	Txs       []AccountingTx `json:"txs"`
}

func AssembleBlock(
	height uint64,
	prevHash Hash,
	timeInSec int64,
	txs []AccountingTx,
) *AccountingBlock {
	b := &AccountingBlock{
		Height:    height,
		TimeInSec: timeInSec,
		PrevHash:  prevHash,
		Txs:       txs,
	}
	b.Hash = b.ComputeHash()
	return b
}

// ComputeHash hashes every field except Hash itself. Lists and strings are
// length prefixed so distinct blocks never share an encoding.
func (b *AccountingBlock) ComputeHash() Hash {
	h := sha256.New()
	buf := make([]byte, 8)
	writeUint64 := func(v uint64) {
		binary.BigEndian.PutUint64(buf, v)
		h.Write(buf)
	}
	writeString := func(s string) {
		writeUint64(uint64(len(s)))
		h.Write([]byte(s))
	}

	writeUint64(b.Height)
	writeUint64(uint64(b.TimeInSec))
	h.Write(b.PrevHash[:])
	writeUint64(uint64(len(b.Txs)))
	for _, tx := range b.Txs {
		h.Write([]byte{byte(tx.Type)})
		writeString(tx.TxID)
		writeUint64(uint64(len(tx.Outputs)))
		for _, out := range tx.Outputs {
			writeUint64(uint64(out.Value))
			writeString(out.Name)
		}
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func (b *AccountingBlock) HashString() string {
	return b.Hash.String()
}

func (b *AccountingBlock) IsGenesis() bool {
	return b.PrevHash.IsZero()
}

func (b *AccountingBlock) String() string {
	return fmt.Sprintf("AccountingBlock{height=%d, hash=%s, prev=%s, txs=%d}",
		b.Height, b.Hash, b.PrevHash, len(b.Txs))
}
