package models

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashSize is the length of a block hash.
const HashSize = 32

// Block is one link of the journal chain. Data holds a marshaled Entry.
type Block struct {
	Index     uint64 `json:"index"`
	Timestamp int64  `json:"timestamp"`
	Data      []byte `json:"data"`
	PrevHash  []byte `json:"prev_hash"`
	Hash      []byte `json:"hash"`
}

func NewBlock(index uint64, timestamp int64, data []byte, prevHash []byte) *Block {
	block := &Block{
		Index:     index,
		Timestamp: timestamp,
		Data:      data,
		PrevHash:  prevHash,
	}
	block.Hash = block.calculateHash()

	return block
}

// GenesisPrevHash is the PrevHash of block 0.
func GenesisPrevHash() []byte {
	return make([]byte, HashSize)
}

func (b *Block) calculateHash() []byte {
	buffer := new(bytes.Buffer)
	_ = binary.Write(buffer, binary.BigEndian, b.Index)
	_ = binary.Write(buffer, binary.BigEndian, b.Timestamp)
	buffer.Write(b.Data)
	buffer.Write(b.PrevHash)

	d := sha3.NewLegacyKeccak256()
	d.Write(buffer.Bytes())
	return d.Sum(nil)
}

func (b *Block) Validate() bool {
	return bytes.Equal(b.calculateHash(), b.Hash)
}

// Entry decodes the block payload.
func (b *Block) Entry() (Entry, error) {
	return UnmarshalEntry(b.Data)
}

// ValidateChain checks hashes, links and index continuity of the whole chain.
func ValidateChain(blocks []*Block) error {
	for i, block := range blocks {
		if block.Index != uint64(i) {
			return fmt.Errorf("block %d has invalid index %d", i, block.Index)
		}

		if !block.Validate() {
			return fmt.Errorf("block %d has invalid hash", i)
		}

		prev := GenesisPrevHash()
		if i > 0 {
			prev = blocks[i-1].Hash
			if block.Timestamp < blocks[i-1].Timestamp {
				return fmt.Errorf("block %d has timestamp before its parent", i)
			}
		}

		if !bytes.Equal(block.PrevHash, prev) {
			return fmt.Errorf("block %d has invalid previous hash link", i)
		}
	}

	return nil
}
