package types

import (
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/maze/utils"
)

// MaxTreeDepth bounds the accumulator so that 2^depth leaf indices fit in a uint64.
const MaxTreeDepth = 32

// PoolAccountLen is the fixed size of an encoded pool (vault) account.
//
//	initialized(1) enabled(1) admin(32) mint(32) token_account(32) authority(32)
//	authority_seed(1) depth(1) hasher(1) root(32) next_index(8) total_deposited(8)
//	min_deposit(8) min_withdraw(8) delegate_fee(8)
const PoolAccountLen = 1 + 1 + 32 + 32 + 32 + 32 + 1 + 1 + 1 + 32 + 8 + 8 + 8 + 8 + 8

// Pool is the on-ledger configuration and accumulator state of one token's shielded pool.
type Pool struct {
	Initialized    bool
	Enabled        bool
	Admin          PubKey
	Mint           PubKey
	TokenAccount   PubKey
	Authority      PubKey
	AuthoritySeed  uint8
	Depth          uint8
	Hasher         utils.HasherID
	Root           fr.Element
	NextIndex      uint64
	TotalDeposited uint64
	MinDeposit     uint64
	MinWithdraw    uint64
	DelegateFee    uint64
}

// Capacity is the number of leaves the pool's tree can hold.
func (p *Pool) Capacity() uint64 {
	return uint64(1) << p.Depth
}

func (p *Pool) IsFull() bool {
	return p.NextIndex >= p.Capacity()
}

// Encode is the exact inverse of DecodePool.
func (p *Pool) Encode() []byte {
	bz := make([]byte, PoolAccountLen)
	off := 0
	putBool := func(v bool) {
		if v {
			bz[off] = 1
		}
		off++
	}
	putKey := func(k PubKey) {
		off += copy(bz[off:], k[:])
	}
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(bz[off:], v)
		off += 8
	}

	putBool(p.Initialized)
	putBool(p.Enabled)
	putKey(p.Admin)
	putKey(p.Mint)
	putKey(p.TokenAccount)
	putKey(p.Authority)
	bz[off], bz[off+1], bz[off+2] = p.AuthoritySeed, p.Depth, uint8(p.Hasher)
	off += 3
	root := p.Root.Bytes()
	off += copy(bz[off:], root[:])
	putU64(p.NextIndex)
	putU64(p.TotalDeposited)
	putU64(p.MinDeposit)
	putU64(p.MinWithdraw)
	putU64(p.DelegateFee)
	return bz
}

// DecodePool parses a raw pool account.
func DecodePool(raw []byte) (*Pool, error) {
	if len(raw) != PoolAccountLen {
		return nil, &FieldError{Err: ErrMalformedAccount, Field: "pool.length", Expected: PoolAccountLen, Actual: len(raw)}
	}

	p := &Pool{}
	off := 0
	getBool := func(field string) (bool, error) {
		v := raw[off]
		off++
		if v > 1 {
			return false, &FieldError{Err: ErrMalformedAccount, Field: field, Expected: "0 or 1", Actual: v}
		}
		return v == 1, nil
	}
	getKey := func() (k PubKey) {
		off += copy(k[:], raw[off:off+PubKeySize])
		return
	}
	getU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(raw[off:])
		off += 8
		return v
	}

	var err error
	if p.Initialized, err = getBool("pool.initialized"); err != nil {
		return nil, err
	}
	if !p.Initialized {
		return nil, &FieldError{Err: ErrMalformedAccount, Field: "pool.initialized", Expected: true, Actual: false}
	}
	if p.Enabled, err = getBool("pool.enabled"); err != nil {
		return nil, err
	}
	p.Admin = getKey()
	p.Mint = getKey()
	p.TokenAccount = getKey()
	p.Authority = getKey()
	p.AuthoritySeed, p.Depth, p.Hasher = raw[off], raw[off+1], utils.HasherID(raw[off+2])
	off += 3
	if p.Depth == 0 || p.Depth > MaxTreeDepth {
		return nil, &FieldError{Err: ErrMalformedAccount, Field: "pool.depth", Expected: fmt.Sprintf("1..%d", MaxTreeDepth), Actual: p.Depth}
	}
	if !p.Hasher.Valid() {
		return nil, &FieldError{Err: ErrMalformedAccount, Field: "pool.hasher", Actual: p.Hasher}
	}
	if p.Root, err = utils.CanonicalElement(raw[off : off+fr.Bytes]); err != nil {
		return nil, &FieldError{Err: ErrMalformedAccount, Field: "pool.root", Expected: "canonical field element", Actual: err}
	}
	off += fr.Bytes
	p.NextIndex = getU64()
	p.TotalDeposited = getU64()
	p.MinDeposit = getU64()
	p.MinWithdraw = getU64()
	p.DelegateFee = getU64()

	if p.NextIndex > p.Capacity() {
		return nil, &FieldError{Err: ErrMalformedAccount, Field: "pool.next_index", Expected: fmt.Sprintf("<= %d", p.Capacity()), Actual: p.NextIndex}
	}
	return p, nil
}
