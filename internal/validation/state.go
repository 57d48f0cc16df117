package validation

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
)

// StateView reads the on-chain state a stateful check needs: ERC-20
// balances and approvals by raw storage slot, and the standing-order nonce
// bitmap.
type StateView interface {
	// StorageAt returns the 32-byte word at slot in contract's storage as of
	// the current validation block.
	StorageAt(ctx context.Context, contract types.Address, slot types.Hash) (types.Hash, error)
}

// maxSlotProbeOffset bounds the storage slot discovery probe: offsets 0..maxSlotProbeOffset are tried until one's
// sentinel-write-then-readback succeeds. Discovery only needs to run once
// per token; SlotCache remembers the answer.
const maxSlotProbeOffset = 100

// slotSentinelValue is the value written to a candidate slot via an
// ephemeral state override and then read back through the token's real
// balanceOf/allowance entry point: a match proves the offset, because the
// round-trip goes through the contract's own code rather than a raw storage
// read. A raw read can't distinguish "wrong offset" from "zero balance" or
// "never approved" since both read back as zero; routing through the real
// entry point can, since only the right offset's override actually changes
// what balanceOf/allowance computes and returns.
var slotSentinelValue = types.Hash{31: 0x15, 30: 0xcd, 29: 0x5b, 28: 0x07} // 123456789

func slotSentinelWord() types.Hash {
	return slotSentinelValue
}

// slotProbeOwner/slotProbeSpender are the addresses discovery probes with:
// any address distinct from a real order's signer works, since
// discovery only needs *some* address whose mapping slot it can safely
// override without touching real user balances. Fixed (not random) so
// discovery stays deterministic and reproducible across validation workers.
var (
	slotProbeOwner   = types.Address{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
	slotProbeSpender = types.Address{0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB}
)

// balanceOfSelector/allowanceSelector are the standard ERC-20 function
// selectors (first 4 bytes of keccak256 of the canonical signature),
// hardcoded rather than computed since this package never encodes any other
// ABI call — the settlement bundle's own encoding remains the contract's
// black-box boundary.
var (
	balanceOfSelector = [4]byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
	allowanceSelector = [4]byte{0xdd, 0x62, 0xed, 0x3e} // allowance(address,address)
)

func balanceOfCalldata(owner types.Address) []byte {
	data := make([]byte, 4+32)
	copy(data[0:4], balanceOfSelector[:])
	copy(data[4+12:4+32], owner[:])
	return data
}

func allowanceCalldata(owner, spender types.Address) []byte {
	data := make([]byte, 4+64)
	copy(data[0:4], allowanceSelector[:])
	copy(data[4+12:4+32], owner[:])
	copy(data[4+32+12:4+64], spender[:])
	return data
}

// SlotCache remembers, per (token, kind), which mapping-base offset holds
// balances or allowances, so repeated validations skip re-probing.
type SlotCache struct {
	mu        sync.RWMutex
	balance   map[types.Address]uint8
	allowance map[types.Address]uint8
}

func NewSlotCache() *SlotCache {
	return &SlotCache{
		balance:   make(map[types.Address]uint8),
		allowance: make(map[types.Address]uint8),
	}
}

func (c *SlotCache) balanceOffset(token types.Address) (uint8, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	off, ok := c.balance[token]
	return off, ok
}

func (c *SlotCache) setBalanceOffset(token types.Address, off uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance[token] = off
}

func (c *SlotCache) allowanceOffset(token types.Address) (uint8, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	off, ok := c.allowance[token]
	return off, ok
}

func (c *SlotCache) setAllowanceOffset(token types.Address, off uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowance[token] = off
}

// mappingSlot computes the standard Solidity storage-layout slot for
// mapping(address => T) at base offset: keccak256(pad32(key) ||
// pad32(offset)).
func mappingSlot(key types.Address, offset uint8) types.Hash {
	var keyWord, offWord [32]byte
	copy(keyWord[12:], key[:])
	offWord[31] = offset
	return types.Keccak256(keyWord[:], offWord[:])
}

// nestedMappingSlot computes the slot for mapping(address => mapping(address
// => T)) as keccak256(pad32(inner) || keccak256(pad32(outer) || pad32(offset))),
// used for ERC-20 allowance(owner, spender).
func nestedMappingSlot(outer, inner types.Address, offset uint8) types.Hash {
	outerSlot := mappingSlot(outer, offset)
	var innerWord [32]byte
	copy(innerWord[12:], inner[:])
	return types.Keccak256(innerWord[:], outerSlot[:])
}

// discoverBalanceOffset probes storage offsets 0..maxSlotProbeOffset,
// overriding each candidate slot with slotSentinelValue and calling the
// token's real balanceOf(slotProbeOwner) through sim — the offset whose
// override makes balanceOf actually return the sentinel is the token's
// balanceOf mapping base offset. Once found it's cached forever: ERC-20
// storage layouts never change post-deployment.
func discoverBalanceOffset(ctx context.Context, sim EVMSimulator, cache *SlotCache, token types.Address, blockNumber uint64) (uint8, error) {
	if off, ok := cache.balanceOffset(token); ok {
		return off, nil
	}
	calldata := balanceOfCalldata(slotProbeOwner)
	for offset := uint8(0); offset < maxSlotProbeOffset; offset++ {
		slot := mappingSlot(slotProbeOwner, offset)
		ret, err := sim.SimulateCall(ctx, token, calldata, slot, slotSentinelWord(), blockNumber)
		if err != nil {
			return 0, fmt.Errorf("validation: probe balance slot offset %d: %w", offset, err)
		}
		if returnsSentinel(ret) {
			cache.setBalanceOffset(token, offset)
			return offset, nil
		}
	}
	return 0, fmt.Errorf("validation: no balance slot found for token %s within %d offsets", token, maxSlotProbeOffset)
}

// discoverAllowanceOffset is discoverBalanceOffset's allowance(owner,
// spender) analogue, using the nested-mapping slot formula and the
// allowance selector.
func discoverAllowanceOffset(ctx context.Context, sim EVMSimulator, cache *SlotCache, token types.Address, blockNumber uint64) (uint8, error) {
	if off, ok := cache.allowanceOffset(token); ok {
		return off, nil
	}
	calldata := allowanceCalldata(slotProbeOwner, slotProbeSpender)
	for offset := uint8(0); offset < maxSlotProbeOffset; offset++ {
		slot := nestedMappingSlot(slotProbeOwner, slotProbeSpender, offset)
		ret, err := sim.SimulateCall(ctx, token, calldata, slot, slotSentinelWord(), blockNumber)
		if err != nil {
			return 0, fmt.Errorf("validation: probe allowance slot offset %d: %w", offset, err)
		}
		if returnsSentinel(ret) {
			cache.setAllowanceOffset(token, offset)
			return offset, nil
		}
	}
	return 0, fmt.Errorf("validation: no allowance slot found for token %s within %d offsets", token, maxSlotProbeOffset)
}

// returnsSentinel reports whether a simulated call's return data is exactly
// the 32-byte sentinel word (right-aligned, as a Solidity uint256 return
// always is).
func returnsSentinel(ret []byte) bool {
	sentinel := slotSentinelWord()
	if len(ret) < 32 {
		return false
	}
	return bytes.Equal(ret[len(ret)-32:], sentinel[:])
}

func wordToUint256(h types.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(h[:])
}

// nonceWordSlot derives the slot holding the 256-bit packed nonce bitmap
// word that contains bit (nonce mod 256): slot = keccak256(pad32(owner) ||
// pad32(nonceWordBase) || pad32(nonce >> 8)).
func nonceWordSlot(owner types.Address, nonce uint64) types.Hash {
	var ownerWord, baseWord, highWord [32]byte
	copy(ownerWord[12:], owner[:])
	baseWord[31] = nonceWordBase
	high := nonce >> 8
	highWord[24] = byte(high >> 56)
	highWord[25] = byte(high >> 48)
	highWord[26] = byte(high >> 40)
	highWord[27] = byte(high >> 32)
	highWord[28] = byte(high >> 24)
	highWord[29] = byte(high >> 16)
	highWord[30] = byte(high >> 8)
	highWord[31] = byte(high)
	return types.Keccak256(ownerWord[:], baseWord[:], highWord[:])
}

// nonceWordBase is the angstrom PoolManager's nonce-bitmap mapping base
// offset.
const nonceWordBase = 6

// nonceBit reports whether nonce's bit is already set in word.
func nonceBit(word types.Hash, nonce uint64) bool {
	bitIndex := nonce % 256
	byteIndex := 31 - bitIndex/8
	return word[byteIndex]&(1<<(bitIndex%8)) != 0
}

// stateCheck runs the stateful checks: balance, approval and (for standing
// orders) nonce checks, returning a classified *types.StateError — never a
// terminal *Error — since these failures park the order rather than reject
// it outright.
func stateCheck(ctx context.Context, sv StateView, sim EVMSimulator, cache *SlotCache, o types.AllOrders, blockNumber uint64) (*types.StateError, error) {
	owner := o.Meta.From
	spender := PoolManagerAddress

	balOff, err := discoverBalanceOffset(ctx, sim, cache, o.AssetIn, blockNumber)
	if err != nil {
		return nil, err
	}
	balWord, err := sv.StorageAt(ctx, o.AssetIn, mappingSlot(owner, balOff))
	if err != nil {
		return nil, err
	}
	balance := wordToUint256(balWord)

	allowOff, err := discoverAllowanceOffset(ctx, sim, cache, o.AssetIn, blockNumber)
	if err != nil {
		return nil, err
	}
	allowWord, err := sv.StorageAt(ctx, o.AssetIn, nestedMappingSlot(owner, spender, allowOff))
	if err != nil {
		return nil, err
	}
	allowance := wordToUint256(allowWord)

	needed := o.MinFillAmount
	insufficientBalance := balance.Cmp(needed) < 0
	insufficientApproval := allowance.Cmp(needed) < 0

	if !o.Kind.IsFlash() {
		word, err := sv.StorageAt(ctx, PoolManagerAddress, nonceWordSlot(owner, o.NonceOrSalt))
		if err != nil {
			return nil, err
		}
		if nonceBit(word, o.NonceOrSalt) {
			return &types.StateError{Kind: types.StateErrDuplicateNonce, Token: o.AssetIn}, nil
		}
	}

	switch {
	case insufficientBalance && insufficientApproval:
		return &types.StateError{Kind: types.StateErrInsufficientBoth, Token: o.AssetIn, BalanceNeeded: needed, ApprovalNeeded: needed}, nil
	case insufficientBalance:
		return &types.StateError{Kind: types.StateErrInsufficientBalance, Token: o.AssetIn, BalanceNeeded: needed}, nil
	case insufficientApproval:
		return &types.StateError{Kind: types.StateErrInsufficientApproval, Token: o.AssetIn, ApprovalNeeded: needed}, nil
	}
	return nil, nil
}

// CheckNonce reports whether nonce is still unused for owner, reading the
// same bit-packed nonce bitmap stateCheck consults. Exported for the
// JSON-RPC validNonce method.
func CheckNonce(ctx context.Context, sv StateView, owner types.Address, nonce uint64) (bool, error) {
	word, err := sv.StorageAt(ctx, PoolManagerAddress, nonceWordSlot(owner, nonce))
	if err != nil {
		return false, err
	}
	return !nonceBit(word, nonce), nil
}

// PoolManagerAddress is the angstrom PoolManager contract's address: the
// ERC-20 spender every order approves, and the nonce-bitmap owner. Supplied
// by deployment configuration in a real node; fixed here as a package-level
// var so tests can override it.
var PoolManagerAddress types.Address
