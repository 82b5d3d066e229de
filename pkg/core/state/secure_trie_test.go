package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethrawdb "github.com/ethereum/go-ethereum/core/rawdb"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	gethtriedb "github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/ethmpt/pkg/core/mpt"
	"github.com/nspcc-dev/ethmpt/pkg/crypto/hash"
	"github.com/stretchr/testify/require"
)

func newTestSecureTrie() *SecureTrie {
	return NewSecureTrie(mpt.EmptyRef, mpt.NewMemoryNodeStore())
}

func TestSecureTrie_Accounts(t *testing.T) {
	tr := newTestSecureTrie()
	ref := gethtrie.NewEmpty(gethtriedb.NewDatabase(gethrawdb.NewMemoryDatabase(), nil))

	for i := range 50 {
		addr := common.BytesToAddress([]byte{byte(i), 0xaa})
		acc := NewAccount()
		acc.Nonce = uint64(i)
		acc.Balance = uint256.NewInt(uint64(i) * 1000)
		require.NoError(t, tr.UpdateAccount(addr, acc))

		data, err := rlp.EncodeToBytes(&gethtypes.StateAccount{
			Nonce:    acc.Nonce,
			Balance:  acc.Balance,
			Root:     acc.Root,
			CodeHash: acc.CodeHash,
		})
		require.NoError(t, err)
		require.NoError(t, ref.Update(hash.Keccak256Bytes(addr.Bytes()), data))
	}
	h, err := tr.Hash()
	require.NoError(t, err)
	require.Equal(t, ref.Hash(), h)

	addr := common.BytesToAddress([]byte{7, 0xaa})
	acc, err := tr.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(7), acc.Nonce)
	require.Equal(t, uint64(7000), acc.Balance.Uint64())

	require.NoError(t, tr.DeleteAccount(addr))
	require.NoError(t, ref.Delete(hash.Keccak256Bytes(addr.Bytes())))
	acc, err = tr.GetAccount(addr)
	require.NoError(t, err)
	require.Nil(t, acc)

	h, err = tr.Commit()
	require.NoError(t, err)
	require.Equal(t, ref.Hash(), h)
}

func TestSecureTrie_Storage(t *testing.T) {
	tr := newTestSecureTrie()
	slot := common.HexToHash("0x01")

	v, err := tr.GetStorage(slot)
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, v)

	value := common.HexToHash("0x0badf00d")
	require.NoError(t, tr.UpdateStorage(slot, value))
	v, err = tr.GetStorage(slot)
	require.NoError(t, err)
	require.Equal(t, value, v)

	raw, err := tr.Get(slot.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte{0x84, 0x0b, 0xad, 0xf0, 0x0d}, raw)

	root := tr.Root()
	require.NoError(t, tr.UpdateStorage(slot, common.Hash{}))
	v, err = tr.GetStorage(slot)
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, v)
	require.Equal(t, mpt.EmptyRef, tr.Root())
	require.NotEqual(t, root, tr.Root())

	h, err := tr.Hash()
	require.NoError(t, err)
	require.Equal(t, mpt.EmptyRootHash, h)
}

func TestSecureTrie_Raw(t *testing.T) {
	tr := newTestSecureTrie()
	require.NoError(t, tr.Update([]byte("key"), []byte("value")))
	v, err := tr.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)

	require.NoError(t, tr.Update([]byte("key"), nil))
	v, err = tr.Get([]byte("key"))
	require.NoError(t, err)
	require.Nil(t, v)
}
