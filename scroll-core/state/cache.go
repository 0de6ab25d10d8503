package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/holiman/uint256"
)

const (
	accountCacheSize = 10_000
	storageCacheSize = 100_000
	codeCacheSize    = 1_000
)

type storageKey struct {
	addr common.Address
	slot common.Hash
}

// CachingDatabase memoizes reads of a slower Database, such as a remote or disk backed one.
// The underlying database must not change while cached; build a new CachingDatabase after
// flushing a block. It is not safe for concurrent use.
type CachingDatabase struct {
	db       Database
	accounts *simplelru.LRU[common.Address, *AccountInfo]
	storage  *simplelru.LRU[storageKey, *uint256.Int]
	codes    *simplelru.LRU[common.Hash, []byte]
}

var _ IterableDatabase = (*CachingDatabase)(nil)

func NewCachingDatabase(db Database) *CachingDatabase {
	accountLRU, _ := simplelru.NewLRU[common.Address, *AccountInfo](accountCacheSize, nil)
	storageLRU, _ := simplelru.NewLRU[storageKey, *uint256.Int](storageCacheSize, nil)
	codeLRU, _ := simplelru.NewLRU[common.Hash, []byte](codeCacheSize, nil)
	return &CachingDatabase{
		db:       db,
		accounts: accountLRU,
		storage:  storageLRU,
		codes:    codeLRU,
	}
}

func (c *CachingDatabase) Account(addr common.Address) (*AccountInfo, error) {
	if info, ok := c.accounts.Get(addr); ok {
		return info.Copy(), nil
	}
	info, err := c.db.Account(addr)
	if err != nil {
		return nil, err
	}
	c.accounts.Add(addr, info.Copy())
	return info, nil
}

func (c *CachingDatabase) Storage(addr common.Address, slot common.Hash) (*uint256.Int, error) {
	key := storageKey{addr: addr, slot: slot}
	if v, ok := c.storage.Get(key); ok {
		return v.Clone(), nil
	}
	v, err := c.db.Storage(addr, slot)
	if err != nil {
		return nil, err
	}
	c.storage.Add(key, v.Clone())
	return v, nil
}

func (c *CachingDatabase) Code(codeHash common.Hash) ([]byte, error) {
	if code, ok := c.codes.Get(codeHash); ok {
		return code, nil
	}
	code, err := c.db.Code(codeHash)
	if err != nil {
		return nil, err
	}
	c.codes.Add(codeHash, code)
	return code, nil
}

func (c *CachingDatabase) Addresses() ([]common.Address, error) {
	it, ok := c.db.(IterableDatabase)
	if !ok {
		return nil, ErrNotIterable
	}
	return it.Addresses()
}

func (c *CachingDatabase) StorageSlots(addr common.Address) (map[common.Hash]*uint256.Int, error) {
	it, ok := c.db.(IterableDatabase)
	if !ok {
		return nil, ErrNotIterable
	}
	return it.StorageSlots(addr)
}
