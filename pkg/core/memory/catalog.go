package memory

import (
	"skylinedb/pkg/common"
	"sync"

	"github.com/google/btree"
)

type Item struct {
	Key   common.KeyType
	Entry common.Entry
}

func (i Item) Less(than btree.Item) bool {
	return i.Key < than.(Item).Key
}

// Catalog 按 ID 有序保存所有点，删除时据此找回点的坐标
type Catalog struct {
	tree *btree.BTree
	lock sync.RWMutex
}

func NewCatalog(degree int) *Catalog {
	return &Catalog{
		tree: btree.New(degree),
	}
}

// Put stores e under e.ID and reports whether an entry was replaced.
func (c *Catalog) Put(e common.Entry) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.tree.ReplaceOrInsert(Item{Key: e.ID, Entry: e}) != nil
}

func (c *Catalog) Get(key common.KeyType) (common.Entry, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	res := c.tree.Get(Item{Key: key})
	if res == nil {
		return common.Entry{}, false
	}
	return res.(Item).Entry, true
}

func (c *Catalog) Delete(key common.KeyType) (common.Entry, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	res := c.tree.Delete(Item{Key: key})
	if res == nil {
		return common.Entry{}, false
	}
	return res.(Item).Entry, true
}

// MaxKey returns the largest ID held, or 0 when empty.
func (c *Catalog) MaxKey() common.KeyType {
	c.lock.RLock()
	defer c.lock.RUnlock()

	res := c.tree.Max()
	if res == nil {
		return 0
	}
	return res.(Item).Key
}

func (c *Catalog) Iterator(fn func(e common.Entry) bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	c.tree.Ascend(func(i btree.Item) bool {
		return fn(i.(Item).Entry)
	})
}

// Scan returns entries with start <= ID <= end.
func (c *Catalog) Scan(start, end common.KeyType) []common.Entry {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var res []common.Entry
	c.tree.AscendGreaterOrEqual(Item{Key: start}, func(i btree.Item) bool {
		it := i.(Item)
		if it.Key > end {
			return false
		}
		res = append(res, it.Entry)
		return true
	})
	return res
}

func (c *Catalog) Count() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.tree.Len()
}

func (c *Catalog) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.tree.Clear(false)
}
