package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// Locker 單機帳戶鎖，每個帳戶一個容量為 1 的 channel，可搭配 ctx 限時等待
// 沒有人持有或等待的帳戶會從 slots 移除
type Locker struct {
	mu    sync.Mutex
	slots map[int64]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[int64]*slot)}
}

// acquireSlot 取得帳戶的 slot 並增加引用數
func (l *Locker) acquireSlot(id int64) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl, ok := l.slots[id]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		l.slots[id] = sl
	}
	sl.refs++
	return sl
}

// releaseSlot 減少引用數，歸零時移除
func (l *Locker) releaseSlot(id int64, sl *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.slots, id)
	}
}

// Len 目前追蹤中的帳戶數
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// Lock 依 ID 由小到大取得帳戶鎖
//
// 回傳:
//
//	unlock: 釋放所有鎖，可重複呼叫
//	error: ctx 逾時回傳 ErrLockTimeout，已取得的鎖會先釋放
func (l *Locker) Lock(ctx context.Context, ids []int64) (func(), error) {
	type heldSlot struct {
		id int64
		sl *slot
	}
	held := make([]heldSlot, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].sl.ch
			l.releaseSlot(held[i].id, held[i].sl)
		}
	}

	for _, id := range domain.LockOrder(ids...) {
		sl := l.acquireSlot(id)
		select {
		case sl.ch <- struct{}{}:
			held = append(held, heldSlot{id: id, sl: sl})
		case <-ctx.Done():
			l.releaseSlot(id, sl)
			release()
			return nil, lockError(ctx.Err(), id)
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func lockError(err error, id int64) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: account %d", domain.ErrLockTimeout, id)
	}
	return err
}

var _ usecase.Locker = (*Locker)(nil)
