package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

const (
	opOpen   = "open"
	opCommit = "commit"
)

// walRecord WAL 中的一筆紀錄：開戶或一組交易的提交
type walRecord struct {
	Op      string               `json:"op"`
	Account *domain.Account      `json:"account,omitempty"`
	Txs     []domain.Transaction `json:"txs,omitempty"`
}

// Store 記憶體帳本，每次變動先寫入 WAL 再套用到記憶體
//
// 結構:
//
//	accounts: 帳戶資料 Map
//	byNumber: 帳號 -> ID 索引
//	byOwnerKind: 擁有者 + 類型 -> ID 索引 (每種類型一個帳戶)
//	history: 每個帳戶的交易紀錄 (舊到新)
//	wal: Write-Ahead Log 實例，nil 時只存在記憶體
type Store struct {
	mu          sync.RWMutex
	accounts    map[int64]*domain.Account
	byNumber    map[string]int64
	byOwnerKind map[string]int64
	history     map[int64][]domain.Transaction
	lastID      int64
	lastSeq     uint64
	wal         *wal.WAL
}

// NewStore 建立記憶體帳本並從 WAL 恢復狀態
//
// 參數:
//
//	w: Write-Ahead Log 實例，可為 nil
//
// 回傳:
//
//	*Store: Store 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewStore(w *wal.WAL) (*Store, error) {
	s := &Store{
		accounts:    make(map[int64]*domain.Account),
		byNumber:    make(map[string]int64),
		byOwnerKind: make(map[string]int64),
		history:     make(map[int64][]domain.Transaction),
		wal:         w,
	}
	if w != nil {
		if err := s.recoverFromWAL(); err != nil {
			return nil, fmt.Errorf("recover from wal: %w", err)
		}
	}
	return s, nil
}

// recoverFromWAL 依序重放 WAL (不再寫入 WAL)
// 只有 NewStore 呼叫，無需 Lock
func (s *Store) recoverFromWAL() error {
	return s.wal.Replay(func(raw json.RawMessage) error {
		var rec walRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		switch rec.Op {
		case opOpen:
			if rec.Account == nil {
				return fmt.Errorf("open record without account")
			}
			s.applyOpen(rec.Account)
			for i := range rec.Txs {
				if rec.Txs[i].AccountID != rec.Account.ID {
					return fmt.Errorf("open record for account %d carries a transaction of account %d", rec.Account.ID, rec.Txs[i].AccountID)
				}
			}
			s.applyCommit(rec.Txs)
		case opCommit:
			for i := range rec.Txs {
				if _, ok := s.accounts[rec.Txs[i].AccountID]; !ok {
					return fmt.Errorf("commit for unknown account %d", rec.Txs[i].AccountID)
				}
			}
			s.applyCommit(rec.Txs)
		default:
			return fmt.Errorf("unknown wal op %q", rec.Op)
		}
		return nil
	})
}

func ownerKindKey(owner string, kind domain.AccountKind) string {
	return owner + "/" + string(kind)
}

// CreateAccount 建立帳戶並分配 ID，帳戶與開戶交易寫在同一筆 WAL 紀錄
//
// 參數:
//
//	ctx: 上下文
//	acc: 帳戶資料，成功時回填 ID
//	opening: 開戶交易，成功時回填 AccountID 與 Sequence
//
// 回傳:
//
//	error: ErrAccountAlreadyExists 或 ErrStorageUnavailable
func (s *Store) CreateAccount(ctx context.Context, acc *domain.Account, opening ...*domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOwnerKind[ownerKindKey(acc.OwnerID, acc.Kind)]; ok {
		return fmt.Errorf("%w: owner %s already has a %s account", domain.ErrAccountAlreadyExists, acc.OwnerID, acc.Kind)
	}
	if _, ok := s.byNumber[acc.Number]; ok {
		return fmt.Errorf("%w: number %s", domain.ErrAccountAlreadyExists, acc.Number)
	}

	created := *acc
	created.ID = s.lastID + 1
	batch := make([]domain.Transaction, len(opening))
	for i, tx := range opening {
		batch[i] = *tx
		batch[i].AccountID = created.ID
		batch[i].Sequence = s.lastSeq + uint64(i) + 1
	}
	if err := checkOpeningBalance(&created, batch); err != nil {
		return err
	}

	if s.wal != nil {
		if err := s.wal.Write(walRecord{Op: opOpen, Account: &created, Txs: batch}); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
	}
	s.applyOpen(&created)
	s.applyCommit(batch)

	acc.ID = created.ID
	for i, tx := range opening {
		tx.AccountID = created.ID
		tx.Sequence = batch[i].Sequence
	}
	return nil
}

// checkOpeningBalance 開戶交易必須從 0 接續到帳戶的初始餘額
func checkOpeningBalance(acc *domain.Account, batch []domain.Transaction) error {
	running := decimal.Zero
	for i := range batch {
		running = running.Add(batch[i].Signed())
		if !running.Equal(batch[i].BalanceAfter) {
			return fmt.Errorf("opening transaction %d ends at %s, expected %s",
				i, batch[i].BalanceAfter.StringFixed(domain.AmountScale), running.StringFixed(domain.AmountScale))
		}
	}
	if !running.Equal(acc.Balance) {
		return fmt.Errorf("account balance %s does not match opening transactions %s",
			acc.Balance.StringFixed(domain.AmountScale), running.StringFixed(domain.AmountScale))
	}
	return nil
}

func (s *Store) applyOpen(acc *domain.Account) {
	cp := *acc
	s.accounts[cp.ID] = &cp
	s.byNumber[cp.Number] = cp.ID
	s.byOwnerKind[ownerKindKey(cp.OwnerID, cp.Kind)] = cp.ID
	if cp.ID > s.lastID {
		s.lastID = cp.ID
	}
}

// GetAccount 取得帳戶副本
func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
	}
	cp := *acc
	return &cp, nil
}

// GetAccountByNumber 以帳號取得帳戶副本
func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	s.mu.RLock()
	id, ok := s.byNumber[number]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: number %s", domain.ErrAccountNotFound, number)
	}
	return s.GetAccount(ctx, id)
}

// ListAccounts 依 ID 排序回傳帳戶副本，ownerID 為空時回傳全部
func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		if ownerID != "" && acc.OwnerID != ownerID {
			continue
		}
		cp := *acc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Commit 原子性地寫入一組交易
//
// 參數:
//
//	ctx: 上下文
//	txs: 交易紀錄，成功時回填 Sequence
//
// 回傳:
//
//	error: WAL 寫入失敗時回傳 ErrStorageUnavailable，記憶體狀態不變
func (s *Store) Commit(ctx context.Context, txs []*domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if _, ok := s.accounts[tx.AccountID]; !ok {
			return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, tx.AccountID)
		}
		batch[i] = *tx
		batch[i].Sequence = s.lastSeq + uint64(i) + 1
	}

	// 1. 寫入 WAL (Critical Path)
	if s.wal != nil {
		if err := s.wal.Write(walRecord{Op: opCommit, Txs: batch}); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
	}

	// 2. 套用到記憶體
	s.applyCommit(batch)
	for i, tx := range txs {
		tx.Sequence = batch[i].Sequence
	}
	return nil
}

func (s *Store) applyCommit(batch []domain.Transaction) {
	for _, tx := range batch {
		s.accounts[tx.AccountID].Balance = tx.BalanceAfter
		s.history[tx.AccountID] = append(s.history[tx.AccountID], tx)
		if tx.Sequence > s.lastSeq {
			s.lastSeq = tx.Sequence
		}
	}
}

// Recent 最新的 limit 筆交易 (新到舊)
func (s *Store) Recent(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	entries := append([]domain.Transaction(nil), s.history[accountID]...)
	s.mu.RUnlock()

	domain.SortNewestFirst(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Entries 帳戶全部交易 (舊到新)
func (s *Store) Entries(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Transaction(nil), s.history[accountID]...), nil
}

// Close 關閉 WAL
func (s *Store) Close() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Close()
}

var _ usecase.Store = (*Store)(nil)
