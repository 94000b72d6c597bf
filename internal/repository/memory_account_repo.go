package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/hitoshi/be4breach/internal/model"
)

// MemoryAccountRepo はプロセスメモリ上のアカウントリポジトリ。
// プロセス起動時に1つ生成して注入し、再起動をまたいだ永続化は行わない。
// 書き込みは単一のライターロックで直列化し、読み取りは並行に行える。
type MemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
}

// NewMemoryAccountRepo は空のMemoryAccountRepoを生成する。
func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{
		accounts: make(map[string]model.Account),
	}
}

// FindByEmail は正規化済みメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
// 返り値はコピーであり、呼び出し側が変更してもストアには影響しない。
func (r *MemoryAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[model.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

// Create はアカウントを作成する。
// 同じメールアドレスのアカウントが既に存在する場合はmodel.ErrAccountExistsを返す。
func (r *MemoryAccountRepo) Create(ctx context.Context, account *model.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if account == nil || account.Email == "" {
		return fmt.Errorf("account email is required")
	}

	key := model.NormalizeEmail(account.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[key]; exists {
		return model.ErrAccountExists
	}

	stored := *account
	stored.Email = key
	r.accounts[key] = stored
	return nil
}

// FindOrCreate は同じメールアドレスのアカウントがあればそれを返し、なければaccountを作成する。
func (r *MemoryAccountRepo) FindOrCreate(ctx context.Context, account *model.Account) (*model.Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if account == nil || account.Email == "" {
		return nil, false, fmt.Errorf("account email is required")
	}

	key := model.NormalizeEmail(account.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.accounts[key]; exists {
		return &existing, false, nil
	}

	stored := *account
	stored.Email = key
	r.accounts[key] = stored
	return &stored, true, nil
}

// Count は保存されているアカウント数を返す。
func (r *MemoryAccountRepo) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts), nil
}

// compile-time interface check
var _ AccountRepository = (*MemoryAccountRepo)(nil)
