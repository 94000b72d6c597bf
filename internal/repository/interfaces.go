// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/be4breach/internal/model"
)

// AccountRepository はアカウントデータの保存先インターフェース。
// 書き込み系メソッドは「存在確認→挿入」を不可分に行うこと。
type AccountRepository interface {
	// FindByEmail は正規化済みメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// Create はアカウントを作成する。
	// 同じメールアドレスのアカウントが既に存在する場合はmodel.ErrAccountExistsを返す。
	Create(ctx context.Context, account *model.Account) error

	// FindOrCreate は同じメールアドレスのアカウントがあればそれを返し、なければaccountを作成する。
	// createdは新規作成した場合にtrueとなる。
	FindOrCreate(ctx context.Context, account *model.Account) (existing *model.Account, created bool, err error)

	// Count は保存されているアカウント数を返す。
	Count(ctx context.Context) (int, error)
}
