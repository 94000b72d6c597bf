// Package account はアカウントディレクトリのドメインロジックを提供する。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/be4breach/internal/model"
	"github.com/hitoshi/be4breach/internal/repository"
)

// Hasher は保存前にパスワードをハッシュ化するインターフェース。
type Hasher interface {
	Hash(password string) (string, error)
}

// Directory はアカウントの検索と作成を行うサービス層。
// プロセス起動時に1つ生成して注入する。挿入の不可分性はリポジトリが保証する。
type Directory struct {
	repo   repository.AccountRepository
	hasher Hasher
	now    func() time.Time
}

// NewDirectory はDirectoryの新しいインスタンスを生成する。
func NewDirectory(repo repository.AccountRepository, hasher Hasher) *Directory {
	return &Directory{
		repo:   repo,
		hasher: hasher,
		now:    time.Now,
	}
}

// BootstrapAdmin は起動時に管理者アカウントを作成する。
// メールアドレスかパスワードが未設定、または同じメールアドレスのアカウントが既に存在する場合は何もしない。
func (d *Directory) BootstrapAdmin(ctx context.Context, email, password string) error {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		slog.Info("admin bootstrap skipped: ADMIN_EMAIL or ADMIN_PASSWORD is not set")
		return nil
	}

	existing, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("管理者アカウントの確認に失敗しました: %w", err)
	}
	if existing != nil {
		if existing.Role != model.RoleAdmin {
			slog.Warn("admin bootstrap skipped: account exists with another role",
				slog.String("email", email),
				slog.String("role", string(existing.Role)),
			)
		}
		return nil
	}

	_, err = d.CreatePasswordAccount(ctx, model.Registration{
		Name:     "Administrator",
		Email:    email,
		Password: password,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, model.ErrAccountExists) {
			return nil
		}
		return fmt.Errorf("管理者アカウントの作成に失敗しました: %w", err)
	}

	slog.Info("admin account bootstrapped", slog.String("email", email))
	return nil
}

// Lookup はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
func (d *Directory) Lookup(ctx context.Context, email string) (*model.Account, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	acc, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	return acc, nil
}

// CreatePasswordAccount はreg.Roleのパスワードアカウントを作成する。
// 同じメールアドレスのアカウントが存在する場合はmodel.ErrAccountExistsを返す。
// パスワードはハッシュ化してから保存する。
func (d *Directory) CreatePasswordAccount(ctx context.Context, reg model.Registration) (*model.Account, error) {
	email := model.NormalizeEmail(reg.Email)
	if email == "" {
		return nil, model.NewInvalidRequestError("email is required")
	}
	if !reg.Role.Valid() {
		return nil, model.NewInvalidRequestError("unknown role")
	}

	// ハッシュ計算の前に重複を確認する。最終的な重複判定はCreateが行う。
	existing, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.ErrAccountExists
	}

	hash, err := d.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	acc := d.newAccount(email, reg.Role, strings.TrimSpace(reg.Name), model.ProviderPassword)
	acc.PasswordHash = hash
	acc.Company = strings.TrimSpace(reg.Company)

	if err := d.repo.Create(ctx, acc); err != nil {
		if errors.Is(err, model.ErrAccountExists) {
			return nil, model.ErrAccountExists
		}
		return nil, fmt.Errorf("アカウントの作成に失敗しました: %w", err)
	}
	return acc, nil
}

// CreateOrReuseGoogleAccount はGoogle SSOのアカウントを作成、または既存アカウントを返す。
// 既存アカウントのロールがroleと異なる場合はmodel.ErrRoleConflictを返し、保存済みのロールは変更しない。
func (d *Directory) CreateOrReuseGoogleAccount(ctx context.Context, email string, role model.Role, name string) (*model.Account, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, model.ErrInvalidAssertion.WithCause(errors.New("identity has no email"))
	}
	if !role.Valid() {
		return nil, model.NewInvalidRequestError("unknown role")
	}

	candidate := d.newAccount(email, role, strings.TrimSpace(name), model.ProviderGoogle)
	acc, created, err := d.repo.FindOrCreate(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("SSOアカウントの作成に失敗しました: %w", err)
	}

	if created {
		slog.Info("google sso account created",
			slog.String("email", acc.Email),
			slog.String("role", string(acc.Role)),
		)
		return acc, nil
	}

	if acc.Role != role {
		return nil, model.ErrRoleConflict.WithCause(
			fmt.Errorf("account has role %q, requested %q", acc.Role, role))
	}
	return acc, nil
}

// Count は登録済みアカウント数を返す。
func (d *Directory) Count(ctx context.Context) (int, error) {
	n, err := d.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("アカウント数の取得に失敗しました: %w", err)
	}
	return n, nil
}

func (d *Directory) newAccount(email string, role model.Role, name string, provider model.Provider) *model.Account {
	return &model.Account{
		ID:        uuid.New().String(),
		Email:     email,
		Role:      role,
		Name:      name,
		Provider:  provider,
		IsActive:  true,
		CreatedAt: d.now().UTC(),
	}
}
