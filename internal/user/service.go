// Package user はユーザー登録とフィルタ設定のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/jobradar/internal/model"
	"github.com/hitoshi/jobradar/internal/repository"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
	logger       *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, categoryRepo repository.CategoryRepository, logger *slog.Logger) *Service {
	return &Service{
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
		logger:       logger,
	}
}

// Register はユーザーを登録する。既存ユーザーの場合はプロフィールを
// 更新するだけで、フィルタや通知設定には触れない。
func (s *Service) Register(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	u := &model.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		IsActive:   true,
	}

	registered, err := s.userRepo.Upsert(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの登録に失敗しました: %w", err)
	}

	s.logger.Info("ユーザーを登録しました",
		slog.Int64("telegram_id", telegramID),
	)

	return registered, nil
}

// Get は指定のTelegram IDのユーザーをフィルタ付きで取得する。
// 存在しない場合はErrUserNotFoundを返す。
func (s *Service) Get(ctx context.Context, telegramID int64) (*model.User, error) {
	u, err := s.userRepo.FindByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(telegramID)
	}
	return u, nil
}

// AddCategoryFilter はカテゴリフィルタを追加する。
// すでに同じフィルタを持っていた場合はfalseを返す。
func (s *Service) AddCategoryFilter(ctx context.Context, telegramID int64, name string) (bool, error) {
	added, err := s.userRepo.AddCategoryFilter(ctx, telegramID, name)
	if err != nil {
		return false, fmt.Errorf("カテゴリフィルタの追加に失敗しました: %w", err)
	}
	return added, nil
}

// RemoveCategoryFilter はカテゴリフィルタを削除する。
// フィルタを持っていなかった場合はfalseを返す。
func (s *Service) RemoveCategoryFilter(ctx context.Context, telegramID int64, name string) (bool, error) {
	removed, err := s.userRepo.RemoveCategoryFilter(ctx, telegramID, name)
	if err != nil {
		return false, fmt.Errorf("カテゴリフィルタの削除に失敗しました: %w", err)
	}
	return removed, nil
}

// AddKeywordFilter はキーワードフィルタを追加する。
func (s *Service) AddKeywordFilter(ctx context.Context, telegramID int64, word string) (bool, error) {
	added, err := s.userRepo.AddKeywordFilter(ctx, telegramID, word)
	if err != nil {
		return false, fmt.Errorf("キーワードフィルタの追加に失敗しました: %w", err)
	}
	return added, nil
}

// RemoveKeywordFilter はキーワードフィルタを削除する。
func (s *Service) RemoveKeywordFilter(ctx context.Context, telegramID int64, word string) (bool, error) {
	removed, err := s.userRepo.RemoveKeywordFilter(ctx, telegramID, word)
	if err != nil {
		return false, fmt.Errorf("キーワードフィルタの削除に失敗しました: %w", err)
	}
	return removed, nil
}

// ClearFilters はユーザーの全フィルタを削除する。
// フィルタを1つも持っていなかった場合はfalseを返す。
func (s *Service) ClearFilters(ctx context.Context, telegramID int64) (bool, error) {
	cleared, err := s.userRepo.ClearFilters(ctx, telegramID)
	if err != nil {
		return false, fmt.Errorf("フィルタの削除に失敗しました: %w", err)
	}
	return cleared, nil
}

// Pause は通知を一時停止する。フィルタ設定は保持される。
func (s *Service) Pause(ctx context.Context, telegramID int64) error {
	if _, err := s.userRepo.SetActive(ctx, telegramID, false); err != nil {
		return fmt.Errorf("通知の一時停止に失敗しました: %w", err)
	}
	s.logger.Info("通知を一時停止しました",
		slog.Int64("telegram_id", telegramID),
	)
	return nil
}

// Resume は通知を再開する。
func (s *Service) Resume(ctx context.Context, telegramID int64) error {
	if _, err := s.userRepo.SetActive(ctx, telegramID, true); err != nil {
		return fmt.Errorf("通知の再開に失敗しました: %w", err)
	}
	s.logger.Info("通知を再開しました",
		slog.Int64("telegram_id", telegramID),
	)
	return nil
}

// ListCategories は登録済みの全カテゴリを名前昇順で返す。
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}
