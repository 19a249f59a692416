package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/jobradar/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
// フィルタ変更系の各メソッドは1トランザクションで実行する。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByTelegramID は指定のTelegram IDのユーザーをフィルタ付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := r.findUser(ctx, telegramID)
	if err != nil || user == nil {
		return user, err
	}

	if err := r.loadFilters(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// findUser はユーザー行だけを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) findUser(ctx context.Context, telegramID int64) (*model.User, error) {
	user := &model.User{}
	var username, firstName, lastName sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, first_name, last_name, is_active, created_at, updated_at
		 FROM users WHERE telegram_id = $1`, telegramID,
	).Scan(
		&user.ID, &user.TelegramID, &username, &firstName, &lastName,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	user.Username = nullStringValue(username)
	user.FirstName = nullStringValue(firstName)
	user.LastName = nullStringValue(lastName)
	return user, nil
}

// loadFilters はユーザーのカテゴリ・キーワードフィルタを読み込む。
func (r *PostgresUserRepo) loadFilters(ctx context.Context, user *model.User) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name FROM categories c
		 JOIN user_categories uc ON uc.category_id = c.id
		 WHERE uc.user_id = $1 ORDER BY c.name`, user.ID,
	)
	if err != nil {
		return fmt.Errorf("カテゴリフィルタの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return fmt.Errorf("カテゴリフィルタの読み取りに失敗しました: %w", err)
		}
		user.Categories = append(user.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("カテゴリフィルタの走査に失敗しました: %w", err)
	}

	kwRows, err := r.db.QueryContext(ctx,
		`SELECT k.id, k.word FROM keywords k
		 JOIN user_keywords uk ON uk.keyword_id = k.id
		 WHERE uk.user_id = $1 ORDER BY k.word`, user.ID,
	)
	if err != nil {
		return fmt.Errorf("キーワードフィルタの取得に失敗しました: %w", err)
	}
	defer kwRows.Close()

	for kwRows.Next() {
		var k model.Keyword
		if err := kwRows.Scan(&k.ID, &k.Word); err != nil {
			return fmt.Errorf("キーワードフィルタの読み取りに失敗しました: %w", err)
		}
		user.Keywords = append(user.Keywords, k)
	}
	if err := kwRows.Err(); err != nil {
		return fmt.Errorf("キーワードフィルタの走査に失敗しました: %w", err)
	}

	return nil
}

// Upsert はユーザーを登録、既存の場合はプロフィールを上書き更新する。
// 空のプロフィールフィールドでは既存値を維持する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	id := uuid.New().String()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, telegram_id, username, first_name, last_name, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		 ON CONFLICT (telegram_id) DO UPDATE SET
		   username   = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
		   first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
		   last_name  = COALESCE(NULLIF(EXCLUDED.last_name, ''), users.last_name),
		   updated_at = EXCLUDED.updated_at`,
		id, user.TelegramID,
		nullString(user.Username), nullString(user.FirstName), nullString(user.LastName),
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの登録に失敗しました: %w", err)
	}

	return r.FindByTelegramID(ctx, user.TelegramID)
}

// ListActive は通知が有効な全ユーザーをフィルタ付きで返す。
func (r *PostgresUserRepo) ListActive(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, telegram_id, username, first_name, last_name, is_active, created_at, updated_at
		 FROM users WHERE is_active = TRUE ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("有効ユーザー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		var username, firstName, lastName sql.NullString
		if err := rows.Scan(
			&user.ID, &user.TelegramID, &username, &firstName, &lastName,
			&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ユーザー行の読み取りに失敗しました: %w", err)
		}
		user.Username = nullStringValue(username)
		user.FirstName = nullStringValue(firstName)
		user.LastName = nullStringValue(lastName)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("有効ユーザー一覧の走査に失敗しました: %w", err)
	}

	for _, user := range users {
		if err := r.loadFilters(ctx, user); err != nil {
			return nil, err
		}
	}

	return users, nil
}

// AddCategoryFilter はユーザーにカテゴリフィルタを追加する。
// カテゴリの遅延生成と関連付けを1トランザクションで行う。
func (r *PostgresUserRepo) AddCategoryFilter(ctx context.Context, telegramID int64, name string) (bool, error) {
	return r.addFilter(ctx, telegramID, name,
		`SELECT id FROM categories WHERE lower(name) = lower($1)`,
		`INSERT INTO categories (id, name) VALUES ($1, $2)`,
		`INSERT INTO user_categories (user_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
	)
}

// AddKeywordFilter はユーザーにキーワードフィルタを追加する。
// キーワードの遅延生成と関連付けを1トランザクションで行う。
func (r *PostgresUserRepo) AddKeywordFilter(ctx context.Context, telegramID int64, word string) (bool, error) {
	return r.addFilter(ctx, telegramID, word,
		`SELECT id FROM keywords WHERE lower(word) = lower($1)`,
		`INSERT INTO keywords (id, word) VALUES ($1, $2)`,
		`INSERT INTO user_keywords (user_id, keyword_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
	)
}

// addFilter はフィルタ追加の共通処理。
// 対象（カテゴリまたはキーワード）を大文字小文字を区別せず解決し、
// 未登録なら生成してから関連付ける。すでに持っている場合はfalseを返す。
func (r *PostgresUserRepo) addFilter(ctx context.Context, telegramID int64, value, selectSQL, insertSQL, linkSQL string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	userID, err := r.userIDInTx(ctx, tx, telegramID)
	if err != nil {
		return false, err
	}

	var targetID string
	err = tx.QueryRowContext(ctx, selectSQL, value).Scan(&targetID)
	if err == sql.ErrNoRows {
		targetID = uuid.New().String()
		if _, err := tx.ExecContext(ctx, insertSQL, targetID, value); err != nil {
			return false, fmt.Errorf("フィルタ対象の作成に失敗しました: %w", err)
		}
	} else if err != nil {
		return false, fmt.Errorf("フィルタ対象の検索に失敗しました: %w", err)
	}

	res, err := tx.ExecContext(ctx, linkSQL, userID, targetID)
	if err != nil {
		return false, fmt.Errorf("フィルタの関連付けに失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("フィルタ追加結果の確認に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	// affected == 0 はすでに同じフィルタを持っていた場合
	return affected > 0, nil
}

// RemoveCategoryFilter はユーザーのカテゴリフィルタを削除する。
func (r *PostgresUserRepo) RemoveCategoryFilter(ctx context.Context, telegramID int64, name string) (bool, error) {
	return r.removeFilter(ctx, telegramID, name,
		`DELETE FROM user_categories
		 WHERE user_id = $1
		   AND category_id = (SELECT id FROM categories WHERE lower(name) = lower($2))`,
	)
}

// RemoveKeywordFilter はユーザーのキーワードフィルタを削除する。
func (r *PostgresUserRepo) RemoveKeywordFilter(ctx context.Context, telegramID int64, word string) (bool, error) {
	return r.removeFilter(ctx, telegramID, word,
		`DELETE FROM user_keywords
		 WHERE user_id = $1
		   AND keyword_id = (SELECT id FROM keywords WHERE lower(word) = lower($2))`,
	)
}

// removeFilter はフィルタ削除の共通処理。
func (r *PostgresUserRepo) removeFilter(ctx context.Context, telegramID int64, value, deleteSQL string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	userID, err := r.userIDInTx(ctx, tx, telegramID)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, deleteSQL, userID, value)
	if err != nil {
		return false, fmt.Errorf("フィルタの削除に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("フィルタ削除結果の確認に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return affected > 0, nil
}

// ClearFilters はユーザーの全フィルタを1トランザクションで削除する。
// 削除対象のフィルタが1つもなかった場合はfalseを返す。
func (r *PostgresUserRepo) ClearFilters(ctx context.Context, telegramID int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	userID, err := r.userIDInTx(ctx, tx, telegramID)
	if err != nil {
		return false, err
	}

	catRes, err := tx.ExecContext(ctx, `DELETE FROM user_categories WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("カテゴリフィルタの全削除に失敗しました: %w", err)
	}
	kwRes, err := tx.ExecContext(ctx, `DELETE FROM user_keywords WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("キーワードフィルタの全削除に失敗しました: %w", err)
	}

	catAffected, err := catRes.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("フィルタ削除結果の確認に失敗しました: %w", err)
	}
	kwAffected, err := kwRes.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("フィルタ削除結果の確認に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return catAffected+kwAffected > 0, nil
}

// SetActive はユーザーの通知有効フラグを設定する。
func (r *PostgresUserRepo) SetActive(ctx context.Context, telegramID int64, active bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = now() WHERE telegram_id = $2`,
		active, telegramID,
	)
	if err != nil {
		return false, fmt.Errorf("通知フラグの更新に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("通知フラグ更新結果の確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return false, model.NewUserNotFoundError(telegramID)
	}
	return true, nil
}

// userIDInTx はトランザクション内でTelegram IDから内部ユーザーIDを引く。
// ユーザー行をロックし、同一ユーザーへの並行フィルタ操作を直列化する。
func (r *PostgresUserRepo) userIDInTx(ctx context.Context, tx *sql.Tx, telegramID int64) (string, error) {
	var userID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE telegram_id = $1 FOR UPDATE`, telegramID,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", model.NewUserNotFoundError(telegramID)
	}
	if err != nil {
		return "", fmt.Errorf("ユーザーIDの取得に失敗しました: %w", err)
	}
	return userID, nil
}
