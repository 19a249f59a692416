package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/jobradar/internal/model"
)

// PostgresJobRepo はPostgreSQLを使用した求人リポジトリ。
type PostgresJobRepo struct {
	db *sql.DB
}

// NewPostgresJobRepo はPostgresJobRepoを生成する。
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

// InsertNew は求人バッチのうち未保存のものだけを1トランザクションで挿入する。
// 同一性判定とカテゴリ解決を同一トランザクション内で行い、
// エラー時はバッチ全体をロールバックして挿入数0を返す。
func (r *PostgresJobRepo) InsertNew(ctx context.Context, records []model.PartialJob, scrapedAt time.Time) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, rec := range records {
		exists, err := r.existsInTx(ctx, tx, rec)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}

		categoryID, err := r.resolveCategoryInTx(ctx, tx, rec.CategoryName)
		if err != nil {
			return 0, err
		}

		if err := r.insertInTx(ctx, tx, rec, categoryID, scrapedAt); err != nil {
			return 0, err
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return inserted, nil
}

// existsInTx はレコードが既に保存済みかを判定する。
// URLが最優先、なければ(external_id, source)。どちらもなければ常に未保存扱い。
func (r *PostgresJobRepo) existsInTx(ctx context.Context, tx *sql.Tx, rec model.PartialJob) (bool, error) {
	if rec.URL != "" {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM jobs WHERE url = $1)`, rec.URL,
		).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("URLによる求人の存在確認に失敗しました: %w", err)
		}
		return exists, nil
	}

	if rec.ExternalID != "" {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM jobs WHERE external_id = $1 AND source = $2)`,
			rec.ExternalID, rec.Source,
		).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("external_idによる求人の存在確認に失敗しました: %w", err)
		}
		return exists, nil
	}

	return false, nil
}

// resolveCategoryInTx はカテゴリ名をIDに解決する。未登録なら生成する。
// 名前が空の場合は空IDを返す。関連付けは名前ではなく解決済みIDで行う。
func (r *PostgresJobRepo) resolveCategoryInTx(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	if name == "" {
		return "", nil
	}

	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE lower(name) = lower($1)`, name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("カテゴリの検索に失敗しました: %w", err)
	}

	id = uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES ($1, $2)`, id, name,
	)
	if err != nil {
		return "", fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}

	return id, nil
}

// insertInTx は新規求人を挿入する。
func (r *PostgresJobRepo) insertInTx(ctx context.Context, tx *sql.Tx, rec model.PartialJob, categoryID string, scrapedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO jobs (id, title, company, location, description, url, source,
		                   external_id, category_id, posted_date, scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New().String(),
		rec.Title,
		nullString(rec.Company),
		nullString(rec.Location),
		nullString(rec.Description),
		rec.URL,
		rec.Source,
		nullString(rec.ExternalID),
		nullString(categoryID),
		nullTime(rec.PostedDate),
		scrapedAt,
	)
	if err != nil {
		return fmt.Errorf("求人の挿入に失敗しました: %w", err)
	}
	return nil
}

// ListScrapedSince はscraped_atがsince以降（境界を含む）の求人を返す。
func (r *PostgresJobRepo) ListScrapedSince(ctx context.Context, since time.Time, categoryIDs []string) ([]*model.Job, error) {
	query := `SELECT id, title, company, location, description, url, source,
	                 external_id, category_id, posted_date, scraped_at, created_at
	          FROM jobs`
	args := []any{}
	where := ""

	if !since.IsZero() {
		args = append(args, since)
		where = fmt.Sprintf(" WHERE scraped_at >= $%d", len(args))
	}
	if len(categoryIDs) > 0 {
		args = append(args, pq.Array(categoryIDs))
		if where == "" {
			where = fmt.Sprintf(" WHERE category_id = ANY($%d)", len(args))
		} else {
			where += fmt.Sprintf(" AND category_id = ANY($%d)", len(args))
		}
	}
	query += where + " ORDER BY scraped_at ASC, created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("求人一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("求人一覧の走査に失敗しました: %w", err)
	}

	return jobs, nil
}

// FindByURL は指定URLの求人を取得する。見つからない場合はnilを返す。
func (r *PostgresJobRepo) FindByURL(ctx context.Context, url string) (*model.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, company, location, description, url, source,
		        external_id, category_id, posted_date, scraped_at, created_at
		 FROM jobs WHERE url = $1`, url,
	)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CountAll は保存済み求人の総数を返す。
func (r *PostgresJobRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("求人数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob は求人1行をmodel.Jobに変換する。
func scanJob(row rowScanner) (*model.Job, error) {
	job := &model.Job{}
	var company, location, description, externalID, categoryID sql.NullString
	var postedDate sql.NullTime

	err := row.Scan(
		&job.ID, &job.Title, &company, &location, &description,
		&job.URL, &job.Source, &externalID, &categoryID,
		&postedDate, &job.ScrapedAt, &job.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("求人行の読み取りに失敗しました: %w", err)
	}

	job.Company = nullStringValue(company)
	job.Location = nullStringValue(location)
	job.Description = nullStringValue(description)
	job.ExternalID = nullStringValue(externalID)
	job.CategoryID = nullStringValue(categoryID)
	if postedDate.Valid {
		job.PostedDate = &postedDate.Time
	}

	return job, nil
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime はnilをNULLに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullStringValue はsql.NullStringを文字列に変換する。NULLは空文字列。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
