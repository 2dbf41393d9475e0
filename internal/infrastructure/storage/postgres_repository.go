package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const articlesTable = "articles"

const schema = `CREATE TABLE IF NOT EXISTS articles (
    url               TEXT PRIMARY KEY,
    feed_name         TEXT NOT NULL,
    category          TEXT NOT NULL DEFAULT '',
    title             TEXT NOT NULL,
    content           TEXT NOT NULL,
    summary           TEXT NOT NULL,
    keywords          TEXT[] NOT NULL DEFAULT '{}',
    published_at      TIMESTAMPTZ,
    processed_at      TIMESTAMPTZ NOT NULL,
    notification_sent BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS articles_processed_at_idx ON articles (processed_at DESC);`

// PostgresRepository persists processed articles into Postgres.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.ArticleStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects with the lib/pq driver and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the articles table when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate articles: %w", err)
	}
	return nil
}

// Exists reports whether url was already stored. It is a point-in-time read.
func (r *PostgresRepository) Exists(ctx context.Context, url string) (bool, error) {
	query, args, err := r.sb.Select("1").From(articlesTable).Where(sq.Eq{"url": url}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return true, nil
}

// InsertIfAbsent stores the article unless its url is already present.
// A conflict is not an error: it reports inserted=false.
func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, article domain.PersistedArticle) (bool, error) {
	var published any
	if article.PublishedAt != nil {
		published = article.PublishedAt.UTC()
	}
	processed := article.ProcessedAt
	if processed.IsZero() {
		processed = time.Now()
	}

	query, args, err := r.sb.Insert(articlesTable).
		Columns("url", "feed_name", "category", "title", "content", "summary", "keywords",
			"published_at", "processed_at", "notification_sent").
		Values(article.URL, article.FeedName, article.Category, article.Title, article.Content,
			article.Summary, pq.StringArray(article.Keywords), published, processed.UTC(), article.NotificationSent).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// MarkNotified flips notification_sent to true. Already-notified rows are left alone.
func (r *PostgresRepository) MarkNotified(ctx context.Context, url string) error {
	query, args, err := r.sb.Update(articlesTable).
		Set("notification_sent", true).
		Where(sq.Eq{"url": url}).
		Where(sq.Eq{"notification_sent": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark notified: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// Counts returns the number of stored and notified articles.
func (r *PostgresRepository) Counts(ctx context.Context) (stored, notified int, err error) {
	query, args, err := r.sb.
		Select("COUNT(*)", "COUNT(*) FILTER (WHERE notification_sent)").
		From(articlesTable).
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("build counts: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&stored, &notified); err != nil {
		return 0, 0, fmt.Errorf("query counts: %w", err)
	}
	return stored, notified, nil
}
