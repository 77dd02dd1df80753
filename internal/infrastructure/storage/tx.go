package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
)

// sqlTx implements ports.UpdateTx over a single database transaction.
type sqlTx struct {
	store *SQLStore
	tx    *sql.Tx
	ctx   context.Context
}

var _ ports.UpdateTx = (*sqlTx)(nil)

func (t *sqlTx) InsertArticle(article *domain.Article) error {
	b := t.store.sb.Insert("articles").
		Columns("author", "title", "keywords", "content_hash", "status", "submitted_at").
		Values(string(article.Author), article.Title, joinTags(article.Keywords),
			article.ContentHash, string(article.Status), article.SubmittedAt)

	id, err := t.insertReturningID(b)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	article.ID = id
	return t.saveRelations(*article)
}

func (t *sqlTx) SaveArticle(article domain.Article) error {
	query, args, err := t.store.sb.Update("articles").
		Set("title", article.Title).
		Set("keywords", joinTags(article.Keywords)).
		Set("content_hash", article.ContentHash).
		Set("status", string(article.Status)).
		Where(sq.Eq{"id": article.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build article update: %w", err)
	}

	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	if affected == 0 {
		return domain.Errorf(domain.KindNotFound, "article %d not found", article.ID)
	}
	return t.saveRelations(article)
}

// saveRelations rewrites the reviewers and reviews child rows. Both lists are
// append-only upstream, so delete-and-reinsert keeps ordering trivially.
func (t *sqlTx) saveRelations(article domain.Article) error {
	for _, table := range []string{"article_reviewers", "reviews"} {
		query, args, err := t.store.sb.Delete(table).Where(sq.Eq{"article_id": article.ID}).ToSql()
		if err != nil {
			return fmt.Errorf("build %s delete: %w", table, err)
		}
		if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for position, reviewer := range article.Reviewers {
		query, args, err := t.store.sb.Insert("article_reviewers").
			Columns("article_id", "principal", "position").
			Values(article.ID, string(reviewer), position).ToSql()
		if err != nil {
			return fmt.Errorf("build reviewer insert: %w", err)
		}
		if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
			return fmt.Errorf("insert reviewer: %w", err)
		}
	}

	for position, review := range article.Reviews {
		query, args, err := t.store.sb.Insert("reviews").
			Columns("article_id", "reviewer", "decision", "comments", "created_at", "position").
			Values(article.ID, string(review.Reviewer), string(review.Decision),
				review.Comments, review.At, position).ToSql()
		if err != nil {
			return fmt.Errorf("build review insert: %w", err)
		}
		if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertProfile(profile domain.Profile) error {
	existsQuery, args, err := t.store.sb.Select("1").From("profiles").
		Where(sq.Eq{"principal": string(profile.Principal)}).ToSql()
	if err != nil {
		return fmt.Errorf("build profile check: %w", err)
	}
	var one int
	err = t.tx.QueryRowContext(t.ctx, existsQuery, args...).Scan(&one)
	if err == nil {
		return domain.Errorf(domain.KindAlreadyRegistered, "profile %s already exists", profile.Principal)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check profile: %w", err)
	}

	query, args, err := t.store.sb.Insert("profiles").
		Columns("principal", "name", "expertise", "reputation", "reviewing_count").
		Values(string(profile.Principal), profile.Name, joinTags(profile.Expertise),
			profile.Reputation, profile.ReviewingCount).ToSql()
	if err != nil {
		return fmt.Errorf("build profile insert: %w", err)
	}
	if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (t *sqlTx) AdjustReviewingCount(principal domain.Principal, delta int) (bool, error) {
	query, args, err := t.store.sb.Update("profiles").
		Set("reviewing_count", sq.Expr("reviewing_count + ?", delta)).
		Where(sq.Eq{"principal": string(principal)}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build count update: %w", err)
	}
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("adjust reviewing count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adjust reviewing count: %w", err)
	}
	if affected == 0 {
		return false, domain.Errorf(domain.KindNotFound, "profile %s not found", principal)
	}

	clampQuery, clampArgs, err := t.store.sb.Update("profiles").
		Set("reviewing_count", 0).
		Where(sq.And{sq.Eq{"principal": string(principal)}, sq.Lt{"reviewing_count": 0}}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build clamp update: %w", err)
	}
	res, err = t.tx.ExecContext(t.ctx, clampQuery, clampArgs...)
	if err != nil {
		return false, fmt.Errorf("clamp reviewing count: %w", err)
	}
	clamped, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clamp reviewing count: %w", err)
	}
	return clamped > 0, nil
}

func (t *sqlTx) AddReputation(principal domain.Principal, delta int) error {
	query, args, err := t.store.sb.Update("profiles").
		Set("reputation", sq.Expr("reputation + ?", delta)).
		Where(sq.Eq{"principal": string(principal)}).ToSql()
	if err != nil {
		return fmt.Errorf("build reputation update: %w", err)
	}
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return fmt.Errorf("add reputation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add reputation: %w", err)
	}
	if affected == 0 {
		return domain.Errorf(domain.KindNotFound, "profile %s not found", principal)
	}
	return nil
}

func (t *sqlTx) InsertNotification(notification *domain.Notification) error {
	b := t.store.sb.Insert("notifications").
		Columns("recipient", "message", "created_at", "is_read").
		Values(string(notification.Recipient), notification.Message, notification.At, notification.IsRead)

	id, err := t.insertReturningID(b)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	notification.ID = id
	return nil
}

func (t *sqlTx) MarkNotificationsRead(recipient domain.Principal, ids []uint64) (int, error) {
	query, args, err := t.store.sb.Update("notifications").
		Set("is_read", true).
		Where(sq.Eq{"recipient": string(recipient), "is_read": false, "id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build mark read: %w", err)
	}
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return int(affected), nil
}

// insertReturningID bridges the driver split: postgres supports RETURNING,
// sqlite reports the id through LastInsertId.
func (t *sqlTx) insertReturningID(b sq.InsertBuilder) (uint64, error) {
	if t.store.driver == "postgres" {
		query, args, err := b.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}
		var id uint64
		if err := t.tx.QueryRowContext(t.ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
