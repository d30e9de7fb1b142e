package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rchan-moderation-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestWithinTxCommitsAndSharesTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	tm := NewTxManager(db)
	sections := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET post_count = post_count + 1")).
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
		return tm.WithinTx(ctx, func(inner context.Context) error {
			return sections.IncrementPostCount(inner, "s1")
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	tm := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("file delete failed")
	err := tm.WithinTx(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionDecrementClampsAtZero(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET post_count = GREATEST(post_count - 1, 0)")).
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DecrementPostCount(context.Background(), "s1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET post_count = GREATEST(post_count - 1, 0)")).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DecrementPostCount(context.Background(), "missing"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionCreateIfMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec("INSERT INTO sections .* ON CONFLICT \\(section_type\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 0))
	created, err := repo.CreateIfMissing(context.Background(), &models.Section{SectionType: models.SectionGeneral, Status: models.SectionActive})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "section_id", "section_type", "title", "content", "file_url", "file_type", "file_status", "approval_status", "reply_count", "created_at", "updated_at"}).
		AddRow("p1", "s1", "GENERAL", "T", "hello", nil, nil, "UNKNOWN", "AUTO_APPROVED", 0, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(postSelect + " WHERE p.id = $1 LIMIT 1")).WithArgs("p1").WillReturnRows(rows)

	post, err := repo.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.SectionGeneral, post.SectionType)
	assert.Equal(t, "hello", *post.Content)
	assert.Nil(t, post.FileURL)
	assert.Equal(t, models.ApprovalAutoApproved, post.ApprovalStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostListVisibleInSection(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	sectionType := models.SectionNews
	cols := []string{"id", "section_id", "section_type", "title", "content", "file_url", "file_type", "file_status", "approval_status", "reply_count", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta(postSelect + " WHERE s.section_type = $1 AND p.approval_status = ANY($2) ORDER BY p.reply_count ASC LIMIT 10 OFFSET 10")).
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts p JOIN sections s ON s.id = p.section_id WHERE s.section_type = $1 AND p.approval_status = ANY($2)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	posts, total, err := repo.List(context.Background(), models.PostFilter{
		SectionType: &sectionType,
		Statuses:    models.VisibleStatuses,
		Page:        2,
		PageSize:    10,
		SortBy:      "replyCount",
		SortOrder:   "asc",
	})
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostSearchMatchesWildcardsLiterally(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	cols := []string{"id", "section_id", "section_type", "title", "content", "file_url", "file_type", "file_status", "approval_status", "reply_count", "created_at", "updated_at"}
	where := ` WHERE (LOWER(p.title) LIKE $1 ESCAPE '\' OR LOWER(COALESCE(p.content, '')) LIKE $1 ESCAPE '\')`
	mock.ExpectQuery(regexp.QuoteMeta(postSelect + where)).
		WithArgs(`%100\%\_off%`).
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts p JOIN sections s ON s.id = p.section_id" + where)).
		WithArgs(`%100\%\_off%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.PostFilter{Search: "100%_OFF"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostReplyCounterIsAtomic(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET reply_count = reply_count + 1 WHERE id = $1")).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET reply_count = GREATEST(reply_count - 1, 0) WHERE id = $1")).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementReplyCount(context.Background(), "p1"))
	require.NoError(t, repo.DecrementReplyCount(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModerationLogCreateAndList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewModerationLogRepository(db)

	mock.ExpectExec("INSERT INTO moderation_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	entry := &models.ModerationLog{Action: models.ActionPostCreated, AdminUserID: "a1", AdminUsername: "root"}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NotNil(t, entry.Details)

	now := time.Now()
	from := now.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "action", "admin_user_id", "admin_username", "post_id", "repost_id", "details", "created_at"}).
		AddRow("l1", "POST_UPDATED", "a1", "root", "p1", nil, []byte(`{"old":{"title":"a"},"new":{"title":"b"}}`), now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM moderation_logs WHERE admin_user_id = $1 AND created_at >= $2 AND created_at <= $3 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("a1", from, now).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM moderation_logs WHERE admin_user_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	logs, total, err := repo.List(context.Background(), models.ModerationLogFilter{AdminUserID: "a1", From: &from, To: &now})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "b", logs[0].Details["new"].(map[string]interface{})["title"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModerationLogAggregates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewModerationLogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT action, COUNT(*) AS count FROM moderation_logs WHERE admin_user_id = $1 GROUP BY action")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"action", "count"}).AddRow("POST_CREATED", 3).AddRow("POST_DELETED", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT post_id) FROM moderation_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT admin_user_id) FROM moderation_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	counts, err := repo.CountByAction(context.Background(), models.ModerationLogFilter{AdminUserID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, []models.ActionCount{{Action: models.ActionPostCreated, Count: 3}, {Action: models.ActionPostDeleted, Count: 1}}, counts)

	posts, err := repo.CountDistinctPosts(context.Background(), models.ModerationLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), posts)

	admins, err := repo.CountDistinctAdmins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), admins)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUserFindByUsernameAndLogin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "account_enabled", "email_verified", "verification_code", "verification_code_expires_at", "first_login", "last_login", "created_at", "updated_at"}).
		AddRow("a1", "root", "root@example.com", "hash", "ADMIN", true, true, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM admin_users WHERE username = $1 LIMIT 1")).WithArgs("root").WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE admin_users SET first_login = COALESCE(first_login, $2), last_login = $2")).
		WithArgs("a1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.FindByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Nil(t, user.FirstLogin)
	require.NoError(t, repo.RecordLogin(context.Background(), user.ID, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUserFindMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(db)

	mock.ExpectQuery("FROM admin_users WHERE LOWER\\(email\\)").WillReturnError(sql.ErrNoRows)
	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetInvalidateAndConsume(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPasswordResetRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE password_reset_codes SET is_used = TRUE WHERE admin_user_id = $1 AND is_used = FALSE")).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE password_reset_codes SET is_used = TRUE WHERE id = $1 AND is_used = FALSE")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM password_reset_codes WHERE expires_at < $1")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.InvalidateUnused(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), "c1"), sql.ErrNoRows)

	purged, err := repo.DeleteExpiredBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPagingHelpers(t *testing.T) {
	limit, offset := pageWindow(0, 500)
	assert.Equal(t, maxPageSize, limit)
	assert.Equal(t, 0, offset)
	limit, offset = pageWindow(3, 0)
	assert.Equal(t, defaultPageSize, limit)
	assert.Equal(t, 40, offset)

	assert.Equal(t, "created_at DESC", orderBy("password_hash; DROP", "sideways", adminUserSorts, "created_at"))
	assert.Equal(t, "username ASC", orderBy("username", "asc", adminUserSorts, "created_at"))

	assert.Equal(t, `%a\%b\_c\\d%`, containsPattern(`A%b_C\d`))
}
