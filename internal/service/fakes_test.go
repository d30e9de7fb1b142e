package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

var (
	adminActor     = &models.Actor{ID: "admin-1", Username: "root", Email: "root@example.com", Role: models.RoleAdmin}
	moderatorActor = &models.Actor{ID: "mod-1", Username: "mod", Email: "mod@example.com", Role: models.RoleModerator}
)

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []models.ModerationLog
	err     error
}

func (f *fakeLogRepo) Create(ctx context.Context, entry *models.ModerationLog) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == "" {
		entry.ID = "log-" + string(rune('a'+len(f.entries)))
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogRepo) FindByID(ctx context.Context, id string) (*models.ModerationLog, error) {
	for _, e := range f.entries {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLogRepo) match(filter models.ModerationLogFilter) []models.ModerationLog {
	var out []models.ModerationLog
	for _, e := range f.entries {
		if filter.AdminUserID != "" && e.AdminUserID != filter.AdminUserID {
			continue
		}
		if filter.PostID != "" && (e.PostID == nil || *e.PostID != filter.PostID) {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.From != nil && e.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (f *fakeLogRepo) List(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, int, error) {
	out := f.match(filter)
	return out, len(out), nil
}

func (f *fakeLogRepo) ListAll(ctx context.Context, filter models.ModerationLogFilter, limit int) ([]models.ModerationLog, error) {
	out := f.match(filter)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLogRepo) Count(ctx context.Context, filter models.ModerationLogFilter) (int64, error) {
	return int64(len(f.match(filter))), nil
}

func (f *fakeLogRepo) CountDistinctAdmins(ctx context.Context) (int64, error) {
	seen := map[string]struct{}{}
	for _, e := range f.entries {
		seen[e.AdminUserID] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (f *fakeLogRepo) CountDistinctPosts(ctx context.Context, filter models.ModerationLogFilter) (int64, error) {
	seen := map[string]struct{}{}
	for _, e := range f.match(filter) {
		if e.PostID != nil {
			seen[*e.PostID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (f *fakeLogRepo) CountDistinctReposts(ctx context.Context, filter models.ModerationLogFilter) (int64, error) {
	seen := map[string]struct{}{}
	for _, e := range f.match(filter) {
		if e.RepostID != nil {
			seen[*e.RepostID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (f *fakeLogRepo) CountByAction(ctx context.Context, filter models.ModerationLogFilter) ([]models.ActionCount, error) {
	counts := map[models.ModerationAction]int64{}
	for _, e := range f.match(filter) {
		counts[e.Action]++
	}
	out := make([]models.ActionCount, 0, len(counts))
	for action, n := range counts {
		out = append(out, models.ActionCount{Action: action, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out, nil
}

func (f *fakeLogRepo) actions() []models.ModerationAction {
	out := make([]models.ModerationAction, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeSectionRepo struct {
	sections map[string]*models.Section
}

func newFakeSectionRepo(sections ...models.Section) *fakeSectionRepo {
	repo := &fakeSectionRepo{sections: map[string]*models.Section{}}
	for i := range sections {
		s := sections[i]
		repo.sections[s.ID] = &s
	}
	return repo
}

func (f *fakeSectionRepo) List(ctx context.Context) ([]models.Section, error) {
	out := make([]models.Section, 0, len(f.sections))
	for _, s := range f.sections {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionType < out[j].SectionType })
	return out, nil
}

func (f *fakeSectionRepo) ListByStatus(ctx context.Context, status models.SectionStatus) ([]models.Section, error) {
	all, _ := f.List(ctx)
	var out []models.Section
	for _, s := range all {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSectionRepo) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if s, ok := f.sections[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSectionRepo) FindByType(ctx context.Context, t models.SectionType) (*models.Section, error) {
	for _, s := range f.sections {
		if s.SectionType == t {
			c := *s
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSectionRepo) CreateIfMissing(ctx context.Context, section *models.Section) (bool, error) {
	if _, err := f.FindByType(ctx, section.SectionType); err == nil {
		return false, nil
	}
	c := *section
	f.sections[c.ID] = &c
	return true, nil
}

func (f *fakeSectionRepo) UpdateStatus(ctx context.Context, id string, status models.SectionStatus) error {
	s, ok := f.sections[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Status = status
	return nil
}

func (f *fakeSectionRepo) IncrementPostCount(ctx context.Context, id string) error {
	s, ok := f.sections[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.PostCount++
	return nil
}

func (f *fakeSectionRepo) DecrementPostCount(ctx context.Context, id string) error {
	s, ok := f.sections[id]
	if !ok {
		return sql.ErrNoRows
	}
	if s.PostCount > 0 {
		s.PostCount--
	}
	return nil
}

type fakePostRepo struct {
	posts map[string]*models.Post
}

func newFakePostRepo(posts ...models.Post) *fakePostRepo {
	repo := &fakePostRepo{posts: map[string]*models.Post{}}
	for i := range posts {
		p := posts[i]
		repo.posts[p.ID] = &p
	}
	return repo
}

func (f *fakePostRepo) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if p, ok := f.posts[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakePostRepo) List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error) {
	var out []models.Post
	for _, p := range f.posts {
		if len(filter.Statuses) > 0 {
			visible := false
			for _, s := range filter.Statuses {
				if p.ApprovalStatus == s {
					visible = true
				}
			}
			if !visible {
				continue
			}
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *fakePostRepo) Create(ctx context.Context, post *models.Post) error {
	c := *post
	f.posts[c.ID] = &c
	return nil
}

func (f *fakePostRepo) Update(ctx context.Context, post *models.Post) error {
	if _, ok := f.posts[post.ID]; !ok {
		return sql.ErrNoRows
	}
	c := *post
	f.posts[c.ID] = &c
	return nil
}

func (f *fakePostRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) IncrementReplyCount(ctx context.Context, id string) error {
	p, ok := f.posts[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.ReplyCount++
	return nil
}

func (f *fakePostRepo) DecrementReplyCount(ctx context.Context, id string) error {
	p, ok := f.posts[id]
	if !ok {
		return sql.ErrNoRows
	}
	if p.ReplyCount > 0 {
		p.ReplyCount--
	}
	return nil
}

type fakeRepostRepo struct {
	reposts map[string]*models.Repost
}

func newFakeRepostRepo(reposts ...models.Repost) *fakeRepostRepo {
	repo := &fakeRepostRepo{reposts: map[string]*models.Repost{}}
	for i := range reposts {
		r := reposts[i]
		repo.reposts[r.ID] = &r
	}
	return repo
}

func (f *fakeRepostRepo) FindByID(ctx context.Context, id string) (*models.Repost, error) {
	if r, ok := f.reposts[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepostRepo) List(ctx context.Context, filter models.RepostFilter) ([]models.Repost, int, error) {
	var out []models.Repost
	for _, r := range f.reposts {
		if filter.PostID != "" && r.PostID != filter.PostID {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeRepostRepo) Create(ctx context.Context, repost *models.Repost) error {
	c := *repost
	f.reposts[c.ID] = &c
	return nil
}

func (f *fakeRepostRepo) Update(ctx context.Context, repost *models.Repost) error {
	if _, ok := f.reposts[repost.ID]; !ok {
		return sql.ErrNoRows
	}
	c := *repost
	f.reposts[c.ID] = &c
	return nil
}

func (f *fakeRepostRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.reposts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.reposts, id)
	return nil
}

func (f *fakeRepostRepo) FileKeysByPost(ctx context.Context, postID string) ([]string, error) {
	var keys []string
	for _, r := range f.reposts {
		if r.PostID == postID && r.HasFile() {
			keys = append(keys, *r.FileURL)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// fakeMedia stands in for FileService inside post and repost tests.
type fakeMedia struct {
	saved     []string
	deleted   []string
	saveErr   error
	deleteErr error
}

func (f *fakeMedia) Save(upload *dto.FileUpload) (string, models.FileType, error) {
	if f.saveErr != nil {
		return "", "", f.saveErr
	}
	ext := strings.TrimPrefix(strings.ToLower(upload.Filename[strings.LastIndex(upload.Filename, "."):]), ".")
	name := "stored-" + upload.Filename
	f.saved = append(f.saved, name)
	return name, models.FileTypeFromExtension(ext), nil
}

func (f *fakeMedia) Delete(name string) error {
	if f.deleteErr != nil {
		return appErrors.Wrap(f.deleteErr, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "failed to delete file")
	}
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeAdminRepo struct {
	users       map[string]*models.AdminUser
	loginsByID  map[string]time.Time
	updateCalls int
}

func newFakeAdminRepo(users ...models.AdminUser) *fakeAdminRepo {
	repo := &fakeAdminRepo{users: map[string]*models.AdminUser{}, loginsByID: map[string]time.Time{}}
	for i := range users {
		u := users[i]
		repo.users[u.ID] = &u
	}
	return repo
}

func (f *fakeAdminRepo) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	if u, ok := f.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAdminRepo) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	for _, u := range f.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAdminRepo) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAdminRepo) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAdminRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAdminRepo) List(ctx context.Context, filter models.AdminUserFilter) ([]models.AdminUser, int, error) {
	var out []models.AdminUser
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeAdminRepo) Stats(ctx context.Context) (*models.AdminUserStats, error) {
	stats := &models.AdminUserStats{Total: len(f.users)}
	for _, u := range f.users {
		if u.AccountEnabled {
			stats.Enabled++
		}
	}
	return stats, nil
}

func (f *fakeAdminRepo) Create(ctx context.Context, user *models.AdminUser) error {
	c := *user
	f.users[c.ID] = &c
	return nil
}

func (f *fakeAdminRepo) Update(ctx context.Context, user *models.AdminUser) error {
	if _, ok := f.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	f.updateCalls++
	c := *user
	f.users[c.ID] = &c
	return nil
}

func (f *fakeAdminRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeAdminRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

func (f *fakeAdminRepo) RecordLogin(ctx context.Context, id string, ts time.Time) error {
	f.loginsByID[id] = ts
	return nil
}

type fakeResetCodes struct {
	codes         []*models.PasswordResetCode
	deletedAdmins []string
	purgeCutoff   time.Time
}

func (f *fakeResetCodes) Create(ctx context.Context, code *models.PasswordResetCode) error {
	c := *code
	f.codes = append(f.codes, &c)
	return nil
}

func (f *fakeResetCodes) FindUsable(ctx context.Context, adminUserID, value string, now time.Time) (*models.PasswordResetCode, error) {
	for i := len(f.codes) - 1; i >= 0; i-- {
		c := f.codes[i]
		if c.AdminUserID == adminUserID && c.Code == value && !c.IsUsed && c.ExpiresAt.After(now) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeResetCodes) InvalidateUnused(ctx context.Context, adminUserID string) (int64, error) {
	var n int64
	for _, c := range f.codes {
		if c.AdminUserID == adminUserID && !c.IsUsed {
			c.IsUsed = true
			n++
		}
	}
	return n, nil
}

func (f *fakeResetCodes) MarkUsed(ctx context.Context, id string) error {
	for _, c := range f.codes {
		if c.ID == id && !c.IsUsed {
			c.IsUsed = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeResetCodes) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.purgeCutoff = cutoff
	kept := f.codes[:0]
	var n int64
	for _, c := range f.codes {
		if c.ExpiresAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	f.codes = kept
	return n, nil
}

func (f *fakeResetCodes) DeleteByAdmin(ctx context.Context, adminUserID string) error {
	f.deletedAdmins = append(f.deletedAdmins, adminUserID)
	return nil
}

type sentCode struct {
	To   string
	Kind NotificationKind
	Code string
}

type fakeNotifier struct {
	sent []sentCode
	err  error
}

func (f *fakeNotifier) SendCode(ctx context.Context, to string, kind NotificationKind, code string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCode{To: to, Kind: kind, Code: code})
	return nil
}

type fakeCacheRepo struct {
	values map[string]bool
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (f *fakeCacheRepo) TrySet(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.values == nil {
		f.values = map[string]bool{}
	}
	if f.values[key] {
		return false, nil
	}
	f.values[key] = true
	return true, nil
}

func (f *fakeCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

var errDisk = errors.New("disk unavailable")
