package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rchan-moderation-api/internal/dto"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
)

type postFixture struct {
	svc      *PostService
	posts    *fakePostRepo
	reposts  *fakeRepostRepo
	sections *fakeSectionRepo
	logs     *fakeLogRepo
	media    *fakeMedia
	tx       *fakeTx
}

func newPostFixture(posts ...models.Post) *postFixture {
	f := &postFixture{
		posts:   newFakePostRepo(posts...),
		reposts: newFakeRepostRepo(),
		sections: newFakeSectionRepo(
			models.Section{ID: "sec-general", SectionType: models.SectionGeneral, Status: models.SectionActive},
			models.Section{ID: "sec-tech", SectionType: models.SectionTechnology, Status: models.SectionActive, PostCount: 3},
			models.Section{ID: "sec-news", SectionType: models.SectionNews, Status: models.SectionInactive},
		),
		logs:  &fakeLogRepo{},
		media: &fakeMedia{},
		tx:    &fakeTx{},
	}
	f.svc = NewPostService(PostServiceDeps{
		Repo:     f.posts,
		Reposts:  f.reposts,
		Sections: NewSectionService(f.sections, nil, 0, nil),
		Files:    f.media,
		Logs:     NewModerationLogService(f.logs, nil, nil),
		Policy:   NewApprovalPolicy(NewContentValidator([]string{"spam"})),
		Tx:       f.tx,
	})
	return f
}

func TestPostCreateAutoApprovesCleanText(t *testing.T) {
	f := newPostFixture()
	content := "Hello world"

	post, err := f.svc.Create(context.Background(), moderatorActor, dto.CreatePostRequest{Title: "Greeting", Content: &content})
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalAutoApproved, post.ApprovalStatus)
	assert.Equal(t, models.FileUnknown, post.FileStatus)
	assert.Equal(t, models.SectionGeneral, post.SectionType)
	assert.Equal(t, 1, f.sections.sections["sec-general"].PostCount)
	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, models.ActionPostCreated, f.logs.entries[0].Action)
	assert.Equal(t, moderatorActor.ID, f.logs.entries[0].AdminUserID)
	assert.Equal(t, 1, f.tx.calls)
}

func TestPostCreateHoldsRestrictedText(t *testing.T) {
	f := newPostFixture()
	content := "cheap SPAM here"

	post, err := f.svc.Create(context.Background(), adminActor, dto.CreatePostRequest{Section: "technology", Title: "Offer", Content: &content})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, post.ApprovalStatus)
	assert.Equal(t, 4, f.sections.sections["sec-tech"].PostCount)
}

func TestPostCreateWithFileNeedsReview(t *testing.T) {
	f := newPostFixture()
	upload := &dto.FileUpload{Filename: "cat.png", ContentType: "image/png", Size: 4, Body: strings.NewReader("data")}

	post, err := f.svc.Create(context.Background(), adminActor, dto.CreatePostRequest{Title: "Cat", File: upload})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, post.ApprovalStatus)
	assert.Equal(t, models.FileVisible, post.FileStatus)
	require.NotNil(t, post.FileType)
	assert.Equal(t, models.FileTypePNG, *post.FileType)
	assert.Equal(t, []string{"stored-cat.png"}, f.media.saved)
}

func TestPostSubmitAnonymousIsNotLogged(t *testing.T) {
	f := newPostFixture()

	post, err := f.svc.Submit(context.Background(), nil, dto.CreatePostRequest{Title: "Anon"})
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.Empty(t, f.logs.entries)
}

func TestPostCreateRejectsInactiveSectionAndMissingActor(t *testing.T) {
	f := newPostFixture()

	_, err := f.svc.Create(context.Background(), adminActor, dto.CreatePostRequest{Section: "NEWS", Title: "Closed"})
	assert.ErrorIs(t, err, appErrors.ErrIllegalState)

	_, err = f.svc.Create(context.Background(), nil, dto.CreatePostRequest{Title: "No actor"})
	assert.ErrorIs(t, err, appErrors.ErrAuthenticationRequired)

	_, err = f.svc.Create(context.Background(), adminActor, dto.CreatePostRequest{Section: "unknown", Title: "Bad"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Empty(t, f.posts.posts)
	assert.Empty(t, f.logs.entries)
}

func TestPostDeleteFileFailureLeavesPostIntact(t *testing.T) {
	name := "stored.png"
	fileType := models.FileTypePNG
	f := newPostFixture(models.Post{
		ID: "p1", SectionID: "sec-tech", SectionType: models.SectionTechnology, Title: "Pic",
		FileURL: &name, FileType: &fileType, FileStatus: models.FileVisible, ApprovalStatus: models.ApprovalPending,
	})
	f.media.deleteErr = errDisk

	err := f.svc.Delete(context.Background(), adminActor, "p1")
	assert.ErrorIs(t, err, appErrors.ErrIOFailure)
	assert.Contains(t, f.posts.posts, "p1")
	assert.Equal(t, 3, f.sections.sections["sec-tech"].PostCount)
	assert.Empty(t, f.logs.entries)
}

func TestPostDeleteRemovesFilesAndDecrementsSection(t *testing.T) {
	name := "post.png"
	repostFile := "reply.mp4"
	fileType := models.FileTypePNG
	f := newPostFixture(models.Post{
		ID: "p1", SectionID: "sec-tech", SectionType: models.SectionTechnology, Title: "Pic",
		FileURL: &name, FileType: &fileType, ApprovalStatus: models.ApprovalApproved,
	})
	mp4 := models.FileTypeMP4
	f.reposts.reposts["r1"] = &models.Repost{ID: "r1", PostID: "p1", FileURL: &repostFile, FileType: &mp4}

	require.NoError(t, f.svc.Delete(context.Background(), adminActor, "p1"))
	assert.Equal(t, []string{"post.png", "reply.mp4"}, f.media.deleted)
	assert.NotContains(t, f.posts.posts, "p1")
	assert.Equal(t, 2, f.sections.sections["sec-tech"].PostCount)
	assert.Equal(t, []models.ModerationAction{models.ActionPostDeleted}, f.logs.actions())
}

func TestPostApproveTwiceIsIllegal(t *testing.T) {
	f := newPostFixture(models.Post{ID: "p1", SectionID: "sec-general", Title: "t", ApprovalStatus: models.ApprovalPending})
	ctx := context.Background()

	post, err := f.svc.Approve(ctx, moderatorActor, "p1", "fine")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, post.ApprovalStatus)

	_, err = f.svc.Approve(ctx, moderatorActor, "p1", "again")
	assert.ErrorIs(t, err, appErrors.ErrIllegalState)

	_, err = f.svc.Reject(ctx, moderatorActor, "p1", "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, []models.ModerationAction{models.ActionPostApproved, models.ActionPostRejected}, f.logs.actions())
	assert.Equal(t, "APPROVED", f.logs.entries[1].Details["previousStatus"])
}

func TestPostUpdateMovesSectionAndDeletesFile(t *testing.T) {
	name := "old.jpg"
	fileType := models.FileTypeJPG
	f := newPostFixture(models.Post{
		ID: "p1", SectionID: "sec-tech", SectionType: models.SectionTechnology, Title: "Old",
		FileURL: &name, FileType: &fileType, FileStatus: models.FileVisible, ApprovalStatus: models.ApprovalPending,
	})
	section := "general"
	fileStatus := "DELETE"
	title := "<b>New</b>"

	post, err := f.svc.Update(context.Background(), adminActor, "p1", dto.UpdatePostRequest{Section: &section, FileStatus: &fileStatus, Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "New", post.Title)
	assert.Nil(t, post.FileURL)
	assert.Equal(t, models.SectionGeneral, post.SectionType)
	assert.Equal(t, 2, f.sections.sections["sec-tech"].PostCount)
	assert.Equal(t, 1, f.sections.sections["sec-general"].PostCount)
	assert.Equal(t, []string{"old.jpg"}, f.media.deleted)
	assert.Equal(t, []models.ModerationAction{models.ActionPostFileDeleted, models.ActionPostUpdated}, f.logs.actions())

	envelope := f.logs.entries[1].Details
	assert.Equal(t, "Old", envelope["old"].(map[string]interface{})["title"])
	assert.Equal(t, "GENERAL", envelope["new"].(map[string]interface{})["section"])
}

func TestPostVisibility(t *testing.T) {
	f := newPostFixture(
		models.Post{ID: "p1", SectionID: "sec-general", Title: "a", ApprovalStatus: models.ApprovalPending},
		models.Post{ID: "p2", SectionID: "sec-general", Title: "b", ApprovalStatus: models.ApprovalAutoApproved},
	)
	ctx := context.Background()

	_, err := f.svc.GetVisible(ctx, "p1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	posts, page, err := f.svc.ListVisible(ctx, models.PostFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p2", posts[0].ID)
	assert.Equal(t, 1, page.TotalCount)
}

func TestPostCreateStoresPlainCharacters(t *testing.T) {
	f := newPostFixture()
	title := strings.Repeat("&", 255)
	content := "Tom & Jerry"

	post, err := f.svc.Create(context.Background(), adminActor, dto.CreatePostRequest{Title: title, Content: &content})
	require.NoError(t, err)
	assert.Equal(t, title, post.Title)
	require.NotNil(t, post.Content)
	assert.Equal(t, "Tom & Jerry", *post.Content)
}

func TestPostCreateHoldsTermsWithQuotesOrMarkup(t *testing.T) {
	f := newPostFixture()
	f.svc.policy = NewApprovalPolicy(NewContentValidator([]string{"don't", "badword"}))

	quoted := "I don't care"
	post, err := f.svc.Create(context.Background(), adminActor, dto.CreatePostRequest{Title: "Quote", Content: &quoted})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, post.ApprovalStatus)

	split := "bad<b></b>word"
	post, err = f.svc.Create(context.Background(), adminActor, dto.CreatePostRequest{Title: "Split", Content: &split})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, post.ApprovalStatus)
}

func TestPostUpdateRejectsEmptyTitleBeforeDeletingFile(t *testing.T) {
	name := "keep.jpg"
	fileType := models.FileTypeJPG
	f := newPostFixture(models.Post{
		ID: "p1", SectionID: "sec-tech", SectionType: models.SectionTechnology, Title: "Old",
		FileURL: &name, FileType: &fileType, FileStatus: models.FileVisible, ApprovalStatus: models.ApprovalPending,
	})
	fileStatus := "DELETE"
	title := "<b></b>"

	_, err := f.svc.Update(context.Background(), adminActor, "p1", dto.UpdatePostRequest{FileStatus: &fileStatus, Title: &title})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.media.deleted)
	assert.Empty(t, f.logs.entries)
}
